package batch

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest summarizes a batch run.
type Manifest struct {
	Generated time.Time       `yaml:"generated"`
	Succeeded int             `yaml:"succeeded"`
	Failed    int             `yaml:"failed"`
	Files     []ManifestEntry `yaml:"files"`
}

// ManifestEntry represents one converted file.
type ManifestEntry struct {
	Input       string   `yaml:"input"`
	Output      string   `yaml:"output,omitempty"`
	Quads       int      `yaml:"quads"`
	Triangles   int      `yaml:"triangles"`
	Diagnostics []string `yaml:"diagnostics,omitempty"`
	Error       string   `yaml:"error,omitempty"`
}

// NewManifest builds a manifest from batch results.
func NewManifest(results []Result) *Manifest {
	m := &Manifest{
		Generated: time.Now().UTC().Truncate(time.Second),
		Files:     make([]ManifestEntry, len(results)),
	}
	for i, r := range results {
		entry := ManifestEntry{
			Input:       r.Input,
			Quads:       r.Quads,
			Triangles:   r.Triangles,
			Diagnostics: r.Diagnostics,
			Error:       r.Error,
		}
		if r.Success() {
			entry.Output = r.Output
			m.Succeeded++
		} else {
			m.Failed++
		}
		m.Files[i] = entry
	}
	return m
}

// WriteManifest writes a YAML manifest for results to path.
func WriteManifest(path string, results []Result) error {
	data, err := yaml.Marshal(NewManifest(results))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
