// Package batch converts many OBJ files to SDPF patch files in parallel.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	textenc "golang.org/x/text/encoding"

	"github.com/Faultbox/subd-patches/pkg/formats"
	"github.com/Faultbox/subd-patches/pkg/subd"
)

// Config holds the shared settings for a batch run.
type Config struct {
	OutputDir    string // empty writes next to each input
	Extension    string
	FlipWinding  bool
	NameEncoding textenc.Encoding
	Workers      int
	Logger       *zap.Logger
	// ProgressInterval between progress log lines. Zero disables them.
	ProgressInterval time.Duration
}

// Result holds the outcome of converting one file.
type Result struct {
	Input       string
	Output      string
	Quads       int
	Triangles   int
	Diagnostics []string
	HasErrors   bool // error-level diagnostics were recorded
	Duration    time.Duration
	Error       string
}

// Success reports whether the patch file was written.
func (r Result) Success() bool {
	return r.Error == ""
}

// OutputPath returns where the patch file for input is written.
func OutputPath(cfg Config, input string) string {
	ext := cfg.Extension
	if ext == "" {
		ext = ".sdpf"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if cfg.OutputDir != "" {
		base = filepath.Join(cfg.OutputDir, filepath.Base(base))
	}
	return base + ext
}

// Run converts all inputs using a worker pool. Results are in input order.
// Inputs not started before ctx is canceled fail with the context error.
func Run(ctx context.Context, cfg Config, inputs []string) []Result {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := max(cfg.Workers, 1)

	total := len(inputs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.ProgressInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ProgressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if p := processed.Load(); p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						log.Info("batch progress",
							zap.Int64("done", p),
							zap.Int("total", total),
							zap.Float64("filesPerSec", rate))
					}
				}
			}
		}()
	}

	// Two inputs with the same base name would overwrite each other's output.
	owner := make(map[string]int, total)
	for i, in := range inputs {
		out := OutputPath(cfg, in)
		if j, ok := owner[out]; ok {
			results[i] = Result{Input: in, Output: out, Error: fmt.Sprintf("output collides with %s", inputs[j])}
			continue
		}
		owner[out] = i
	}

	// Worker pool
	work := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Input: inputs[idx], Error: err.Error()}
				} else {
					in := inputs[idx]
					results[idx] = ConvertFile(cfg, in, OutputPath(cfg, in))
				}
				processed.Add(1)
			}
		}()
	}

	for i := range inputs {
		if results[i].Error != "" {
			continue
		}
		work <- i
	}
	close(work)

	wg.Wait()
	close(done)

	failed := 0
	for _, r := range results {
		if !r.Success() {
			failed++
		}
	}
	log.Info("batch finished",
		zap.Int("files", total),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	return results
}

// ConvertFile converts one OBJ file and writes the patch file to output.
func ConvertFile(cfg Config, input, output string) Result {
	start := time.Now()
	res := Result{Input: input, Output: output}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("file", input))

	obj, err := formats.ParseOBJFile(input, formats.OBJOptions{NameEncoding: cfg.NameEncoding})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	pm, err := subd.Convert(obj.Mesh(), subd.Options{FlipWinding: cfg.FlipWinding, Logger: log})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Quads = len(pm.QuadPatches)
	res.Triangles = len(pm.TrianglePatches)
	res.HasErrors = pm.HasErrors()
	for _, d := range pm.Diagnostics {
		res.Diagnostics = append(res.Diagnostics, d.String())
	}

	if err := formats.SavePatchFile(output, pm); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Duration = time.Since(start)
	log.Debug("converted",
		zap.String("output", output),
		zap.Int("quads", res.Quads),
		zap.Int("triangles", res.Triangles),
		zap.Duration("elapsed", res.Duration))
	return res
}
