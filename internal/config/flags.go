package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config   string
	Debug    bool
	Flip     bool
	Encoding string
	LogFile  string
	OutDir   string
	Workers  int
}

// Register adds the flags shared by every subcommand to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.Flip, "flip", false, "Reverse winding of boundary patches")
	fs.StringVar(&f.Encoding, "encoding", "", "Material name encoding (utf-8, euc-kr, windows-1252)")
	fs.StringVar(&f.LogFile, "log", "", "Write logs to file")
}

// RegisterBatch adds the batch-only flags to fs.
func (f *Flags) RegisterBatch(fs *flag.FlagSet) {
	fs.StringVar(&f.OutDir, "outdir", "", "Output directory")
	fs.IntVar(&f.Workers, "workers", 0, "Number of parallel workers (0 = one per CPU)")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Flip {
		cfg.Convert.FlipWinding = true
	}
	if f.Encoding != "" {
		cfg.Convert.NameEncoding = f.Encoding
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.OutDir != "" {
		cfg.Output.Dir = f.OutDir
	}
	if f.Workers > 0 {
		cfg.Batch.Workers = f.Workers
	}
}
