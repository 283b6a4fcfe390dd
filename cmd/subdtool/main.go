// subdtool converts triangle meshes into subdivision-surface patch files.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/subd-patches/internal/batch"
	"github.com/Faultbox/subd-patches/internal/config"
	"github.com/Faultbox/subd-patches/internal/logger"
	"github.com/Faultbox/subd-patches/pkg/encoding"
	"github.com/Faultbox/subd-patches/pkg/formats"
	"github.com/Faultbox/subd-patches/pkg/subd"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "convert", "c":
		cmdConvert(args)
	case "batch", "b":
		cmdBatch(args)
	case "info":
		cmdInfo(args)
	case "inspect":
		cmdInspect(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`subdtool - subdivision patch converter

Usage:
  subdtool <command> [options]

Commands:
  convert <in.obj> [-o out.sdpf]       Convert one OBJ file
  batch [-outdir dir] <files|dirs...>  Convert many OBJ files in parallel
  info <file.sdpf>                     Show patch file contents
  inspect <in.obj>                     Convert without writing and report diagnostics
  config [path]                        Write the effective configuration

Common options:
  -config <file>     Config file (default ./subdtool.yaml)
  -debug             Enable debug logging
  -flip              Reverse winding of boundary patches
  -encoding <name>   Material name encoding (utf-8, euc-kr, windows-1252)
  -log <file>        Write logs to file

Examples:
  subdtool convert rock.obj -o rock.sdpf
  subdtool batch -outdir patches -workers 8 models/
  subdtool info rock.sdpf
  subdtool inspect -encoding euc-kr prontera.obj`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	logger.Sync()
	os.Exit(1)
}

// setup parses flags, loads the config and initializes logging.
func setup(fset *flag.FlagSet, flags *config.Flags, args []string) *config.Config {
	if err := fset.Parse(args); err != nil {
		fatalf("%v", err)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.FileConfig{
			Path:       cfg.Logging.LogFile,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	err = logger.Init(logger.Options{
		Level:   cfg.Logging.Level,
		Console: os.Stderr,
		Color:   true,
		File:    fileCfg,
	})
	if err != nil {
		fatalf("%v", err)
	}
	return cfg
}

func batchConfig(cfg *config.Config) batch.Config {
	enc, err := encoding.Lookup(cfg.Convert.NameEncoding)
	if err != nil {
		fatalf("%v", err)
	}
	return batch.Config{
		OutputDir:        cfg.Output.Dir,
		Extension:        cfg.Output.Extension,
		FlipWinding:      cfg.Convert.FlipWinding,
		NameEncoding:     enc,
		Workers:          cfg.WorkerCount(),
		Logger:           logger.Log,
		ProgressInterval: 2 * time.Second,
	}
}

func cmdConvert(args []string) {
	fset := flag.NewFlagSet("convert", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fset)
	output := fset.String("o", "", "Output file (default: input with .sdpf extension)")
	cfg := setup(fset, &flags, args)
	defer logger.Sync()

	if fset.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: subdtool convert <in.obj> [-o out.sdpf]")
		os.Exit(1)
	}

	bc := batchConfig(cfg)
	in := fset.Arg(0)
	out := *output
	if out == "" {
		out = batch.OutputPath(bc, in)
	}

	res := batch.ConvertFile(bc, in, out)
	if !res.Success() {
		fatalf("%s", res.Error)
	}

	fmt.Printf("%s -> %s\n", res.Input, res.Output)
	fmt.Printf("  Quad patches:     %d\n", res.Quads)
	fmt.Printf("  Triangle patches: %d\n", res.Triangles)
	if len(res.Diagnostics) > 0 {
		fmt.Printf("  Diagnostics:      %d (see log)\n", len(res.Diagnostics))
	}
	if res.HasErrors {
		os.Exit(2)
	}
}

func cmdBatch(args []string) {
	fset := flag.NewFlagSet("batch", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fset)
	flags.RegisterBatch(fset)
	cfg := setup(fset, &flags, args)
	defer logger.Sync()

	if fset.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: subdtool batch [-outdir dir] <files|dirs...>")
		os.Exit(1)
	}

	inputs, err := collectInputs(fset.Args())
	if err != nil {
		fatalf("%v", err)
	}
	if len(inputs) == 0 {
		fatalf("no .obj files found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bc := batchConfig(cfg)
	logger.Log.Info("batch started", zap.Int("files", len(inputs)), zap.Int("workers", bc.Workers))
	results := batch.Run(ctx, bc, inputs)

	manifest := cfg.Batch.Manifest
	if cfg.Output.Dir != "" && !filepath.IsAbs(manifest) {
		manifest = filepath.Join(cfg.Output.Dir, manifest)
	}
	if err := os.MkdirAll(filepath.Dir(manifest), 0755); err != nil {
		fatalf("%v", err)
	}
	if err := batch.WriteManifest(manifest, results); err != nil {
		fatalf("writing manifest: %v", err)
	}

	failed := 0
	for _, r := range results {
		if !r.Success() {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %s\n", r.Input, r.Error)
		}
	}
	fmt.Printf("Converted %d/%d files, manifest: %s\n", len(results)-failed, len(results), manifest)
	if failed > 0 {
		logger.Sync()
		os.Exit(1)
	}
}

// collectInputs expands glob patterns and directories into .obj files.
func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = []string{arg}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				inputs = append(inputs, m)
				continue
			}
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".obj") {
					inputs = append(inputs, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return inputs, nil
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: subdtool info <file.sdpf>")
		os.Exit(1)
	}

	pf, err := formats.ParsePatchFileFromPath(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Patch file: %s\n", args[0])
	fmt.Printf("Version:    %s\n", pf.Version)
	fmt.Printf("Quads:      %d (%d irregular)\n", len(pf.QuadPatches), countIrregular(pf.QuadPatches, 4))
	fmt.Printf("Triangles:  %d (%d irregular)\n", len(pf.TrianglePatches), countIrregular(pf.TrianglePatches, 3))
	fmt.Println()

	fmt.Println("Subsets:")
	for _, s := range pf.Subsets {
		kind := "tri "
		if s.IsQuadPatches {
			kind = "quad"
		}
		fmt.Printf("  %s %-24s mesh subset %-3d patches %d..%d\n",
			kind, s.Name, s.MeshSubsetID, s.StartPatch, s.StartPatch+s.PatchCount)
	}

	fmt.Println()
	fmt.Println("Corner valences:")
	hist := make(map[int]int)
	for _, p := range pf.QuadPatches {
		for _, v := range p.Valence {
			hist[int(v)]++
		}
	}
	for _, p := range pf.TrianglePatches {
		for _, v := range p.Valence[:3] {
			hist[int(v)]++
		}
	}
	valences := make([]int, 0, len(hist))
	for v := range hist {
		valences = append(valences, v)
	}
	sort.Ints(valences)
	for _, v := range valences {
		fmt.Printf("  %2d: %d\n", v, hist[v])
	}
}

// countIrregular counts patches with a corner valence other than four,
// the same rule the converter sorts by.
func countIrregular(patches []subd.PatchData, corners int) int {
	n := 0
	for _, p := range patches {
		for _, v := range p.Valence[:corners] {
			if v != 4 {
				n++
				break
			}
		}
	}
	return n
}

func cmdInspect(args []string) {
	fset := flag.NewFlagSet("inspect", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fset)
	verbose := fset.Bool("v", false, "List every diagnostic")
	cfg := setup(fset, &flags, args)
	defer logger.Sync()

	if fset.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: subdtool inspect <in.obj>")
		os.Exit(1)
	}

	enc, err := encoding.Lookup(cfg.Convert.NameEncoding)
	if err != nil {
		fatalf("%v", err)
	}
	obj, err := formats.ParseOBJFile(fset.Arg(0), formats.OBJOptions{NameEncoding: enc})
	if err != nil {
		fatalf("%v", err)
	}

	start := time.Now()
	pm, err := subd.Convert(obj.Mesh(), subd.Options{FlipWinding: cfg.Convert.FlipWinding, Logger: logger.Log})
	if err != nil {
		fatalf("%v", err)
	}
	elapsed := time.Since(start)

	tris, quads, ngons := obj.FaceCounts()
	st := pm.Stats
	size := st.Bounds.Size()

	fmt.Printf("Mesh: %s\n", fset.Arg(0))
	fmt.Printf("  Faces:            %d (%d tris, %d quads, %d n-gons)\n", len(obj.Faces), tris, quads, ngons)
	fmt.Printf("  Triangles:        %d\n", st.InputTriangles)
	fmt.Printf("  Positions:        %d (%d vertices)\n", st.Positions, len(obj.Vertices))
	fmt.Printf("  Bounds:           %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
	fmt.Println()
	fmt.Printf("Patches (converted in %v):\n", elapsed)
	fmt.Printf("  Quads:            %d (%d irregular)\n", st.Quads, st.IrregularQuads)
	fmt.Printf("  Triangles:        %d (%d irregular)\n", st.Triangles, st.IrregularTris)
	fmt.Printf("  Boundary edges:   %d\n", st.BoundaryEdges)
	fmt.Printf("  Degenerate quads: %d\n", st.DegenerateQuads)
	fmt.Printf("  Merged/dropped:   %d/%d\n", st.MergedQuads, st.DroppedQuads)
	fmt.Printf("  Max valence:      %d\n", st.MaxValence)

	fmt.Println()
	fmt.Println("Subsets:")
	for _, s := range pm.Subsets() {
		kind := "tri "
		if s.IsQuadPatches {
			kind = "quad"
		}
		fmt.Printf("  %s %-24s %d patches\n", kind, s.Name, s.PatchCount)
	}

	if len(pm.Diagnostics) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Diagnostics:")
	for _, kind := range []subd.DiagnosticKind{
		subd.MalformedInput, subd.NonManifold, subd.SweepFault,
		subd.CapacityOverflow, subd.StructuralFault, subd.ValenceTwo,
	} {
		if n := pm.CountDiagnostics(kind); n > 0 {
			fmt.Printf("  %-17s %d\n", kind, n)
		}
	}
	if *verbose {
		for _, d := range pm.Diagnostics {
			fmt.Printf("  %s\n", d)
		}
	}
}

func cmdConfig(args []string) {
	fset := flag.NewFlagSet("config", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fset)
	flags.RegisterBatch(fset)
	cfg := setup(fset, &flags, args)

	if fset.NArg() > 0 {
		if err := cfg.SaveTo(fset.Arg(0)); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Config written to %s\n", fset.Arg(0))
		return
	}

	path, err := cfg.Save()
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Config written to %s\n", path)
}
