// main.go - rastaforge CLI driver: wires Config -> Runner -> checkpoint/
// `.rp` output. Grounded on the teacher's own main.go flag-driven wiring
// shape and os.Exit(1)-on-error diagnostics, minus the GUI/audio/video
// subsystem it used to assemble (this is a headless batch optimizer, not
// an emulator front end).

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const (
	defaultWidth      = 160
	defaultHeight     = 192
	defaultFreeCycles = 114
)

func main() {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("rastaforge", flag.ExitOnError)
	cfg.RegisterFlags(fs)

	paletteFlag := fs.String("palette", "", "path to the palette file (required)")
	sourceFlag := fs.String("source", "", "path to the raw RGBA8 source pixel grid (required)")
	errorMapFlag := fs.String("error_map", "", "path to a precomputed error map; built from -palette/-source/-metric if omitted")
	onoffFlag := fs.String("onoff", "", "optional OnOff file path")
	widthFlag := fs.Int("w", defaultWidth, "source/target width in pixels")
	heightFlag := fs.Int("h", defaultHeight, "source/target height in scanlines")
	outFlag := fs.String("out", "", "output base path for .rp/.rp.ini/checkpoint files (required)")
	quietFlag := fs.Bool("quiet", false, "suppress the progress ticker")

	fs.Parse(os.Args[1:])

	if *paletteFlag == "" || *sourceFlag == "" || *outFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: rastaforge -palette FILE -source FILE -out BASE [flags]")
		fs.PrintDefaults()
		os.Exit(1)
	}
	if err := cfg.Resolve(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	width, height := *widthFlag, *heightFlag
	if height > onOffMaxHeight {
		fmt.Fprintf(os.Stderr, "config error: height %d exceeds maximum %d\n", height, onOffMaxHeight)
		os.Exit(1)
	}

	guard := NewPathGuard(".")
	outBase, ok := resolveInputPath(guard, *outFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: output path %q escapes the working directory\n", *outFlag)
		os.Exit(1)
	}

	palette, err := loadPaletteFile(guard, *paletteFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	source, err := loadSourceFile(guard, *sourceFlag, width, height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	metric, ok := MetricByName(cfg.Metric)
	if !ok {
		metric = EuclideanMetric{}
	}

	var errorMap [128][]uint32
	if *errorMapFlag != "" {
		errorMap, err = loadErrorMapFile(guard, *errorMapFlag, width, height)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		errorMap = BuildErrorMap(palette, source, metric)
	}

	onoff := NewOnOffMap()
	if *onoffFlag != "" {
		onoff, err = loadOnOffFile(guard, *onoffFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	possibleColors, sourceIndexAt := BuildLineHints(errorMap, width, height)

	var dm *DualModel
	if cfg.Dual {
		targetY, targetU, targetV := buildTargetYUV(source)
		dm = NewDualModel(width, height, palette, targetY, targetU, targetV, cfg)
	}

	lruLines := lruLinesForCache(cfg.CacheMB, height)
	runner := NewRunner(cfg, width, height, defaultFreeCycles, lruLines, onoff, errorMap, dm, possibleColors, sourceIndexAt)

	initA := NewProgram(height)
	var initB *Program
	if cfg.Dual {
		mode, _ := ParseDualInitMode(cfg.DualInit)
		seedMut := NewMutator(width, height, defaultFreeCycles, 0, 1, possibleColors, sourceIndexAt)
		seedRNG := NewRNG(1)
		initB = SeedDualProgram(initA, mode, seedMut, seedRNG)
	}
	runner.Bootstrap(initA, initB)

	cmdLine := strings.Join(os.Args, " ")
	runner.OnCheckpoint = func(ctx *RunnerContext) {
		hdr := RPHeader{InputName: *sourceFlag, CmdLine: cmdLine}
		if !cfg.SeedRand {
			seed := cfg.SeedVal
			hdr.Seed = &seed
		}
		if err := SaveRunnerCheckpoint(outBase, ctx, hdr); err != nil {
			fmt.Fprintf(os.Stderr, "checkpoint error: %v\n", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var listener *CancelListener
	if !*quietFlag {
		listener = NewCancelListener(cancel)
		if listener != nil {
			listener.Start()
		}
	}

	var reporter *ProgressReporter
	if !*quietFlag {
		reporter = NewProgressReporter(runner.Ctx, time.Second)
		reporter.Start()
	}

	runErr := runner.Run(ctx)

	if reporter != nil {
		reporter.Stop()
	}
	if listener != nil {
		listener.Stop()
	}
	cancel()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "run error: %v\n", runErr)
		os.Exit(1)
	}

	runner.Ctx.Mu.Lock()
	hdr := RPHeader{Evaluations: runner.Ctx.Evaluations, InputName: *sourceFlag, CmdLine: cmdLine}
	if !cfg.SeedRand {
		seed := cfg.SeedVal
		hdr.Seed = &seed
	}
	err = SaveRunnerCheckpoint(outBase, runner.Ctx, hdr)
	bestCost := runner.Ctx.BestCost
	evals := runner.Ctx.Evaluations
	runner.Ctx.Mu.Unlock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "final save error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("done: %d evaluations, best cost %.1f, written to %s.rp\n", evals, bestCost, *outFlag)
}

func lruLinesForCache(cacheMB, height int) int {
	// Rough sizing: ~1KB per cached line entry, clamp to [height, 4*height].
	lines := cacheMB * 1024
	if lines < height {
		lines = height
	}
	if lines > 4*height {
		lines = 4 * height
	}
	return lines
}

func loadPaletteFile(guard *PathGuard, path string) ([]RGB, error) {
	full, ok := resolveInputPath(guard, path)
	if !ok {
		return nil, &InputError{Msg: fmt.Sprintf("palette path %q escapes the working directory", path)}
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("opening palette: %w", err)
	}
	defer f.Close()
	return LoadPalette(f)
}

func loadSourceFile(guard *PathGuard, path string, width, height int) ([]RGB, error) {
	full, ok := resolveInputPath(guard, path)
	if !ok {
		return nil, &InputError{Msg: fmt.Sprintf("source path %q escapes the working directory", path)}
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()
	return LoadSourcePixels(f, width, height)
}

func loadErrorMapFile(guard *PathGuard, path string, width, height int) ([128][]uint32, error) {
	var maps [128][]uint32
	full, ok := resolveInputPath(guard, path)
	if !ok {
		return maps, &InputError{Msg: fmt.Sprintf("error_map path %q escapes the working directory", path)}
	}
	f, err := os.Open(full)
	if err != nil {
		return maps, fmt.Errorf("opening error map: %w", err)
	}
	defer f.Close()
	return LoadErrorMap(f, width, height)
}

func loadOnOffFile(guard *PathGuard, path string) (*OnOffMap, error) {
	full, ok := resolveInputPath(guard, path)
	if !ok {
		return nil, &InputError{Msg: fmt.Sprintf("onoff path %q escapes the working directory", path)}
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("opening onoff file: %w", err)
	}
	defer f.Close()
	return ParseOnOff(f)
}

// resolveInputPath accepts either an absolute path outside the working
// directory (the common case for a CLI invoked from an arbitrary shell)
// or a relative path confined by guard; only ".." traversal in a
// relative path is rejected.
func resolveInputPath(guard *PathGuard, path string) (string, bool) {
	if filepath.IsAbs(path) {
		return path, true
	}
	return guard.Resolve(path)
}

func buildTargetYUV(source []RGB) (y, u, v []float32) {
	y = make([]float32, len(source))
	u = make([]float32, len(source))
	v = make([]float32, len(source))
	for i, c := range source {
		y[i], u[i], v[i] = rgbToYUV(c)
	}
	return y, u, v
}
