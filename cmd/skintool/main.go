// skintool is a CLI utility for inspecting and processing skin weight files.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/weights-editor/internal/config"
	"github.com/Faultbox/weights-editor/internal/logger"
	"github.com/Faultbox/weights-editor/pkg/skinfile"
)

var (
	cfg *config.Config
	log *zap.Logger
)

func main() {
	// Global flags come before the command: skintool -debug info leg.skin
	config.ParseFlags()

	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitFromConfig(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log = logger.Named("skintool")
	logger.Sugar.Debugf("Config: %+v", *cfg)

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(args)
	case "validate", "check":
		cmdValidate(args)
	case "prune":
		cmdPrune(args)
	case "prune-max":
		cmdPruneMax(args)
	case "smooth":
		cmdSmooth(args)
	case "remap":
		cmdRemap(args)
	case "convert":
		cmdConvert(args)
	case "rewrite":
		cmdRewrite(args)
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
	fmt.Println(`skintool - skin weight file utility

Usage:
  skintool [global options] <command> [options]

Global options:
  -config <path>   Config file
  -debug           Debug logging
  -log-file <path> Also log to a file

Commands:
  info <file.skin>                         Show binding and influence information
  validate <file.skin|dir>                 Check that every vertex is normalized
  prune [-t threshold] <in> <out>          Remove small weights
  prune-max [-n max] <in> <out>            Limit influences per vertex
  smooth [-s strength] [-r rounds] <in> <out>
                                           Smooth weights between nearby vertexes
  remap <source> <target> <out>            Transfer weights by closest position
  convert <in> <out>                       Convert between JSON and YAML
  rewrite <in-dir> <out-dir>               Re-save every file in a directory
  config [-o path] [-save]                 Print or save the effective config

Examples:
  skintool info body.skin
  skintool prune -t 0.05 body.skin body_pruned.skin
  skintool remap body_old.skin body_new.skin body_out.skin
  skintool convert body.skin body.yaml
  skintool -theme softimage config -save`)
}

func fail(err error) {
	log.Error("command failed", zap.Error(err))
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func mustLoad(path string) *skinfile.File {
	f, err := skinfile.Load(path)
	if err != nil {
		fail(err)
	}
	return f
}

func mustSave(path string, f *skinfile.File) {
	if err := skinfile.Save(path, f); err != nil {
		fail(err)
	}
	log.Info("saved", zap.String("path", path), zap.Int("vertexes", len(f.Verts)))
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: skintool info <file.skin>")
		os.Exit(1)
	}

	f := mustLoad(args[0])
	st := collectStats(f)

	fmt.Printf("File:           %s\n", args[0])
	fmt.Printf("Version:        %v\n", f.Version)
	fmt.Printf("Object:         %s\n", f.Object)
	fmt.Printf("Binding:        %s\n", f.Binding.Name)
	fmt.Printf("Vertexes:       %d (binding: %d)\n", st.Vertexes, f.Binding.VertCount)
	fmt.Printf("Max influences: %d (used: %d, over limit: %d)\n", f.Binding.MaxInfluences, st.MaxPerVertex, st.OverLimit)
	fmt.Println()
	fmt.Println("Influences:")

	type infStat struct {
		name  string
		count int
	}
	var stats []infStat
	for _, id := range f.InfluenceIDs() {
		name := f.Influences[id].Name
		stats = append(stats, infStat{name, st.PerInfluence[name]})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].count > stats[j].count
	})
	for _, s := range stats {
		fmt.Printf("  %-30s %d\n", s.name, s.count)
	}
}

func cmdValidate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: skintool validate <file.skin|dir>")
		os.Exit(1)
	}

	var files []*skinfile.File
	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		var loadErr error
		files, loadErr = skinfile.ImportAll(args[0])
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "Skipped files:\n  %v\n", loadErr)
		}
	} else {
		files = []*skinfile.File{mustLoad(args[0])}
	}

	bad := 0
	for _, f := range files {
		problems := validateFile(f)
		if len(problems) == 0 {
			fmt.Printf("%s: ok\n", f.Object)
			continue
		}
		bad++
		fmt.Printf("%s: %d problems\n", f.Object, len(problems))
		for _, p := range problems {
			fmt.Printf("  %s\n", p)
		}
	}
	if bad > 0 {
		os.Exit(1)
	}
}

func cmdPrune(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	threshold := fs.Float64("t", cfg.Editor.PruneThreshold, "Remove weights below this value")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: skintool prune [-t threshold] <in> <out>")
		os.Exit(1)
	}

	f := mustLoad(fs.Arg(0))
	changed, err := pruneFile(f, *threshold)
	if err != nil {
		fail(err)
	}
	mustSave(fs.Arg(1), f)
	fmt.Printf("Pruned %d vertexes\n", changed)
}

func cmdPruneMax(args []string) {
	fs := flag.NewFlagSet("prune-max", flag.ExitOnError)
	maxInfs := fs.Int("n", cfg.Editor.MaxInfluences, "Maximum influences per vertex")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: skintool prune-max [-n max] <in> <out>")
		os.Exit(1)
	}

	f := mustLoad(fs.Arg(0))
	changed, err := pruneMaxFile(f, *maxInfs)
	if err != nil {
		fail(err)
	}
	mustSave(fs.Arg(1), f)
	fmt.Printf("Limited %d vertexes to %d influences\n", changed, *maxInfs)
}

func cmdSmooth(args []string) {
	fs := flag.NewFlagSet("smooth", flag.ExitOnError)
	strength := fs.Float64("s", cfg.Editor.SmoothStrength, "Smoothing strength (0-1)")
	rounds := fs.Int("r", 1, "Number of smoothing passes")
	neighbors := fs.Int("k", 6, "Neighbors per vertex")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: skintool smooth [-s strength] [-r rounds] <in> <out>")
		os.Exit(1)
	}

	f := mustLoad(fs.Arg(0))
	if err := smoothFile(f, *strength, *rounds, *neighbors); err != nil {
		fail(err)
	}
	mustSave(fs.Arg(1), f)
}

func cmdRemap(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: skintool remap <source.skin> <target.skin> <out.skin>")
		os.Exit(1)
	}

	target := mustLoad(args[1])
	if err := remapFile(cfg, args[0], target, args[2], log); err != nil {
		fail(err)
	}
	fmt.Printf("Remapped %s onto %s\n", args[0], target.Object)
}

func cmdConvert(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: skintool convert <in> <out>")
		os.Exit(1)
	}

	f := mustLoad(args[0])
	mustSave(args[1], f)
	fmt.Printf("Converted %s (%s) to %s (%s)\n", args[0], skinfile.FormatFor(args[0]), args[1], skinfile.FormatFor(args[1]))
}

func cmdRewrite(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: skintool rewrite <in-dir> <out-dir>")
		os.Exit(1)
	}

	files, err := skinfile.ImportAll(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Skipped files:\n  %v\n", err)
	}
	for _, f := range files {
		f.Version = skinfile.FormatVersion
	}
	if err := skinfile.ExportAll(args[1], files); err != nil {
		fail(err)
	}
	fmt.Printf("Rewrote %d files\n", len(files))
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("o", "", "Write the config to this path")
	save := fs.Bool("save", false, "Write the config to the user config directory")
	fs.Parse(args)

	if *out == "" && !*save {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fail(err)
		}
		fmt.Print(string(data))
		return
	}

	path, err := writeConfig(cfg, *out)
	if err != nil {
		fail(err)
	}
	log.Info("saved config", zap.String("path", path))
	fmt.Printf("Saved config to %s\n", path)
}
