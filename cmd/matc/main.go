// Command matc compiles material definitions into WGSL programs.
//
// Usage:
//
//	matc [options] <file.material>...
//
// Examples:
//
//	matc lit.material                    # Compile and print the binding tables
//	matc -source lit.material            # Also print the generated WGSL
//	matc -validate -glsl 300es *.material
//	matc -format json -o out.json lit.material
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/Carmen-Shannon/oxy-matc/common"
	"github.com/Carmen-Shannon/oxy-matc/engine/loader"
	"github.com/Carmen-Shannon/oxy-matc/engine/profiler"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-matc/engine/renderer/translator"
	"github.com/gogpu/naga/glsl"
)

var (
	output        = flag.String("o", "", "output file (default: stdout)")
	format        = flag.String("format", "text", "output format: text or json")
	showSource    = flag.Bool("source", false, "print the generated WGSL stages (text format)")
	validate      = flag.Bool("validate", false, "validate the generated WGSL")
	glslVersion   = flag.String("glsl", "", "also translate to GLSL: 330, 400, 410, 420, 430, 450, 460, 300es, 310es, 320es")
	profile       = flag.String("profile", "wgsl", "profile marker written at the top of each stage")
	extensions    = flag.String("enable", "", "comma-separated WGSL extensions to enable")
	vertexEntry   = flag.String("vs", "vs_main", "vertex entry point name")
	fragmentEntry = flag.String("fs", "fs_main", "fragment entry point name")
	fileExts      = flag.String("ext", ".material", "comma-separated accepted file extensions")
	workers       = flag.Int("j", 0, "parallel compilations (default: number of CPUs)")
	stats         = flag.Bool("stats", false, "log compile statistics")
	verbose       = flag.Bool("v", false, "verbose logging")
	version       = flag.Bool("version", false, "print version")
)

const matcVersion = "0.1.0"

var glslVersions = map[string]glsl.Version{
	"330":   glsl.Version330,
	"400":   glsl.Version400,
	"410":   glsl.Version410,
	"420":   glsl.Version420,
	"430":   glsl.Version430,
	"450":   glsl.Version450,
	"460":   glsl.Version460,
	"300es": glsl.VersionES300,
	"310es": glsl.VersionES310,
	"320es": glsl.VersionES320,
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("matc version %s\n", matcVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *format)
		os.Exit(1)
	}
	var target glsl.Version
	if *glslVersion != "" {
		v, ok := glslVersions[strings.ToLower(strings.ReplaceAll(*glslVersion, " ", ""))]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown GLSL version %q\n", *glslVersion)
			os.Exit(1)
		}
		target = v
	}

	if *verbose || *stats {
		level := slog.LevelInfo
		if *verbose {
			level = slog.LevelDebug
		}
		common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reports, failed, err := run(ctx, args, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := emit(reports); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// emit writes the reports to stdout or the -o file.
func emit(reports []report) error {
	if *output == "" {
		return write(os.Stdout, reports)
	}
	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := write(f, reports); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d report(s) to %s\n", len(reports), *output)
	return nil
}

// run compiles every input and applies the requested validation and translation.
func run(ctx context.Context, paths []string, target glsl.Version) ([]report, int, error) {
	compiler := shader.NewCompiler(
		shader.WithProfile(*profile),
		shader.WithExtensions(splitList(*extensions)...),
		shader.WithEntryPoints(*vertexEntry, *fragmentEntry),
	)

	opts := []loader.LoaderBuilderOption{
		loader.WithCompiler(compiler),
		loader.WithExtensions(splitList(*fileExts)...),
	}
	if *workers > 0 {
		opts = append(opts, loader.WithWorkers(*workers))
	}
	var prof *profiler.Profiler
	if *stats {
		prof = profiler.NewProfiler()
		opts = append(opts, loader.WithProfiler(prof))
	}

	results, err := loader.NewLoader(opts...).LoadFiles(ctx, paths)
	if err != nil {
		return nil, 0, err
	}
	if prof != nil {
		prof.Flush()
	}

	tr := translator.NewTranslator()
	reports := make([]report, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			reports = append(reports, failedReport(res.Name, res.Err))
			continue
		}

		r := newReport(res.Program)
		if *validate {
			if err := tr.Validate(res.Program); err != nil {
				failed++
				reports = append(reports, failedReport(res.Name, err))
				continue
			}
			r.Validated = true
		}
		if target.Major != 0 {
			out, err := tr.ToGLSL(res.Program, target)
			if err != nil {
				failed++
				reports = append(reports, failedReport(res.Name, err))
				continue
			}
			r.addGLSL(out)
		}
		reports = append(reports, r)
	}
	return reports, failed, nil
}

func write(w io.Writer, reports []report) error {
	if *format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, r := range reports {
		writeText(w, r, *showSource)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func usage() {
	fmt.Fprintf(os.Stderr, `matc - material definition compiler

Usage:
  matc [options] <file.material>...

Options:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  matc lit.material                    # Compile and print the binding tables
  matc -source lit.material            # Also print the generated WGSL
  matc -validate -glsl 300es *.material
  matc -format json -o out.json lit.material
`)
}
