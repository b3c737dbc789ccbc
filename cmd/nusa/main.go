package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/sambeau/nusa/config"
	"github.com/sambeau/nusa/pkg/nusa/ast"
	"github.com/sambeau/nusa/pkg/nusa/compiler"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/logger"
	"github.com/sambeau/nusa/pkg/nusa/project"
	"github.com/sambeau/nusa/pkg/nusa/repl"
	"github.com/sambeau/nusa/pkg/nusa/watch"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

// errReported means the details were already written to stderr.
var errReported = errors.New("errors reported")

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) > 0 {
		switch args[0] {
		case "compile":
			return runCompile(ctx, args[1:], stdout, stderr, getenv)
		case "build":
			return runBuild(args[1:], stdout, stderr, getenv)
		case "check":
			return runCheck(args[1:], stdout, stderr)
		case "watch":
			return runWatch(ctx, args[1:], stdout, stderr, getenv)
		case "repl":
			return runRepl(args[1:], stdout, stderr, getenv)
		}
	}

	flags := flag.NewFlagSet("nusa", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	var (
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)
	flags.BoolVar(showVersion, "V", false, "Show version")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return err
	}

	switch {
	case *showVersion:
		fmt.Fprintf(stdout, "nusa version %s (%s)\n", Version, Commit)
		return nil
	case *showHelp || flags.NArg() == 0:
		printUsage(stdout)
		return nil
	}

	printUsage(stderr)
	return fmt.Errorf("unknown command %q", flags.Arg(0))
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `nusa - NusaLang to JavaScript compiler

Usage:
  nusa compile <input> [output] [options]
  nusa build [input] [options]
  nusa check [--json] <file>...
  nusa watch [dir] [options]
  nusa repl

Compile Options:
  -d, --debug        Print the AST as JSON
  -w, --watch        Recompile when the input changes
  --config PATH      Path to config file (default: auto-detect)

Build Options:
  -o, --out DIR      Output directory (default: out_dir from config)
  --precompress LIST Also write .gz/.zst files (gzip, zstd)
  --config PATH      Path to config file (default: auto-detect)

General:
  --version          Show version
  --help             Show this help

Config Resolution:
  1. --config flag
  2. NUSA_CONFIG environment variable
  3. ./nusa.yaml
  4. ./.nusarc
  5. built-in defaults

Examples:
  nusa compile app.nusa              Write app.js next to app.nusa
  nusa compile page.nusa.md out.js   Compile a literate source
  nusa build src -o dist             Compile a directory tree
  nusa check --json src/*.nusa       Report syntax errors as JSON

`)
}

// settings holds everything a command derives from the config file.
type settings struct {
	cfg  *config.Config
	log  *logger.Logger
	opts compiler.Options
}

func loadSettings(configPath string, stdout, stderr io.Writer, getenv func(string) string, warn bool) (*settings, error) {
	cfg, _, err := config.LoadWithPath(configPath, getenv)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if warn {
		for _, warning := range config.Warnings(cfg) {
			fmt.Fprintf(stderr, "warning: %s\n", warning)
		}
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	log := logger.New(stdout, stderr, level)
	if cfg.Logging.Format == "json" {
		log = logger.NewJSON(stdout, stderr, level)
	}

	formatter, err := cfg.NewFormatter()
	if err != nil {
		return nil, err
	}

	return &settings{
		cfg: cfg,
		log: log,
		opts: compiler.Options{
			Formatter:     formatter,
			FormatOptions: cfg.FormatOptions(),
			Logger:        log,
		},
	}, nil
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments.
func parseInterspersed(flags *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := flags.Parse(args); err != nil {
			return nil, err
		}
		args = flags.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func runCompile(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("nusa compile", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	var (
		configPath = flags.String("config", "", "Path to config file")
		debug      = flags.Bool("debug", false, "Print the AST as JSON")
		watchMode  = flags.Bool("watch", false, "Recompile on change")
	)
	flags.BoolVar(debug, "d", false, "Alias for --debug")
	flags.BoolVar(watchMode, "w", false, "Alias for --watch")

	positional, err := parseInterspersed(flags, args)
	if err != nil {
		return err
	}
	if len(positional) == 0 || len(positional) > 2 {
		return fmt.Errorf("usage: nusa compile <input> [output] [-d] [-w]")
	}

	input := positional[0]
	output := project.TrimSourceExt(input) + project.OutputExt
	if len(positional) == 2 {
		output = positional[1]
	}

	s, err := loadSettings(*configPath, stdout, stderr, getenv, false)
	if err != nil {
		return err
	}
	s.opts.Debug = *debug

	compileOnce := func() error {
		source, err := project.ReadSource(input)
		if err != nil {
			return err
		}
		opts := s.opts
		opts.SourceFile = input
		result := compiler.Compile(source, opts)
		if !result.Success {
			printDiagnostics(stderr, source, result.Diagnostics)
			return errReported
		}
		if *debug {
			data, err := json.MarshalIndent(ast.ToMap(result.AST), "", "  ")
			if err != nil {
				return fmt.Errorf("encoding AST: %w", err)
			}
			fmt.Fprintf(stdout, "%s\n", data)
		}
		if err := project.WriteOutput(output, result.Code, s.cfg.Precompress); err != nil {
			return err
		}
		s.log.Infof("compiled %s -> %s", input, output)
		return nil
	}

	if !*watchMode {
		return compileOnce()
	}

	// Failures are reported and watching continues.
	recompile := func() {
		if err := compileOnce(); err != nil && !errors.Is(err, errReported) {
			s.log.Errorf("%v", err)
		}
	}
	recompile()

	absInput, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	return watchUntilDone(ctx, []string{filepath.Dir(input)}, s, func(path string) {
		if abs, err := filepath.Abs(path); err == nil && abs == absInput {
			recompile()
		}
	})
}

func watchUntilDone(ctx context.Context, dirs []string, s *settings, onChange func(string)) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := watch.New(dirs, onChange, s.log, s.cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	<-ctx.Done()
	return nil
}

func runBuild(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("nusa build", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	var (
		configPath  = flags.String("config", "", "Path to config file")
		outDir      = flags.String("out", "", "Output directory")
		precompress = flags.String("precompress", "", "Comma-separated encodings")
	)
	flags.StringVar(outDir, "o", "", "Alias for --out")

	positional, err := parseInterspersed(flags, args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("usage: nusa build [input] [-o dir] [--precompress gzip,zstd]")
	}

	s, err := loadSettings(*configPath, stdout, stderr, getenv, len(positional) == 0)
	if err != nil {
		return err
	}

	input := s.cfg.SourceDir
	if len(positional) == 1 {
		input = positional[0]
	}
	out := s.cfg.OutDir
	if *outDir != "" {
		out = *outDir
	}

	b := &project.Builder{Options: s.opts, Precompress: s.cfg.Precompress, Logger: s.log}
	if *precompress != "" {
		b.Precompress = strings.Split(*precompress, ",")
	}

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if !info.IsDir() {
		dst := filepath.Join(out, filepath.Base(project.TrimSourceExt(input))+project.OutputExt)
		if err := b.BuildFile(input, dst); err != nil {
			var fe project.FileError
			if errors.As(err, &fe) {
				fmt.Fprintln(stderr, fe.Error())
				return errReported
			}
			return err
		}
		return nil
	}

	summary, err := b.Build(input, out)
	if err != nil {
		return err
	}
	if !summary.OK() {
		return fmt.Errorf("build failed: %d of %d file(s) had errors",
			len(summary.Failed), len(summary.Failed)+len(summary.Compiled))
	}
	return nil
}

// fileReport is one entry of `nusa check --json` output.
type fileReport struct {
	File   string               `json:"file"`
	Errors []*perrors.NusaError `json:"errors"`
}

func runCheck(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("nusa check", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	jsonOutput := flags.Bool("json", false, "Report errors as JSON")

	files, err := parseInterspersed(flags, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("check requires at least one file")
	}

	reports := []fileReport{}
	for _, filename := range files {
		source, err := project.ReadSource(filename)
		if err != nil {
			return err
		}
		_, err = compiler.Parse(source)
		if err == nil {
			continue
		}

		var list perrors.List
		if !errors.As(err, &list) {
			return err
		}
		list = list.WithFile(filename)
		reports = append(reports, fileReport{File: filename, Errors: list})
		if !*jsonOutput {
			printDiagnostics(stderr, source, list)
		}
	}

	if *jsonOutput {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", data)
	}
	if len(reports) > 0 {
		return errReported
	}
	if !*jsonOutput {
		fmt.Fprintf(stdout, "%d file(s) OK\n", len(files))
	}
	return nil
}

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("nusa watch", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	var (
		configPath = flags.String("config", "", "Path to config file")
		outDir     = flags.String("out", "", "Output directory")
	)
	flags.StringVar(outDir, "o", "", "Alias for --out")

	positional, err := parseInterspersed(flags, args)
	if err != nil {
		return err
	}

	s, err := loadSettings(*configPath, stdout, stderr, getenv, len(positional) == 0)
	if err != nil {
		return err
	}
	srcRoot := s.cfg.SourceDir
	if len(positional) > 0 {
		srcRoot = positional[0]
	}
	out := s.cfg.OutDir
	if *outDir != "" {
		out = *outDir
	}

	b := &project.Builder{Options: s.opts, Precompress: s.cfg.Precompress, Logger: s.log}
	if _, err := b.Build(srcRoot, out); err != nil {
		return err
	}

	return watchUntilDone(ctx, []string{srcRoot}, s, func(path string) {
		dst, err := project.OutputPath(path, srcRoot, out)
		if err == nil {
			err = b.BuildFile(path, dst)
		}
		if err != nil {
			s.log.Errorf("%v", err)
		}
	})
}

func runRepl(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("nusa repl", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.String("config", "", "Path to config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	s, err := loadSettings(*configPath, stdout, stderr, getenv, false)
	if err != nil {
		return err
	}
	repl.Start(stdout, Version, s.opts)
	return nil
}

// printDiagnostics prints errors with source context
func printDiagnostics(w io.Writer, source string, errs []*perrors.NusaError) {
	lines := strings.Split(source, "\n")
	for _, err := range errs {
		fmt.Fprintln(w, err.PrettyString())
		printSourceContext(w, lines, err.Line, err.Column)
	}
}

// printSourceContext prints the source line and error pointer
func printSourceContext(w io.Writer, lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := lines[lineNum-1]
	trimmedLine := strings.TrimLeft(sourceLine, " \t")
	trimCount := visualWidth(sourceLine[:len(sourceLine)-len(trimmedLine)])

	fmt.Fprintf(w, "    %s\n", trimmedLine)

	if colNum > 0 {
		end := byteOffset(sourceLine, colNum-1)
		adjustedCol := max(visualWidth(sourceLine[:end])-trimCount, 0)
		fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", adjustedCol))
	}
}

// byteOffset returns the byte index of the rune at runeIndex, or len(s)
// past the end.
func byteOffset(s string, runeIndex int) int {
	offset := 0
	for i := 0; i < runeIndex && offset < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return offset
}

// visualWidth counts columns, one per rune, with tabs as 8.
func visualWidth(s string) int {
	width := 0
	for _, r := range s {
		if r == '\t' {
			width += 8
		} else {
			width++
		}
	}
	return width
}
