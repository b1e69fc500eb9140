// plc CLI - runs, translates and inspects PLC programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/compiler/hash"
	"github.com/chazu/plc/evaluator"
	"github.com/chazu/plc/manifest"
	"github.com/chazu/plc/server"
	"github.com/chazu/plc/vm"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("plc.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the parsed command line.
type options struct {
	gen       bool
	tokens    bool
	hash      bool
	lsp       bool
	verbosity int
	output    string
	file      string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("plc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.BoolVar(&opts.gen, "gen", false, "Print the program translated to Java instead of running it")
	fs.BoolVar(&opts.tokens, "tokens", false, "Print the token stream")
	fs.BoolVar(&opts.hash, "hash", false, "Print the content hash of the analyzed program")
	fs.BoolVar(&opts.lsp, "lsp", false, "Start the language server on stdio")
	fs.IntVar(&opts.verbosity, "v", -1, "Log verbosity (0 = errors only; default from plc.toml)")
	fs.StringVar(&opts.output, "o", "", "Write generated Java to this file (with -gen)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: plc [options] [file.plc]\n\n")
		fmt.Fprintf(stderr, "Runs a PLC program. Without a file, runs the entry named in %s.\n\n", manifest.FileName)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  plc main.plc            # Run main(), exit with its result\n")
		fmt.Fprintf(stderr, "  plc -gen main.plc       # Print Java\n")
		fmt.Fprintf(stderr, "  plc -gen -o Main.java   # Write Java for the project entry\n")
		fmt.Fprintf(stderr, "  plc -hash main.plc      # Print the program's content hash\n")
		fmt.Fprintf(stderr, "  plc -lsp                # Start the language server\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		opts.file = fs.Arg(0)
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected at most one file, got %d", fs.NArg())
	}
	return &opts, nil
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		report(stderr, err)
		return 1
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		report(stderr, err)
		return 1
	}
	configureLogging(opts, m)

	if opts.lsp {
		log.Infof("starting language server")
		if err := server.NewLSP(version).Run(); err != nil {
			report(stderr, err)
			return 1
		}
		return 0
	}

	path := opts.file
	if path == "" {
		if m == nil {
			fmt.Fprintf(stderr, "plc: no file given and no %s found\n", manifest.FileName)
			return 2
		}
		path = m.EntryPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		report(stderr, err)
		return 1
	}
	text := string(data)
	log.Debugf("loaded %s (%d bytes)", path, len(data))

	if opts.tokens {
		tokens, err := compiler.Lex(text)
		if err != nil {
			report(stderr, err)
			return 1
		}
		for _, tok := range tokens {
			fmt.Fprintf(stdout, "%s\t%s\n", tok.Pos, tok)
		}
		return 0
	}

	builtins := vm.NewBuiltins(stdout)
	src, err := compiler.Compile(text, builtins)
	if err != nil {
		report(stderr, err)
		return 1
	}

	switch {
	case opts.hash:
		sum, err := hash.HashSource(src)
		if err != nil {
			report(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, hash.Hex(sum))
		return 0

	case opts.gen:
		if err := generate(src, opts, m, stdout); err != nil {
			report(stderr, err)
			return 1
		}
		return 0
	}

	result, err := evaluator.Interpret(src, builtins)
	if err != nil {
		report(stderr, err)
		return 1
	}
	return exitCode(result)
}

// generate writes Java for src to -o, the manifest's output path, or stdout.
func generate(src *compiler.Source, opts *options, m *manifest.Manifest, stdout io.Writer) error {
	genOpts := compiler.DefaultGeneratorOptions()
	out := opts.output
	if m != nil {
		genOpts = m.GeneratorOptions()
		if out == "" {
			out = m.OutputPath()
		}
	}

	var buf strings.Builder
	if err := compiler.NewGenerator(&buf, genOpts).Generate(src); err != nil {
		return err
	}
	if out == "" {
		_, err := io.WriteString(stdout, buf.String())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", out, err)
	}
	log.Infof("wrote %s", out)
	return nil
}

// exitCode maps main's result to a process exit code. Results outside
// 0..255 exit 0.
func exitCode(result vm.Value) int {
	i, ok := result.Int()
	if !ok || !i.IsInt64() {
		return 0
	}
	n := i.Int64()
	if n < 0 || n > 255 {
		log.Debugf("main returned %d, which does not fit an exit code", n)
		return 0
	}
	return int(n)
}

func configureLogging(opts *options, m *manifest.Manifest) {
	verbosity := opts.verbosity
	var path *string
	if m != nil {
		if verbosity < 0 {
			verbosity = m.Log.Verbosity
		}
		if m.Log.File != "" {
			file := m.Log.File
			if !filepath.IsAbs(file) {
				file = filepath.Join(m.Dir, file)
			}
			path = &file
		}
	}
	if verbosity < 0 {
		verbosity = 0
	}
	commonlog.Configure(verbosity, path)
}

// report prints err to w, in red when w is a terminal.
func report(w io.Writer, err error) {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		fmt.Fprintf(w, "\x1b[31mError:\x1b[0m %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
