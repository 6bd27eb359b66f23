// Package cli implements the nameof command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funvibe/nameof/internal/config"
	"github.com/funvibe/nameof/internal/diagnostics"
	"github.com/funvibe/nameof/internal/il"
	"github.com/funvibe/nameof/internal/logging"
	"github.com/funvibe/nameof/internal/modfile"
	"github.com/funvibe/nameof/internal/pipeline"

	"github.com/dustin/go-humanize"
)

const usage = `nameof rewrites Name.Of(x) marker calls in compiled modules into "x" literals.

Usage:
  nameof weave <module> [-o <output>] [--config <file>] [--report <db>]
  nameof disasm <module> [method filter]
  nameof help

Modules are read in either format. Output is binary for *.nmod paths and
YAML text otherwise; without -o the input is rewritten in place.

Configuration is read from --config, else ./nameof.yaml if present, and
NAMEOF_* environment variables override it.
`

// app is one invocation: arguments in os.Args layout plus the streams to
// write to. Handlers set code when they fail.
type app struct {
	args   []string
	stdout io.Writer
	stderr io.Writer
	code   int
}

// isModuleFile checks if a file has a recognized module extension
func isModuleFile(path string) bool {
	if strings.HasSuffix(path, config.BinaryModuleFileExt) {
		return true
	}
	for _, ext := range config.ModuleFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (a *app) fail(code int, format string, args ...any) bool {
	fmt.Fprintf(a.stderr, format, args...)
	a.code = code
	return true
}

func (a *app) handleHelp() bool {
	if len(a.args) < 2 {
		return false
	}
	if a.args[1] != "-help" && a.args[1] != "--help" && a.args[1] != "help" {
		return false
	}
	fmt.Fprint(a.stdout, usage)
	return true
}

// handleWeave runs the weave pipeline on one module
func (a *app) handleWeave() bool {
	if len(a.args) < 2 || a.args[1] != "weave" {
		return false
	}

	var inputPath, outputPath, configPath, reportPath string
	for i := 2; i < len(a.args); i++ {
		switch arg := a.args[i]; arg {
		case "-o", "--output", "--config", "--report":
			if i+1 >= len(a.args) {
				return a.fail(2, "Missing value for %s\n", arg)
			}
			i++
			switch arg {
			case "--config":
				configPath = a.args[i]
			case "--report":
				reportPath = a.args[i]
			default:
				outputPath = a.args[i]
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return a.fail(2, "Unknown flag: %s\n", arg)
			}
			if inputPath != "" {
				return a.fail(2, "Only one module can be woven at a time\n")
			}
			inputPath = arg
		}
	}
	if inputPath == "" {
		return a.fail(2, "Usage: %s weave <module> [-o <output>] [--config <file>] [--report <db>]\n", a.args[0])
	}

	printer := diagnostics.New(a.stderr)
	if !isModuleFile(inputPath) {
		printer.Warning("%s does not have a module file extension", inputPath)
	}

	if configPath == "" {
		if _, err := os.Stat(config.DefaultConfigFile); err == nil {
			configPath = config.DefaultConfigFile
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		printer.Error(err)
		a.code = 1
		return true
	}
	if reportPath != "" {
		cfg.Report = reportPath
	}

	ctx := pipeline.NewPipelineContext(inputPath, outputPath, cfg)
	ctx.Logger = logging.New(a.stderr, cfg.Log)
	ctx = pipeline.Weave().Run(ctx)

	if ctx.Failed() {
		for _, err := range ctx.Errors {
			printer.Error(err)
		}
		a.code = 1
		return true
	}

	res := ctx.Result
	fmt.Fprintf(a.stdout, "Wove %s -> %s (%s): %d %s rewritten, %d methods and %d fields removed\n",
		inputPath, ctx.OutputPath, humanize.Bytes(uint64(ctx.BytesWritten)),
		len(res.Rewrites), plural(len(res.Rewrites), "call", "calls"),
		len(res.RemovedMethods), len(res.RemovedFields))
	if cfg.Report != "" {
		fmt.Fprintf(a.stdout, "Run %s recorded in %s\n", ctx.RunID, cfg.Report)
	}
	return true
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// handleDisasm prints the method bodies of a module, optionally only those
// whose full name contains a filter string.
func (a *app) handleDisasm() bool {
	if len(a.args) < 2 || a.args[1] != "disasm" {
		return false
	}
	if len(a.args) < 3 {
		return a.fail(2, "Usage: %s disasm <module> [method filter]\n", a.args[0])
	}
	path := a.args[2]
	filter := ""
	if len(a.args) > 3 {
		filter = a.args[3]
	}

	info, err := os.Stat(path)
	if err != nil {
		diagnostics.New(a.stderr).Error(err)
		a.code = 1
		return true
	}
	mod, err := modfile.Load(path)
	if err != nil {
		diagnostics.New(a.stderr).Error(err)
		a.code = 1
		return true
	}

	fmt.Fprintf(a.stdout, "; %s, %s, %d types, %d references\n",
		path, humanize.Bytes(uint64(info.Size())), len(mod.Types), len(mod.References))
	if filter == "" {
		fmt.Fprint(a.stdout, il.DisassembleModule(mod))
		return true
	}
	for _, m := range mod.Methods() {
		if strings.Contains(m.FullName(), filter) {
			fmt.Fprint(a.stdout, il.Disassemble(m))
		}
	}
	return true
}

// Main runs the command line described by args (os.Args layout) and
// returns the process exit code.
func Main(args []string, stdout, stderr io.Writer) int {
	a := &app{args: args, stdout: stdout, stderr: stderr}

	if len(args) < 2 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	// Handle help first
	if a.handleHelp() {
		return a.code
	}
	if a.handleWeave() {
		return a.code
	}
	if a.handleDisasm() {
		return a.code
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
	fmt.Fprintf(stderr, "Use '%s help' for usage\n", args[0])
	return 2
}

// Run is the process entry point
func Run() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			// Print stack trace for debugging
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	os.Exit(Main(os.Args, os.Stdout, os.Stderr))
}
