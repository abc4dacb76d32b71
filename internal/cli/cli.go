// Package cli builds the sim-build command line: the root build command and
// its init and version subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/robert-at-pretension-io/sim-build/internal/build"
	"github.com/robert-at-pretension-io/sim-build/internal/config"
	"github.com/robert-at-pretension-io/sim-build/internal/ctxlog"
	"github.com/robert-at-pretension-io/sim-build/internal/dut"
	"github.com/robert-at-pretension-io/sim-build/internal/extcheck"
	"github.com/robert-at-pretension-io/sim-build/internal/extractor"
	"github.com/robert-at-pretension-io/sim-build/internal/pipeline"
	"github.com/robert-at-pretension-io/sim-build/internal/policy"
	"github.com/robert-at-pretension-io/sim-build/internal/render"
	"github.com/robert-at-pretension-io/sim-build/internal/timing"
	"github.com/robert-at-pretension-io/sim-build/internal/validator"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const banner = `Build a testbench and simulator VPI extension for the given top-level RTL design.

The created artifacts should be included in a compilation of the given design to create
a simulation object that an application can drive pin by pin.`

// Options configures the command.
type Options struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader
	// AppFlags are extra flags accepted on the build command. Their values
	// are collected but not acted upon.
	AppFlags []FlagSpec
	// Lookup reads environment variables, os.LookupEnv when nil.
	Lookup func(string) (string, bool)
}

func (o *Options) defaults() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Lookup == nil {
		o.Lookup = os.LookupEnv
	}
}

type globalFlags struct {
	verbose bool
	config  string
	color   string
	timings string
}

// NewRootCommand builds the sim-build command tree.
func NewRootCommand(opts Options) (*cobra.Command, error) {
	opts.defaults()
	globals := &globalFlags{}

	flags, err := NewFlagSet()
	if err != nil {
		return nil, err
	}
	flags.reserve("help", "h")
	flags.reserve("verbose", "v")
	flags.reserve("config", "c")
	flags.reserve("color", "")
	flags.reserve("timings", "")
	for _, spec := range append(CoreFlags(), opts.AppFlags...) {
		if err := flags.Register(spec); err != nil {
			return nil, err
		}
	}

	var values *Values
	root := &cobra.Command{
		Use:           "sim-build [flags] TOP_LEVEL_RTL_FILE",
		Short:         "Build a testbench and VPI extension for a Verilog design",
		Long:          banner,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), opts, globals, values, args)
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.SetIn(opts.In)

	root.PersistentFlags().BoolVarP(&globals.verbose, "verbose", "v", false, "log debug details to stderr")
	root.PersistentFlags().StringVarP(&globals.config, "config", "c", "", "configuration file (default: search sim_build.json)")
	root.PersistentFlags().StringVar(&globals.color, "color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().StringVar(&globals.timings, "timings", "", "write build stage timings as JSON lines to file")
	values = flags.Bind(root.Flags())

	root.AddCommand(newInitCommand(opts), newVersionCommand(opts, globals))
	return root, nil
}

// Execute runs the command tree with args. Every failure is returned as an
// *ExitError whose message is meant for standard output.
func Execute(ctx context.Context, opts Options, args []string) error {
	root, err := NewRootCommand(opts)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	root.SetArgs(preferFiles(root, args))
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return &ExitError{Code: 1, Message: err.Error()}
	}
	return nil
}

// preferFiles rewrites an argument that names both a subcommand and an
// existing file ("sim-build init" next to an RTL file called init) into a
// relative path, so it reaches the build command as the RTL file.
func preferFiles(root *cobra.Command, args []string) []string {
	cmd, _, err := root.Find(args)
	if err != nil || cmd == root {
		return args
	}
	for i, arg := range args {
		if arg != cmd.Name() {
			continue
		}
		if info, err := os.Stat(arg); err != nil || info.IsDir() {
			return args
		}
		out := append([]string(nil), args...)
		out[i] = "." + string(filepath.Separator) + arg
		return out
	}
	return args
}

func useColor(mode string, out io.Writer) (bool, error) {
	switch strings.ToLower(mode) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
		f, ok := out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())) && !color.NoColor, nil
	}
	return false, &ExitError{Code: 1, Message: fmt.Sprintf("invalid --color %q: must be auto, on or off", mode)}
}

func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return ctxlog.New(level, "text", w)
}

func loadConfig(path, rtl string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(rtl)
}

func runBuild(ctx context.Context, opts Options, globals *globalFlags, values *Values, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	recorder := timing.New(time.Now(), timing.ResolvePath(globals.timings, opts.Lookup))
	defer recorder.Close()

	colored, err := useColor(globals.color, opts.Out)
	if err != nil {
		return err
	}

	logger := newLogger(globals.verbose, opts.Err)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Arguments parsed.", "args", args, "flags", values.Map())
	if err := recorder.Err(); err != nil {
		logger.Warn("Timings disabled.", "error", err)
	}

	var rtl string
	if len(args) > 0 {
		rtl = args[0]
	}
	if err := pipeline.CheckSource(rtl); err != nil {
		return &ExitError{Code: 1, Message: pipeline.UserMessage(err)}
	}

	cfg, err := loadConfig(globals.config, rtl)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	logger.Debug("Configuration loaded.", "path", cfg.Path, "root", cfg.Root, "vendor", cfg.Vendor)

	buildOpts := config.BuildOptions{
		RTLPath:    rtl,
		OutputDir:  values.String(FlagOutput),
		TopName:    values.String(FlagTop),
		SourceDirs: values.Strings(FlagSourceDir),
		Debugger:   values.Bool(FlagDebugger),
		Vendor:     cfg.Vendor,
		Includes:   cfg.ResolveIncludes(),
	}
	if buildOpts.OutputDir == "" {
		buildOpts.OutputDir = cfg.OutputDir()
	}

	p, err := newPipeline(ctx, opts, cfg, colored, recorder)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}

	if _, err := p.Run(ctx, buildOpts); err != nil {
		recorder.RecordTotal(string(build.StatusError))
		logger.Debug("Build failed.", "error", err)
		return &ExitError{Code: 1, Message: pipeline.UserMessage(err)}
	}
	recorder.RecordTotal(string(build.StatusDone))
	return nil
}

func newPipeline(ctx context.Context, opts Options, cfg *config.Config, colored bool, recorder *timing.Recorder) (*pipeline.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	contract, err := validator.New()
	if err != nil {
		return nil, err
	}
	registry := dut.NewRegistry(contract)

	engine, err := policy.New(ctx, policy.Options{Rules: cfg, PolicyDir: cfg.PolicyDir()})
	if err != nil {
		return nil, err
	}

	progress := timing.Tee(build.SinkFunc(func(e build.Event) {
		logger.Debug("Build stage.", "stage", e.Stage, "status", e.Status, "files", len(e.Files), "elapsed", e.Elapsed)
	}), recorder)
	builder := build.NewBuilder(render.NewRunner(opts.Out), registry, progress)
	builder.Bundle = extcheck.New()
	if tb := cfg.TestbenchTemplate(); tb != "" {
		builder.Testbench = build.Source{FS: os.DirFS(filepath.Dir(tb)), Path: filepath.Base(tb)}
	}
	if ext := cfg.ExtensionDir(); ext != "" {
		ext = filepath.Clean(ext)
		builder.Extension = build.Source{FS: os.DirFS(filepath.Dir(ext)), Path: filepath.Base(ext)}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}

	return &pipeline.Pipeline{
		Parser:   pipeline.FromExtractor(extractor.New()),
		Registry: registry,
		Checker:  engine,
		Builder:  builder,
		Out:      opts.Out,
		Color:    colored,
		Lookup:   opts.Lookup,
		WorkDir:  wd,
	}, nil
}
