// Package pipeline runs a build end to end: load the RTL file, resolve the
// top-level module, check and promote it, render the artifacts and print the
// simulator instructions.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/robert-at-pretension-io/sim-build/internal/build"
	"github.com/robert-at-pretension-io/sim-build/internal/config"
	"github.com/robert-at-pretension-io/sim-build/internal/ctxlog"
	"github.com/robert-at-pretension-io/sim-build/internal/dut"
	"github.com/robert-at-pretension-io/sim-build/internal/extractor"
	"github.com/robert-at-pretension-io/sim-build/internal/instructions"
	"github.com/robert-at-pretension-io/sim-build/internal/policy"
	"github.com/robert-at-pretension-io/sim-build/internal/toplevel"
)

// Parser turns an RTL file into a syntax tree.
type Parser interface {
	Parse(ctx context.Context, path string) (toplevel.AST, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, path string) (toplevel.AST, error)

func (f ParserFunc) Parse(ctx context.Context, path string) (toplevel.AST, error) {
	return f(ctx, path)
}

// FromExtractor adapts an Extractor to Parser.
func FromExtractor(e *extractor.Extractor) Parser {
	return ParserFunc(func(ctx context.Context, path string) (toplevel.AST, error) {
		facts, err := e.Parse(ctx, path)
		if err != nil || facts == nil {
			return nil, err
		}
		return facts, nil
	})
}

// Checker runs advisory checks on the promoted model.
type Checker interface {
	Check(ctx context.Context, m *dut.Model) (*policy.Result, error)
}

// Builder renders the artifacts for a promoted model.
type Builder interface {
	Build(ctx context.Context, opts config.BuildOptions, model *dut.Model) (build.Artifacts, error)
}

// Pipeline holds the collaborators of a run. Checker may be nil.
type Pipeline struct {
	Parser   Parser
	Registry *dut.Registry
	Checker  Checker
	Builder  Builder
	Out      io.Writer
	Color    bool
	// Lookup reads the executable overrides, os.LookupEnv in production.
	Lookup  instructions.LookupFunc
	WorkDir string
}

// Result describes a successful run.
type Result struct {
	Module     *dut.Model
	Artifacts  build.Artifacts
	Violations []policy.Violation
}

// Run executes every stage in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, opts config.BuildOptions) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	ast, err := p.load(ctx, opts.RTLPath)
	if err != nil {
		return nil, err
	}

	mod, err := toplevel.Resolve(ast, opts.TopName)
	if err != nil {
		return nil, err
	}
	logger.Debug("Top-level module resolved.", "module", mod.Name, "ports", len(mod.Ports))

	model := p.Registry.Promote(mod, opts.RTLPath)
	result := &Result{Module: model}

	if p.Checker != nil {
		checks, err := p.Checker.Check(ctx, model)
		if err != nil {
			return nil, fmt.Errorf("pin checks: %w", err)
		}
		result.Violations = checks.Violations
		for _, v := range checks.Violations {
			fmt.Fprintf(p.Out, "%s: [%s] %s\n", v.Severity, v.Rule, v.Message)
		}
	}

	artifacts, err := p.Builder.Build(ctx, opts, model)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts

	in := instructions.Input{
		Top:        model.Name,
		RTLPath:    opts.RTLPath,
		OutputDir:  opts.OutputDir,
		WorkDir:    p.WorkDir,
		SourceDirs: opts.SourceDirs,
	}
	if p.Lookup != nil {
		in = instructions.EnvInput(in, p.Lookup)
	}
	if err := instructions.WriteSummary(p.Out, artifacts.TargetDefinition, p.Color); err != nil {
		return nil, err
	}
	if err := instructions.Write(p.Out, instructions.Generate(in), p.Color); err != nil {
		return nil, err
	}

	return result, nil
}

// CheckSource reports a missing RTL argument or file. Callers run it before
// loading anything else so these errors are never masked.
func CheckSource(path string) error {
	if path == "" {
		return &UsageError{Message: "You must supply a path to the top-level RTL file"}
	}
	if _, err := os.Stat(path); err != nil {
		return &FileNotFoundError{Path: path}
	}
	return nil
}

func (p *Pipeline) load(ctx context.Context, path string) (toplevel.AST, error) {
	if err := CheckSource(path); err != nil {
		return nil, err
	}

	ast, err := p.Parser.Parse(ctx, path)
	if err != nil || ast == nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return ast, nil
}
