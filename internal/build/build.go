// Package build renders the testbench wrapper and the VPI extension bundle
// for a resolved top-level module and exports its target definition.
package build

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/robert-at-pretension-io/sim-build/internal/assets"
	"github.com/robert-at-pretension-io/sim-build/internal/config"
	"github.com/robert-at-pretension-io/sim-build/internal/ctxlog"
	"github.com/robert-at-pretension-io/sim-build/internal/dut"
	"github.com/robert-at-pretension-io/sim-build/internal/render"
)

// Renderer runs render jobs and reports the files they wrote.
type Renderer interface {
	Render(ctx context.Context, job render.Job) ([]string, error)
}

// Exporter writes the target definition of a promoted module into dir.
type Exporter interface {
	Export(ctx context.Context, name, dir string) (string, error)
}

// BundleChecker vets an extension bundle before it is rendered.
type BundleChecker interface {
	CheckBundle(ctx context.Context, fsys fs.FS, dir string) error
}

// Source locates a template file or directory inside a filesystem.
type Source struct {
	FS   fs.FS
	Path string
}

// Builder sequences the three build steps. Each step is fatal on failure and
// nothing already written is removed.
type Builder struct {
	Renderer Renderer
	Exporter Exporter
	Progress ProgressSink
	// Bundle, when set, must accept the extension source before it is
	// rendered.
	Bundle    BundleChecker
	Testbench Source
	Extension Source
}

// NewBuilder returns a Builder using the embedded testbench and extension
// sources.
func NewBuilder(r Renderer, e Exporter, progress ProgressSink) *Builder {
	return &Builder{
		Renderer:  r,
		Exporter:  e,
		Progress:  progress,
		Testbench: Source{FS: assets.FS(), Path: assets.TestbenchTemplate},
		Extension: Source{FS: assets.FS(), Path: assets.ExtensionDir},
	}
}

// TestbenchPin is a DUT pin as the testbench template sees it.
type TestbenchPin struct {
	Name      string
	Direction string
	Size      int
	// Range is the Verilog vector declaration including a trailing space,
	// empty for scalar and unsized pins.
	Range string
}

// TemplateContext builds the context the testbench template executes with.
func TemplateContext(opts config.BuildOptions, model *dut.Model) map[string]any {
	pins := make([]TestbenchPin, 0, len(model.Pins))
	for _, p := range model.Pins {
		tp := TestbenchPin{Name: p.Name, Direction: p.Direction, Size: p.Size}
		if p.Size > 1 {
			tp.Range = fmt.Sprintf("[%d:0] ", p.Size-1)
		}
		pins = append(pins, tp)
	}
	includes := opts.Includes
	if includes == nil {
		includes = []string{}
	}
	sourceDirs := opts.SourceDirs
	if sourceDirs == nil {
		sourceDirs = []string{}
	}
	return map[string]any{
		"vendor":      opts.Vendor,
		"top":         model.Name,
		"includes":    includes,
		"source_dirs": sourceDirs,
		"debugger":    opts.Debugger,
		"pins":        pins,
	}
}

// Build produces the artifacts for model in opts.OutputDir.
func (b *Builder) Build(ctx context.Context, opts config.BuildOptions, model *dut.Model) (Artifacts, error) {
	logger := ctxlog.FromContext(ctx)
	var artifacts Artifacts

	written, err := b.step(ctx, StageTestbench, func() ([]string, error) {
		return b.Renderer.Render(ctx, render.Job{
			Action:          render.ActionRender,
			FS:              b.Testbench.FS,
			Source:          b.Testbench.Path,
			Output:          opts.OutputDir,
			CheckForChanges: false,
			Quiet:           true,
			Context:         TemplateContext(opts, model),
		})
	})
	if err != nil {
		return artifacts, fmt.Errorf("rendering testbench: %w", err)
	}
	if len(written) > 0 {
		artifacts.Testbench = written[0]
	}

	written, err = b.step(ctx, StageExtension, func() ([]string, error) {
		if b.Bundle != nil {
			if err := b.Bundle.CheckBundle(ctx, b.Extension.FS, b.Extension.Path); err != nil {
				return nil, err
			}
		}
		return b.Renderer.Render(ctx, render.Job{
			Action:          render.ActionRender,
			FS:              b.Extension.FS,
			Source:          b.Extension.Path,
			Output:          opts.OutputDir,
			CheckForChanges: false,
			Quiet:           true,
		})
	})
	if err != nil {
		return artifacts, fmt.Errorf("rendering extension: %w", err)
	}
	artifacts.Extension = written

	written, err = b.step(ctx, StageExport, func() ([]string, error) {
		path, err := b.Exporter.Export(ctx, model.Name, opts.OutputDir)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	})
	if err != nil {
		return artifacts, fmt.Errorf("exporting %s: %w", model.Name, err)
	}
	artifacts.TargetDefinition = written[0]

	logger.Debug("Build complete.", "module", model.Name, "output", opts.OutputDir, "files", len(artifacts.All()))
	return artifacts, nil
}

func (b *Builder) step(ctx context.Context, stage Stage, fn func() ([]string, error)) ([]string, error) {
	start := time.Now()
	b.emit(Event{Stage: stage, Status: StatusWorking})
	ctxlog.FromContext(ctx).Debug("Build stage started.", "stage", stage)

	files, err := fn()
	elapsed := time.Since(start)
	if err != nil {
		b.emit(Event{Stage: stage, Status: StatusError, Err: err, Elapsed: elapsed})
		return nil, err
	}
	b.emit(Event{Stage: stage, Status: StatusDone, Files: files, Elapsed: elapsed})
	return files, nil
}

func (b *Builder) emit(evt Event) {
	if b.Progress == nil {
		return
	}
	b.Progress.OnEvent(evt)
}
