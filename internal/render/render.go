// Package render executes render jobs: it expands text/template sources and
// copies plain files from an fs.FS into an output directory.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/robert-at-pretension-io/sim-build/internal/ctxlog"
)

// Action selects what a job does with its source.
type Action string

// ActionRender renders templates and copies every other file.
const ActionRender Action = "render"

// TemplateExt marks a source file that is executed rather than copied.
const TemplateExt = ".tmpl"

// Job describes one render request.
type Job struct {
	Action Action
	// FS resolves Source. Source may name a file or a directory.
	FS     fs.FS
	Source string
	Output string
	// CheckForChanges leaves files whose content would not change untouched.
	CheckForChanges bool
	// Quiet suppresses the per-file narration on the runner's writer.
	Quiet   bool
	Context map[string]any
}

// ErrUnknownAction is returned for jobs whose Action is not supported.
var ErrUnknownAction = errors.New("unknown render action")

// Runner renders jobs onto the local filesystem.
type Runner struct {
	out io.Writer
}

// NewRunner returns a Runner that narrates non-quiet jobs to out.
func NewRunner(out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{out: out}
}

// Render runs job and returns the paths it wrote, in lexical source order.
func (r *Runner) Render(ctx context.Context, job Job) ([]string, error) {
	if job.Action != ActionRender {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, job.Action)
	}
	if job.FS == nil {
		return nil, fmt.Errorf("render %s: no source filesystem", job.Source)
	}
	if job.Output == "" {
		return nil, fmt.Errorf("render %s: no output directory", job.Source)
	}

	source := path.Clean(job.Source)
	info, err := fs.Stat(job.FS, source)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", job.Source, err)
	}

	if err := os.MkdirAll(job.Output, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	var written []string
	emit := func(name, rel string) error {
		out, changed, err := r.renderFile(job, name, rel)
		if err != nil {
			return err
		}
		if changed {
			written = append(written, out)
		}
		return nil
	}

	if !info.IsDir() {
		if err := emit(source, path.Base(source)); err != nil {
			return written, err
		}
	} else {
		// WalkDir visits entries in lexical order.
		err = fs.WalkDir(job.FS, source, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(name, source), "/")
			if source == "." {
				rel = name
			}
			return emit(name, rel)
		})
		if err != nil {
			return written, fmt.Errorf("render %s: %w", job.Source, err)
		}
	}

	ctxlog.FromContext(ctx).Debug("Render job finished.", "source", job.Source, "output", job.Output, "files", len(written))
	return written, nil
}

func (r *Runner) renderFile(job Job, name, rel string) (string, bool, error) {
	content, err := fs.ReadFile(job.FS, name)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", name, err)
	}

	if strings.HasSuffix(rel, TemplateExt) {
		rel = strings.TrimSuffix(rel, TemplateExt)
		tmpl, err := template.New(path.Base(name)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return "", false, fmt.Errorf("parsing template %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, job.Context); err != nil {
			return "", false, fmt.Errorf("executing template %s: %w", name, err)
		}
		content = buf.Bytes()
	}

	out := filepath.Join(job.Output, filepath.FromSlash(rel))
	if job.CheckForChanges {
		if existing, err := os.ReadFile(out); err == nil && bytes.Equal(existing, content) {
			return out, false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", false, fmt.Errorf("output dir: %w", err)
	}
	if err := os.WriteFile(out, content, 0o644); err != nil {
		return "", false, fmt.Errorf("writing %s: %w", out, err)
	}
	if !job.Quiet {
		fmt.Fprintf(r.out, "  created %s\n", out)
	}
	return out, true, nil
}
