package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func bundle() fstest.MapFS {
	return fstest.MapFS{
		"tb/top.v.tmpl":  {Data: []byte("module {{.top}}_tb;\nendmodule\n")},
		"ext/b.c":        {Data: []byte("int b;\n")},
		"ext/a.h":        {Data: []byte("#define A 1\n")},
		"ext/sub/c.tmpl": {Data: []byte("// {{.name}}\n")},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRenderTemplateFile(t *testing.T) {
	out := t.TempDir()
	r := NewRunner(nil)

	written, err := r.Render(context.Background(), Job{
		Action:  ActionRender,
		FS:      bundle(),
		Source:  "tb/top.v.tmpl",
		Output:  out,
		Quiet:   true,
		Context: map[string]any{"top": "chip"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(written) != 1 || written[0] != filepath.Join(out, "top.v") {
		t.Fatalf("written = %v", written)
	}
	if got := readFile(t, written[0]); got != "module chip_tb;\nendmodule\n" {
		t.Fatalf("rendered %q", got)
	}
	info, err := os.Stat(written[0])
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
}

func TestRenderDirectoryInLexicalOrder(t *testing.T) {
	out := t.TempDir()
	r := NewRunner(nil)

	written, err := r.Render(context.Background(), Job{
		Action:  ActionRender,
		FS:      bundle(),
		Source:  "ext",
		Output:  out,
		Quiet:   true,
		Context: map[string]any{"name": "nested"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{
		filepath.Join(out, "a.h"),
		filepath.Join(out, "b.c"),
		filepath.Join(out, "sub", "c"),
	}
	if len(written) != len(want) {
		t.Fatalf("written = %v", written)
	}
	for i := range want {
		if written[i] != want[i] {
			t.Fatalf("written = %v, want %v", written, want)
		}
	}
	if got := readFile(t, filepath.Join(out, "sub", "c")); got != "// nested\n" {
		t.Fatalf("rendered %q", got)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	out := t.TempDir()
	r := NewRunner(nil)
	job := Job{Action: ActionRender, FS: bundle(), Source: "ext", Output: out, Quiet: true, Context: map[string]any{"name": "x"}}

	first, err := r.Render(context.Background(), job)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	snapshot := map[string]string{}
	for _, p := range first {
		snapshot[p] = readFile(t, p)
	}

	second, err := r.Render(context.Background(), job)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("second run wrote %d files, first wrote %d", len(second), len(first))
	}
	for _, p := range second {
		if readFile(t, p) != snapshot[p] {
			t.Fatalf("%s changed between runs", p)
		}
	}
}

func TestRenderCheckForChangesSkipsIdentical(t *testing.T) {
	out := t.TempDir()
	r := NewRunner(nil)
	job := Job{Action: ActionRender, FS: bundle(), Source: "ext/a.h", Output: out, Quiet: true, CheckForChanges: true}

	if written, err := r.Render(context.Background(), job); err != nil || len(written) != 1 {
		t.Fatalf("first Render: %v %v", written, err)
	}
	written, err := r.Render(context.Background(), job)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("unchanged file rewritten: %v", written)
	}
}

func TestRenderNarratesUnlessQuiet(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(&buf)
	_, err := r.Render(context.Background(), Job{Action: ActionRender, FS: bundle(), Source: "ext/b.c", Output: t.TempDir()})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "created") || !strings.Contains(buf.String(), "b.c") {
		t.Fatalf("narration = %q", buf.String())
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewRunner(nil)
	ctx := context.Background()

	_, err := r.Render(ctx, Job{Action: "compile", FS: bundle(), Source: "ext", Output: t.TempDir()})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}

	if _, err := r.Render(ctx, Job{Action: ActionRender, FS: bundle(), Source: "missing", Output: t.TempDir()}); err == nil {
		t.Fatalf("expected error for missing source")
	}

	if _, err := r.Render(ctx, Job{Action: ActionRender, FS: bundle(), Source: "tb/top.v.tmpl", Output: t.TempDir()}); err == nil {
		t.Fatalf("expected error for template without context key")
	}
}
