package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveIncludesKeepsPlainEntries(t *testing.T) {
	cfg := Config{
		Root: t.TempDir(),
		Testbench: TestbenchConfig{
			Includes: []string{"defs.vh", "timescale.vh", "defs.vh"},
		},
	}

	got := cfg.ResolveIncludes()
	want := []string{"defs.vh", "timescale.vh", "defs.vh"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestResolveIncludesExpandsGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "inc", "b.vh"), "")
	writeFile(t, filepath.Join(root, "inc", "a.vh"), "")
	writeFile(t, filepath.Join(root, "inc", "deep", "c.vh"), "")
	writeFile(t, filepath.Join(root, "inc", "notes.txt"), "")

	cfg := Config{
		Root: root,
		Testbench: TestbenchConfig{
			Includes: []string{"inc/*.vh", "inc/**/*.vh", "missing/*.vh"},
		},
	}

	got := cfg.ResolveIncludes()
	want := []string{
		filepath.Join(root, "inc", "a.vh"),
		filepath.Join(root, "inc", "b.vh"),
		filepath.Join(root, "inc", "deep", "c.vh"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
