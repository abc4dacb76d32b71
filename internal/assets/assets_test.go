package assets

import (
	"io/fs"
	"testing"
)

func TestEmbeddedBundle(t *testing.T) {
	want := []string{
		TestbenchTemplate,
		"ext/bridge.c",
		"ext/bridge.h",
		"ext/client.c",
		"ext/client.h",
		"ext/defines.h",
		"ext/simbuild.c",
		"ext/simbuild.h",
	}
	for _, name := range want {
		if _, err := fs.Stat(FS(), name); err != nil {
			t.Fatalf("missing embedded asset %s: %v", name, err)
		}
	}

	entries, err := fs.ReadDir(FS(), ExtensionDir)
	if err != nil {
		t.Fatalf("read extension dir: %v", err)
	}
	if len(entries) != 7 {
		t.Fatalf("extension bundle has %d files, want 7", len(entries))
	}
}
