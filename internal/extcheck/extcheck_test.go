package extcheck

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/robert-at-pretension-io/sim-build/internal/assets"
)

func TestEmbeddedBundleDefinesEntryPoints(t *testing.T) {
	report, err := New().Inspect(context.Background(), assets.FS(), assets.ExtensionDir)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(report.Missing) != 0 {
		t.Fatalf("embedded bundle misses %v (defines %v)", report.Missing, report.Defined())
	}
	if len(report.Files) != 7 {
		t.Fatalf("files = %v, want the 7 bundle files", report.Files)
	}

	want := map[string]string{
		"vlog_startup_routines": "ext/simbuild.c",
		"simbuild_vcs_init":     "ext/simbuild.c",
		"get_arg":               "ext/simbuild.c",
		"bridge_init":           "ext/bridge.c",
		"client_connect":        "ext/client.c",
	}
	for sym, file := range want {
		if got := report.Symbols[sym]; got != file {
			t.Errorf("%s defined in %q, want %q", sym, got, file)
		}
	}
}

func TestPrototypesAreNotDefinitions(t *testing.T) {
	fsys := fstest.MapFS{
		"ext/only.h": {Data: []byte(`
PLI_INT32 simbuild_vcs_init(PLI_BYTE8 *user_dat);
char *get_arg(char *arg);
extern void (*vlog_startup_routines[])(void);
`)},
		"ext/tb.c.tmpl": {Data: []byte("void (*vlog_startup_routines[])(void) = { {{.init}} };\n")},
	}

	report, err := New().Inspect(context.Background(), fsys, "ext")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if strings.Join(report.Files, ",") != "ext/only.h" {
		t.Fatalf("files = %v, templates must be skipped", report.Files)
	}
	if strings.Join(report.Missing, ",") != "vlog_startup_routines,simbuild_vcs_init" {
		t.Fatalf("missing = %v (defines %v)", report.Missing, report.Defined())
	}
	if _, ok := report.Symbols["get_arg"]; ok {
		t.Fatalf("prototype counted as a definition: %v", report.Defined())
	}
}

func TestDefinitionsInsidePreprocessorBranches(t *testing.T) {
	fsys := fstest.MapFS{
		"ext/boot.c": {Data: []byte(`#include "vpi_user.h"
static void init(void) {
  int local = 0;
  (void)local;
}
#ifdef SIMBUILD_VCS
PLI_INT32 simbuild_vcs_init(PLI_BYTE8 * user_dat) {
  return 0;
}
#else
void (*vlog_startup_routines[])(void) = { init, 0 };
#endif
int counter;
`)},
	}

	report, err := New().Inspect(context.Background(), fsys, "ext")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(report.Missing) != 0 {
		t.Fatalf("missing = %v (defines %v)", report.Missing, report.Defined())
	}
	if got := strings.Join(report.Defined(), ","); got != "counter,init,simbuild_vcs_init,vlog_startup_routines" {
		t.Fatalf("defined = %s", got)
	}
}

func TestCheckBundleReportsMissingSymbols(t *testing.T) {
	fsys := fstest.MapFS{
		"ext/empty.c": {Data: []byte("int unrelated = 1;\n")},
	}

	err := New().CheckBundle(context.Background(), fsys, "ext")
	var missing *MissingSymbolsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSymbolsError, got %v", err)
	}
	if len(missing.Symbols) != 2 || !strings.Contains(err.Error(), "vlog_startup_routines") {
		t.Fatalf("unexpected error %v", err)
	}

	if err := New().CheckBundle(context.Background(), assets.FS(), assets.ExtensionDir); err != nil {
		t.Fatalf("embedded bundle rejected: %v", err)
	}
}

func TestSyntaxErrorsAreReported(t *testing.T) {
	fsys := fstest.MapFS{
		"ext/broken.c": {Data: []byte("int ok = 1;\nint broken( {\n")},
	}

	report, err := New().Inspect(context.Background(), fsys, "ext")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(report.SyntaxErrors) != 1 {
		t.Fatalf("syntax errors = %+v, want one", report.SyntaxErrors)
	}
	if se := report.SyntaxErrors[0]; se.File != "ext/broken.c" || se.Line != 2 {
		t.Fatalf("syntax error = %+v, want ext/broken.c line 2", se)
	}
}

func TestInspectMissingDir(t *testing.T) {
	if _, err := New().Inspect(context.Background(), fstest.MapFS{}, "ext"); err == nil {
		t.Fatalf("expected error for missing bundle directory")
	}
}
