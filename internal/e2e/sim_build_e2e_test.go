package e2e

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/sim-build/internal/dut"
)

const counter = `// 4-bit counter behind a wrapper that instantiates it.
module counter_top (
  input        clk,
  input        rst_n,
  output [3:0] q
);
  counter u_core (.clk(clk), .rst_n(rst_n), .q(q));
endmodule

module counter (
  input            clk,
  input            rst_n,
  output reg [3:0] q
);
  always @(posedge clk or negedge rst_n)
    if (!rst_n) q <= 4'd0; else q <= q + 1;
endmodule

module unused_monitor (input [63:0] bus);
endmodule
`

func TestSimBuildE2E(t *testing.T) {
	repoRoot := findRepoRoot(t)
	bin := buildSimBuildBinary(t, repoRoot)

	work := t.TempDir()
	home := t.TempDir()
	env := append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"SIM_BUILD_VCS=/opt/vcs/bin/vcs",
	)

	rtl := filepath.Join(work, "counter.v")
	if err := os.WriteFile(rtl, []byte(counter), 0o644); err != nil {
		t.Fatalf("write rtl: %v", err)
	}

	t.Run("ambiguous", func(t *testing.T) {
		stdout, code := runSimBuild(t, bin, work, env, rtl)
		if code != 1 {
			t.Fatalf("exit code = %d, want 1\n%s", code, stdout)
		}
		for _, want := range []string{"--top switch", "  counter_top", "  unused_monitor"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("output missing %q:\n%s", want, stdout)
			}
		}
	})

	t.Run("instantiated module is not a candidate", func(t *testing.T) {
		stdout, code := runSimBuild(t, bin, work, env, rtl, "--top", "counter", "-o", filepath.Join(work, "unused"))
		if code != 1 {
			t.Fatalf("exit code = %d, want 1\n%s", code, stdout)
		}
		if !strings.Contains(stdout, "  counter_top") || strings.Contains(stdout, "  counter\n") {
			t.Errorf("candidate list should name counter_top only among counters:\n%s", stdout)
		}
	})

	t.Run("resolved", func(t *testing.T) {
		out := filepath.Join(work, "sim")
		stdout, code := runSimBuild(t, bin, work, env, rtl, "--top", "counter_top", "-o", out, "-s", "rtl")
		if code != 0 {
			t.Fatalf("exit code = %d, want 0\n%s", code, stdout)
		}
		for _, want := range []string{
			"Testbench and VPI extension created!",
			"/opt/vcs/bin/vcs",
			"iverilog-vpi",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("output missing %q:\n%s", want, stdout)
			}
		}

		data, err := os.ReadFile(filepath.Join(out, dut.FileName("counter_top")))
		if err != nil {
			t.Fatalf("read target definition: %v", err)
		}
		var def dut.TargetDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			t.Fatalf("parse target definition: %v\n%s", err, data)
		}
		if def.Name != "counter_top" || len(def.Pins) != 3 {
			t.Fatalf("unexpected target definition: %+v", def)
		}
		if def.Pins[2].Name != "q" || def.Pins[2].Size != 4 {
			t.Errorf("q pin = %+v, want size 4", def.Pins[2])
		}

		tb, err := os.ReadFile(filepath.Join(out, "simbuild.v"))
		if err != nil {
			t.Fatalf("read testbench: %v", err)
		}
		if !strings.Contains(string(tb), "counter_top dut (") {
			t.Errorf("testbench does not instantiate counter_top:\n%s", tb)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		stdout, code := runSimBuild(t, bin, work, env, filepath.Join(work, "nope.v"))
		if code != 1 || !strings.Contains(stdout, "File does not exist") {
			t.Fatalf("exit code = %d, output:\n%s", code, stdout)
		}
	})
}

func runSimBuild(t *testing.T, bin, dir string, env []string, args ...string) (string, int) {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = env
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stdout.String(), 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("sim-build did not run: %v\nstderr:\n%s", err, stderr.String())
	}
	return stdout.String(), exitErr.ExitCode()
}

func buildSimBuildBinary(t *testing.T, repoRoot string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping binary build in short mode")
	}
	binDir := t.TempDir()
	binPath := filepath.Join(binDir, "sim-build")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/sim-build")
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build sim-build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		candidate := filepath.Join(dir, "cmd", "sim-build", "main.go")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
