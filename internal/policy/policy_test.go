package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-at-pretension-io/sim-build/internal/config"
	"github.com/robert-at-pretension-io/sim-build/internal/dut"
)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("policy engine: %v", err)
	}
	return e
}

func collectRules(result *Result) []string {
	var rules []string
	for _, v := range result.Violations {
		rules = append(rules, v.Rule+":"+v.Pin)
	}
	return rules
}

func hasRule(result *Result, rule, pin string) bool {
	for _, v := range result.Violations {
		if v.Rule == rule && v.Pin == pin {
			return true
		}
	}
	return false
}

func TestCleanModuleHasNoViolations(t *testing.T) {
	e := newEngine(t, Options{})
	result, err := e.Check(context.Background(), &dut.Model{
		Name: "chip",
		Pins: []dut.Pin{
			{Name: "clk", Direction: "input", Size: 1},
			{Name: "data", Direction: "inout", Size: 32},
		},
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(result.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", collectRules(result))
	}
}

func TestBuiltinRules(t *testing.T) {
	tests := []struct {
		name string
		pins []dut.Pin
		rule string
		pin  string
		sev  string
	}{
		{
			name: "no_pins",
			pins: nil,
			rule: "no_pins",
			sev:  SeverityWarning,
		},
		{
			name: "reserved",
			pins: []dut.Pin{{Name: "debug", Direction: "input", Size: 1}},
			rule: "reserved_pin_name",
			pin:  "debug",
			sev:  SeverityWarning,
		},
		{
			name: "wide",
			pins: []dut.Pin{{Name: "bus", Direction: "output", Size: 128}},
			rule: "wide_bus",
			pin:  "bus",
			sev:  SeverityInfo,
		},
		{
			name: "unsized",
			pins: []dut.Pin{{Name: "addr", Direction: "input", Size: 0}},
			rule: "unsized_pin",
			pin:  "addr",
			sev:  SeverityInfo,
		},
	}

	e := newEngine(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Check(context.Background(), &dut.Model{Name: "chip", Pins: tt.pins})
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if len(result.Violations) != 1 {
				t.Fatalf("expected one violation, got %v", collectRules(result))
			}
			v := result.Violations[0]
			if v.Rule != tt.rule || v.Pin != tt.pin || v.Severity != tt.sev {
				t.Fatalf("unexpected violation %+v", v)
			}
			if v.Module != "chip" || v.Message == "" {
				t.Fatalf("violation lacks context: %+v", v)
			}
		})
	}
}

func TestRuleOverrides(t *testing.T) {
	model := &dut.Model{
		Name: "chip",
		Pins: []dut.Pin{
			{Name: "dut", Direction: "input", Size: 1},
			{Name: "wide", Direction: "output", Size: 65},
		},
	}

	cfg := config.DefaultConfig()
	cfg.Checks.Rules = map[string]string{
		"reserved_pin_name": SeverityOff,
		"wide_bus":          SeverityWarning,
	}
	e := newEngine(t, Options{Rules: cfg})
	result, err := e.Check(context.Background(), model)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if hasRule(result, "reserved_pin_name", "dut") {
		t.Fatalf("disabled rule still reported: %v", collectRules(result))
	}
	if !hasRule(result, "wide_bus", "wide") {
		t.Fatalf("expected wide_bus, got %v", collectRules(result))
	}
	if result.Summary.Warnings != 1 || result.Summary.Info != 0 || result.Summary.TotalViolations != 1 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
}

func TestViolationsAreOrdered(t *testing.T) {
	e := newEngine(t, Options{})
	result, err := e.Check(context.Background(), &dut.Model{
		Name: "chip",
		Pins: []dut.Pin{
			{Name: "simbuild", Direction: "input", Size: 1},
			{Name: "b", Direction: "input", Size: 0},
			{Name: "a", Direction: "input", Size: 0},
		},
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	got := collectRules(result)
	want := []string{"reserved_pin_name:simbuild", "unsized_pin:a", "unsized_pin:b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPolicyDirAddsRules(t *testing.T) {
	dir := t.TempDir()
	extra := `package simbuild.pins

import rego.v1

violations contains v if {
	some pin in input.module.pins
	pin.name == "rst"
	v := {"rule": "active_high_reset", "severity": "info", "pin": pin.name, "message": "prefer rst_n"}
}
`
	if err := os.WriteFile(filepath.Join(dir, "reset.rego"), []byte(extra), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	e := newEngine(t, Options{PolicyDir: dir})
	result, err := e.Check(context.Background(), &dut.Model{
		Name: "chip",
		Pins: []dut.Pin{{Name: "rst", Direction: "input", Size: 1}},
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !hasRule(result, "active_high_reset", "rst") {
		t.Fatalf("expected custom rule, got %v", collectRules(result))
	}
}

func TestPolicyDirWithoutFiles(t *testing.T) {
	if _, err := New(context.Background(), Options{PolicyDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for empty policy dir")
	}
}
