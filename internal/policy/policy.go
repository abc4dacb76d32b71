// Package policy evaluates Rego pin checks against the DUT model before it
// is exported. Violations are advisory and never stop a build.
package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/sim-build/internal/ctxlog"
	"github.com/robert-at-pretension-io/sim-build/internal/dut"
)

//go:embed pins.rego
var builtinPolicy string

const violationsQuery = "data.simbuild.pins.violations"

// Severities a rule can be configured to.
const (
	SeverityOff     = "off"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// RuleConfig overrides rule severities. *config.Config satisfies it.
type RuleConfig interface {
	GetRuleSeverity(rule string, defaultSeverity string) string
	IsRuleEnabled(rule string) bool
}

// Engine evaluates the pin policies.
type Engine struct {
	query rego.PreparedEvalQuery
	rules RuleConfig
}

// Options configures an Engine. Rules, when set, decides the severity
// reported for each rule; a rule set to "off" is dropped. PolicyDir, when
// set, must contain at least one .rego file declaring more rules in package
// simbuild.pins.
type Options struct {
	Rules     RuleConfig
	PolicyDir string
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Module   string `json:"module"`
	Pin      string `json:"pin,omitempty"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation
	Summary    Summary
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the data structure passed to OPA
type Input struct {
	Module Module `json:"module"`
}

type Module struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Pins   []Pin  `json:"pins"`
}

type Pin struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Size      int    `json:"size"`
}

// New creates a policy engine from the built-in rules plus any rules found
// in opts.PolicyDir.
func New(ctx context.Context, opts Options) (*Engine, error) {
	modules := []func(*rego.Rego){rego.Module("pins.rego", builtinPolicy)}

	if opts.PolicyDir != "" {
		files, err := filepath.Glob(filepath.Join(opts.PolicyDir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding policy files: %w", err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no policy files found in %s", opts.PolicyDir)
		}
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			modules = append(modules, rego.Module(f, string(content)))
		}
	}

	query, err := rego.New(append(modules, rego.Query(violationsQuery))...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}

	return &Engine{query: query, rules: opts.Rules}, nil
}

// InputFor converts a DUT model into policy input.
func InputFor(m *dut.Model) Input {
	in := Input{Module: Module{Name: m.Name, Source: m.Source, Pins: make([]Pin, 0, len(m.Pins))}}
	for _, p := range m.Pins {
		in.Module.Pins = append(in.Module.Pins, Pin{Name: p.Name, Direction: p.Direction, Size: p.Size})
	}
	return in
}

// Check evaluates the policies against a DUT model.
func (e *Engine) Check(ctx context.Context, m *dut.Model) (*Result, error) {
	return e.Evaluate(ctx, InputFor(m))
}

// Evaluate runs the policies against the input data
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	result := &Result{}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, _ := rs[0].Expressions[0].Value.([]interface{})
		for _, v := range violations {
			vmap, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			violation := Violation{
				Rule:     getString(vmap, "rule"),
				Severity: getString(vmap, "severity"),
				Module:   input.Module.Name,
				Pin:      getString(vmap, "pin"),
				Message:  getString(vmap, "message"),
			}
			if e.rules != nil {
				if !e.rules.IsRuleEnabled(violation.Rule) {
					continue
				}
				violation.Severity = e.rules.GetRuleSeverity(violation.Rule, violation.Severity)
			}
			if violation.Severity == SeverityOff {
				continue
			}
			result.Violations = append(result.Violations, violation)
		}
	}

	sort.SliceStable(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Pin < b.Pin
	})

	for _, v := range result.Violations {
		result.Summary.TotalViolations++
		switch v.Severity {
		case SeverityWarning:
			result.Summary.Warnings++
		case SeverityInfo:
			result.Summary.Info++
		}
	}

	ctxlog.FromContext(ctx).Debug("Pin checks evaluated.", "module", input.Module.Name, "violations", result.Summary.TotalViolations)
	return result, nil
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
