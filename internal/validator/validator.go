package validator

// The validator is the contract guard for everything sim-build writes for
// other tools to read (target definitions) and everything users hand to it
// (configuration files). A mismatch is a hard error, never a warning.

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource []byte

const (
	// TargetDefinition is the schema path for exported target definitions.
	TargetDefinition = "#TargetDefinition"
	// Config is the schema path for configuration files.
	Config = "#Config"
)

// Validator validates data against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a new Validator with the embedded CUE schema
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// ValidateTargetDefinition checks an exported target definition.
func (v *Validator) ValidateTargetDefinition(data interface{}) error {
	return v.Validate(TargetDefinition, data)
}

// Errors lists every problem found in one document.
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "\n  ")
}

// ValidateConfig checks a decoded configuration. A failure is an Errors
// value so the user sees every bad field at once.
func (v *Validator) ValidateConfig(data interface{}) error {
	if errs := v.ValidationErrors(Config, data); len(errs) > 0 {
		return Errors(errs)
	}
	return nil
}

// Validate checks that data, marshaled to JSON, conforms to the schema
// definition at path.
func (v *Validator) Validate(path string, data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(path, jsonBytes)
}

// ValidateJSON validates JSON bytes directly against the schema
func (v *Validator) ValidateJSON(path string, jsonBytes []byte) error {
	unified, err := v.unify(path, jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s validation failed: %w", path, err)
	}
	return nil
}

// ValidationErrors returns every validation error for data, or nil when it
// conforms.
func (v *Validator) ValidationErrors(path string, data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	unified, err := v.unify(path, jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}

	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) unify(path string, jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(path))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", path, def.Err())
	}

	return def.Unify(dataValue), nil
}
