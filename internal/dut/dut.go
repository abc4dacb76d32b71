// Package dut holds the design-under-test pin model built from the resolved
// top-level module and exports it as a target definition file.
package dut

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/sim-build/internal/ctxlog"
	"github.com/robert-at-pretension-io/sim-build/internal/extractor"
)

// Generator is recorded in every exported target definition.
const Generator = "sim-build"

// Pin is one DUT pin (a bus counts as one pin of Size bits).
type Pin struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Size      int    `json:"size"`
}

// Model is the in-memory design under test.
type Model struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Pins   []Pin  `json:"pins"`
}

// TargetDefinition is the exported form of a Model.
type TargetDefinition struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Generator string `json:"generator"`
	Pins      []Pin  `json:"pins"`
}

// Contract validates a target definition before it is written.
type Contract interface {
	ValidateTargetDefinition(data interface{}) error
}

// Registry owns the DUT models of one process. Promoting the same module
// twice returns the model built the first time.
type Registry struct {
	mu       sync.Mutex
	models   map[string]*Model
	contract Contract
}

// NewRegistry returns an empty registry. contract may be nil to skip
// validation.
func NewRegistry(contract Contract) *Registry {
	return &Registry{
		models:   make(map[string]*Model),
		contract: contract,
	}
}

// Promote builds the DUT model for mod, read from source.
func (r *Registry) Promote(mod extractor.Module, source string) *Model {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[mod.Name]; ok {
		return m
	}

	m := &Model{
		Name:   mod.Name,
		Source: source,
		Pins:   make([]Pin, 0, len(mod.Ports)),
	}
	for _, p := range mod.Ports {
		dir := p.Direction
		if dir == "" {
			// declared in the header but never given a direction
			dir = "inout"
		}
		m.Pins = append(m.Pins, Pin{Name: p.Name, Direction: dir, Size: p.Width})
	}
	r.models[mod.Name] = m
	return m
}

// Model returns a promoted model.
func (r *Registry) Model(name string) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[name]
	return m, ok
}

// Len reports how many models have been promoted.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}

// FileName is the target definition file name for a module.
func FileName(name string) string {
	return name + ".json"
}

// Export writes the target definition of a promoted module into dir and
// returns the written path.
func (r *Registry) Export(ctx context.Context, name, dir string) (string, error) {
	m, ok := r.Model(name)
	if !ok {
		return "", fmt.Errorf("export %s: module has not been promoted", name)
	}

	def := TargetDefinition{
		Name:      m.Name,
		Source:    m.Source,
		Generator: Generator,
		Pins:      m.Pins,
	}
	if r.contract != nil {
		if err := r.contract.ValidateTargetDefinition(def); err != nil {
			return "", fmt.Errorf("export %s: %w", name, err)
		}
	}

	path := filepath.Join(dir, FileName(name))
	if err := writeJSONAtomic(path, def); err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	ctxlog.FromContext(ctx).Debug("Target definition exported.", "module", name, "path", path, "pins", len(def.Pins))
	return path, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal target definition: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
