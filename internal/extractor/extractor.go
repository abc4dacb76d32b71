package extractor

import (
	"context"
	"fmt"
	"os"
)

// Extractor parses Verilog files and extracts module facts with a
// comment-aware scanner. It holds no state and is safe to share.
type Extractor struct{}

// FileFacts contains everything extracted from a single Verilog file.
// It is the syntax tree handed to top-level resolution.
type FileFacts struct {
	File      string     `json:"file"`
	Modules   []Module   `json:"modules"`
	Instances []Instance `json:"instances"`
}

// Module represents a module declaration
type Module struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Ports      []Port   `json:"ports,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

// Port represents a module port. MSB/LSB are only meaningful when Range is
// set and both bounds are integer literals; Width is 0 when the range could
// not be evaluated (macros, parameters).
type Port struct {
	Name      string `json:"name"`
	Direction string `json:"direction"` // input, output, inout
	Range     string `json:"range,omitempty"`
	MSB       int    `json:"msb"`
	LSB       int    `json:"lsb"`
	Width     int    `json:"width"`
	Line      int    `json:"line"`
}

// Instance represents a module instantiation inside another module
type Instance struct {
	ModuleRef string `json:"module_ref"`
	Label     string `json:"label"`
	Parent    string `json:"parent"`
	Line      int    `json:"line"`
}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses a Verilog file and extracts facts
func (e *Extractor) Extract(filePath string) (FileFacts, error) {
	return e.ExtractContext(context.Background(), filePath)
}

// ExtractContext is Extract with a caller supplied context for the parser.
func (e *Extractor) ExtractContext(ctx context.Context, filePath string) (FileFacts, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return FileFacts{File: filePath}, fmt.Errorf("reading file: %w", err)
	}
	return e.ExtractSource(ctx, filePath, content)
}

// ExtractSource extracts facts from already loaded content.
func (e *Extractor) ExtractSource(ctx context.Context, filePath string, content []byte) (FileFacts, error) {
	if err := ctx.Err(); err != nil {
		return FileFacts{File: filePath}, err
	}
	return scanSource(filePath, content)
}

// Parse implements the pipeline parser contract.
func (e *Extractor) Parse(ctx context.Context, filePath string) (*FileFacts, error) {
	facts, err := e.ExtractContext(ctx, filePath)
	if err != nil {
		return nil, err
	}
	return &facts, nil
}

// TopLevelModules returns the modules that no other module in the file
// instantiates, in declaration order.
func (f *FileFacts) TopLevelModules() []Module {
	instantiated := make(map[string]bool, len(f.Instances))
	for _, inst := range f.Instances {
		if inst.ModuleRef == inst.Parent {
			continue
		}
		instantiated[inst.ModuleRef] = true
	}

	var out []Module
	for _, mod := range f.Modules {
		if !instantiated[mod.Name] {
			out = append(out, mod)
		}
	}
	return out
}

// AllModules returns every module declared in the file, in declaration order.
func (f *FileFacts) AllModules() []Module {
	return f.Modules
}

// Module looks up a declared module by name.
func (f *FileFacts) Module(name string) (Module, bool) {
	for _, mod := range f.Modules {
		if mod.Name == name {
			return mod, true
		}
	}
	return Module{}, false
}
