// Package extcheck inspects a VPI extension bundle before it is copied into
// the output directory. It parses every C source and header with the
// tree-sitter C grammar and makes sure the entry points the simulators load
// are defined somewhere in the bundle.
package extcheck

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/robert-at-pretension-io/sim-build/internal/ctxlog"
)

// Required are the symbols every bundle must define. irun and iverilog load
// vlog_startup_routines; the VCS testbench calls $simbuild_vcs_init.
var Required = []string{"vlog_startup_routines", "simbuild_vcs_init"}

// SyntaxError marks the first unparsable spot in a file.
type SyntaxError struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Report is the result of checking one bundle.
type Report struct {
	Files []string
	// Symbols maps every file-scope definition to the file defining it.
	Symbols      map[string]string
	Missing      []string
	SyntaxErrors []SyntaxError
}

// MissingSymbolsError is returned when a bundle lacks required entry points.
type MissingSymbolsError struct {
	Dir     string
	Symbols []string
}

func (e *MissingSymbolsError) Error() string {
	return fmt.Sprintf("extension bundle %s does not define %s", e.Dir, strings.Join(e.Symbols, ", "))
}

// Checker parses C sources. It is not safe for concurrent use.
type Checker struct {
	parser   *sitter.Parser
	required []string
}

// New returns a Checker requiring the Required symbols.
func New() *Checker {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	return &Checker{parser: parser, required: Required}
}

// Inspect parses every .c and .h file under dir in fsys, in lexical order.
// Template files are skipped; they are only C after rendering.
func (k *Checker) Inspect(ctx context.Context, fsys fs.FS, dir string) (*Report, error) {
	report := &Report{Symbols: map[string]string{}}

	err := fs.WalkDir(fsys, dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(name) {
		case ".c", ".h":
		default:
			return nil
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		return k.inspectFile(ctx, name, content, report)
	})
	if err != nil {
		return nil, fmt.Errorf("inspecting extension bundle %s: %w", dir, err)
	}

	for _, sym := range k.required {
		if _, ok := report.Symbols[sym]; !ok {
			report.Missing = append(report.Missing, sym)
		}
	}
	return report, nil
}

func (k *Checker) inspectFile(ctx context.Context, name string, content []byte, report *Report) error {
	tree, err := k.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	defer tree.Close()

	report.Files = append(report.Files, name)
	root := tree.RootNode()
	if root.HasError() {
		report.SyntaxErrors = append(report.SyntaxErrors, SyntaxError{File: name, Line: firstErrorLine(root)})
	}
	collectDefinitions(root, content, func(sym string) {
		if _, seen := report.Symbols[sym]; !seen {
			report.Symbols[sym] = name
		}
	})
	return nil
}

// CheckBundle fails when a required symbol is missing. Syntax errors are
// logged and left to the C compiler.
func (k *Checker) CheckBundle(ctx context.Context, fsys fs.FS, dir string) error {
	report, err := k.Inspect(ctx, fsys, dir)
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	for _, se := range report.SyntaxErrors {
		logger.Warn("Extension source does not parse cleanly.", "file", se.File, "line", se.Line)
	}
	if len(report.Missing) > 0 {
		return &MissingSymbolsError{Dir: dir, Symbols: report.Missing}
	}
	logger.Debug("Extension bundle checked.", "dir", dir, "files", len(report.Files), "symbols", len(report.Symbols))
	return nil
}

// Defined returns the sorted symbols of a report.
func (r *Report) Defined() []string {
	out := make([]string, 0, len(r.Symbols))
	for sym := range r.Symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// collectDefinitions reports function definitions and initialised or
// tentative variable definitions at file scope, including those inside
// preprocessor conditionals. Prototypes are not definitions.
func collectDefinitions(node *sitter.Node, source []byte, found func(string)) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_definition":
		if id := findDescendant(node.ChildByFieldName("declarator"), "identifier"); id != nil {
			found(id.Content(source))
		}
		return
	case "declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.FieldNameForChild(i) != "declarator" {
				continue
			}
			decl := node.Child(i)
			if decl.Type() == "init_declarator" {
				decl = decl.ChildByFieldName("declarator")
			} else if isPrototype(decl) {
				continue
			}
			if id := findDescendant(decl, "identifier"); id != nil {
				found(id.Content(source))
			}
		}
		return
	case "compound_statement":
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectDefinitions(node.Child(i), source, found)
	}
}

// isPrototype reports whether a declarator without initialiser declares a
// function, "char *f(void)" included.
func isPrototype(decl *sitter.Node) bool {
	for decl != nil && decl.Type() == "pointer_declarator" {
		decl = decl.ChildByFieldName("declarator")
	}
	return decl != nil && decl.Type() == "function_declarator"
}

func findDescendant(node *sitter.Node, typ string) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == typ {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := findDescendant(node.Child(i), typ); found != nil {
			return found
		}
	}
	return nil
}

func firstErrorLine(node *sitter.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(node.StartPoint().Row) + 1
}
