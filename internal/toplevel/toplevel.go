// Package toplevel picks the design unit a build is generated for.
package toplevel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/sim-build/internal/extractor"
)

// ErrNoModulesFound is returned when the parsed file declares no modules.
var ErrNoModulesFound = errors.New("no module declarations found")

// AmbiguousError is returned when more than one candidate remains and no
// --top name selected one of them. Candidates are listed in the order the
// syntax tree reports them.
type AmbiguousError struct {
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("cannot determine the top-level module, candidates: %s", strings.Join(e.Candidates, ", "))
}

// AST is the view of a parsed RTL file needed for resolution.
type AST interface {
	// TopLevelModules returns modules not instantiated by any other module in the file.
	TopLevelModules() []extractor.Module
	// AllModules returns every module declared in the file.
	AllModules() []extractor.Module
}

// Candidates returns the modules considered for resolution: the top-level
// set, or every declared module when nothing is top-level.
func Candidates(ast AST) []extractor.Module {
	candidates := ast.TopLevelModules()
	if len(candidates) == 0 {
		candidates = ast.AllModules()
	}
	return candidates
}

// Resolve returns the single module to build for. name is the optional
// explicit choice; it is only consulted when there is more than one
// candidate and must match exactly (case-sensitive). A name that matches
// no candidate is reported the same way as no name at all.
func Resolve(ast AST, name string) (extractor.Module, error) {
	candidates := Candidates(ast)

	switch len(candidates) {
	case 0:
		return extractor.Module{}, ErrNoModulesFound
	case 1:
		return candidates[0], nil
	}

	if name != "" {
		for _, c := range candidates {
			if c.Name == name {
				return c, nil
			}
		}
	}

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return extractor.Module{}, &AmbiguousError{Candidates: names}
}
