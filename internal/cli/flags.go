package cli

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Kind is the value type of a flag.
type Kind int

const (
	KindBool Kind = iota
	KindString
	// KindStringArray collects every occurrence in order, duplicates kept.
	KindStringArray
)

// FlagSpec describes one command line flag.
type FlagSpec struct {
	Name      string
	Shorthand string
	Usage     string
	Kind      Kind
	Default   string
}

// Core flags read by the build.
const (
	FlagOutput    = "output"
	FlagTop       = "top"
	FlagSourceDir = "source_dir"
	FlagDebugger  = "debugger"
)

// CoreFlags returns the flags the build itself consumes.
func CoreFlags() []FlagSpec {
	return []FlagSpec{
		{Name: FlagOutput, Shorthand: "o", Kind: KindString, Usage: "Override the default output directory"},
		{Name: FlagTop, Shorthand: "t", Kind: KindString, Usage: "Specify the top-level Verilog module name if sim-build can't work it out"},
		{Name: FlagSourceDir, Shorthand: "s", Kind: KindStringArray, Usage: "Directories to look for include files in (the directory containing the top-level is already considered)"},
		{Name: FlagDebugger, Shorthand: "d", Kind: KindBool, Usage: "Enable the debugger"},
	}
}

// FlagSet is an ordered list of flag descriptors. Registration happens
// before parsing; Bind then merges everything into one pflag set.
type FlagSet struct {
	specs []FlagSpec
	names map[string]bool
	short map[string]bool
}

// NewFlagSet returns a set holding specs.
func NewFlagSet(specs ...FlagSpec) (*FlagSet, error) {
	s := &FlagSet{names: map[string]bool{}, short: map[string]bool{}}
	for _, spec := range specs {
		if err := s.Register(spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds a descriptor. Names and shorthands must be unique.
func (s *FlagSet) Register(spec FlagSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("flag without a name")
	}
	if s.names[spec.Name] {
		return fmt.Errorf("flag --%s registered twice", spec.Name)
	}
	if spec.Shorthand != "" {
		if len(spec.Shorthand) != 1 {
			return fmt.Errorf("flag --%s: shorthand %q must be one letter", spec.Name, spec.Shorthand)
		}
		if s.short[spec.Shorthand] {
			return fmt.Errorf("flag --%s: shorthand -%s already taken", spec.Name, spec.Shorthand)
		}
		s.short[spec.Shorthand] = true
	}
	s.names[spec.Name] = true
	s.specs = append(s.specs, spec)
	return nil
}

// reserve marks a flag defined elsewhere on the command so registrations
// cannot collide with it.
func (s *FlagSet) reserve(name, shorthand string) {
	s.names[name] = true
	if shorthand != "" {
		s.short[shorthand] = true
	}
}

// Specs returns the descriptors in registration order.
func (s *FlagSet) Specs() []FlagSpec {
	return append([]FlagSpec(nil), s.specs...)
}

// Values holds the parsed value of every bound flag.
type Values struct {
	bools   map[string]*bool
	strings map[string]*string
	arrays  map[string]*[]string
}

// Bind defines every descriptor on fs and returns the destinations the
// parsed values land in.
func (s *FlagSet) Bind(fs *pflag.FlagSet) *Values {
	v := &Values{
		bools:   map[string]*bool{},
		strings: map[string]*string{},
		arrays:  map[string]*[]string{},
	}
	for _, spec := range s.specs {
		switch spec.Kind {
		case KindBool:
			v.bools[spec.Name] = fs.BoolP(spec.Name, spec.Shorthand, spec.Default == "true", spec.Usage)
		case KindStringArray:
			var def []string
			if spec.Default != "" {
				def = []string{spec.Default}
			}
			v.arrays[spec.Name] = fs.StringArrayP(spec.Name, spec.Shorthand, def, spec.Usage)
		default:
			v.strings[spec.Name] = fs.StringP(spec.Name, spec.Shorthand, spec.Default, spec.Usage)
		}
	}
	return v
}

// Bool returns a bool flag value, false when unknown.
func (v *Values) Bool(name string) bool {
	if p, ok := v.bools[name]; ok {
		return *p
	}
	return false
}

// String returns a string flag value, "" when unknown.
func (v *Values) String(name string) string {
	if p, ok := v.strings[name]; ok {
		return *p
	}
	return ""
}

// Strings returns a repeatable flag's values in the order given.
func (v *Values) Strings(name string) []string {
	if p, ok := v.arrays[name]; ok {
		return append([]string(nil), (*p)...)
	}
	return nil
}

// Map returns every value keyed by flag name.
func (v *Values) Map() map[string]any {
	out := make(map[string]any, len(v.bools)+len(v.strings)+len(v.arrays))
	for k, p := range v.bools {
		out[k] = *p
	}
	for k, p := range v.strings {
		out[k] = *p
	}
	for k, p := range v.arrays {
		out[k] = append([]string(nil), (*p)...)
	}
	return out
}
