package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/sim-build/internal/extractor"
)

// Tables is the relational view of one or more parsed RTL files.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Files      []FileRow      `json:"files"`
	Modules    []ModuleRow    `json:"modules"`
	Ports      []PortRow      `json:"ports"`
	Parameters []ParameterRow `json:"parameters"`
	Instances  []InstanceRow  `json:"instances"`
	TopLevel   []TopLevelRow  `json:"top_level"`
}

type FileRow struct {
	Path    string `json:"path"`
	Modules int    `json:"modules"`
}

type ModuleRow struct {
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

type PortRow struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Range     string `json:"range"`
	Width     int    `json:"width"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type ParameterRow struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	File   string `json:"file"`
}

type InstanceRow struct {
	Label  string `json:"label"`
	Target string `json:"target"`
	Parent string `json:"parent"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

// TopLevelRow marks a module no other module in its file instantiates.
type TopLevelRow struct {
	Module string `json:"module"`
	File   string `json:"file"`
}

// BuildTables flattens extractor output into relations. Rows keep the file
// and declaration order; files are sorted by path.
func BuildTables(facts []extractor.FileFacts) Tables {
	tables := emptyTables()

	sorted := append([]extractor.FileFacts(nil), facts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	seenFiles := make(map[string]bool)
	for i := range sorted {
		f := &sorted[i]
		if !seenFiles[f.File] {
			seenFiles[f.File] = true
			tables.Files = append(tables.Files, FileRow{Path: f.File, Modules: len(f.Modules)})
		}

		for _, m := range f.Modules {
			tables.Modules = append(tables.Modules, ModuleRow{Name: m.Name, File: f.File, Line: m.Line})
			for _, p := range m.Ports {
				tables.Ports = append(tables.Ports, PortRow{
					Module:    m.Name,
					Name:      p.Name,
					Direction: p.Direction,
					Range:     p.Range,
					Width:     p.Width,
					File:      f.File,
					Line:      p.Line,
				})
			}
			for _, param := range m.Parameters {
				tables.Parameters = append(tables.Parameters, ParameterRow{Module: m.Name, Name: param, File: f.File})
			}
		}

		for _, inst := range f.Instances {
			tables.Instances = append(tables.Instances, InstanceRow{
				Label:  inst.Label,
				Target: inst.ModuleRef,
				Parent: inst.Parent,
				File:   f.File,
				Line:   inst.Line,
			})
		}

		for _, m := range f.TopLevelModules() {
			tables.TopLevel = append(tables.TopLevel, TopLevelRow{Module: m.Name, File: f.File})
		}
	}

	return tables
}

func emptyTables() Tables {
	return Tables{
		Files:      []FileRow{},
		Modules:    []ModuleRow{},
		Ports:      []PortRow{},
		Parameters: []ParameterRow{},
		Instances:  []InstanceRow{},
		TopLevel:   []TopLevelRow{},
	}
}
