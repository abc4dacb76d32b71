package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/sim-build/internal/extractor"
)

func sampleFacts() []extractor.FileFacts {
	return []extractor.FileFacts{
		{
			File: "rtl/top.v",
			Modules: []extractor.Module{
				{
					Name: "top",
					Line: 1,
					Ports: []extractor.Port{
						{Name: "clk", Direction: "input", Width: 1, Line: 1},
						{Name: "q", Direction: "output", Range: "[3:0]", MSB: 3, Width: 4, Line: 2},
					},
					Parameters: []string{"WIDTH"},
				},
				{
					Name:  "leaf",
					Line:  10,
					Ports: []extractor.Port{{Name: "d", Direction: "input", Width: 1, Line: 10}},
				},
			},
			Instances: []extractor.Instance{{ModuleRef: "leaf", Label: "u_leaf", Parent: "top", Line: 5}},
		},
	}
}

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	tables := BuildTables(sampleFacts())

	if len(tables.Files) != 1 || tables.Files[0].Modules != 2 {
		t.Fatalf("unexpected file rows %+v", tables.Files)
	}
	if len(tables.Modules) != 2 {
		t.Fatalf("expected 2 module rows, got %d", len(tables.Modules))
	}
	if len(tables.Ports) != 3 {
		t.Fatalf("expected 3 port rows, got %d", len(tables.Ports))
	}
	if len(tables.Parameters) != 1 || tables.Parameters[0].Module != "top" {
		t.Fatalf("unexpected parameter rows %+v", tables.Parameters)
	}
	if len(tables.Instances) != 1 || tables.Instances[0].Target != "leaf" {
		t.Fatalf("unexpected instance rows %+v", tables.Instances)
	}
	if len(tables.TopLevel) != 1 || tables.TopLevel[0].Module != "top" {
		t.Fatalf("expected top to be the only top-level module, got %+v", tables.TopLevel)
	}
}

func TestBuildTablesEmptyInput(t *testing.T) {
	tables := BuildTables(nil)
	if tables.Modules == nil || tables.Ports == nil || tables.TopLevel == nil {
		t.Fatalf("relations must be empty slices, not nil")
	}
}
