package facts

import "testing"

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Ports: []PortRow{
			{Module: "top", Name: "clk", Direction: "input", Width: 1, File: "top.v", Line: 1},
			{Module: "top", Name: "q", Direction: "output", Range: "[3:0]", Width: 4, File: "top.v", Line: 2},
		},
	}
	next := Tables{
		Ports: []PortRow{
			// moved down a line only
			{Module: "top", Name: "clk", Direction: "input", Width: 1, File: "top.v", Line: 3},
			{Module: "top", Name: "q", Direction: "output", Range: "[7:0]", Width: 8, File: "top.v", Line: 4},
		},
	}

	delta := ComputeDelta(prev, next)

	if !delta.Changed() {
		t.Fatalf("expected a change")
	}
	if len(delta.Added.Ports) != 1 || delta.Added.Ports[0].Width != 8 {
		t.Fatalf("expected widened q added, got %+v", delta.Added.Ports)
	}
	if len(delta.Removed.Ports) != 1 || delta.Removed.Ports[0].Width != 4 {
		t.Fatalf("expected narrow q removed, got %+v", delta.Removed.Ports)
	}
}

func TestComputeDeltaUnchanged(t *testing.T) {
	tables := BuildTables(sampleFacts())
	if ComputeDelta(tables, tables).Changed() {
		t.Fatalf("identical snapshots reported as changed")
	}
}
