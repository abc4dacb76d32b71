package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// Changed reports whether any relation differs.
func (d Delta) Changed() bool {
	return !d.Added.empty() || !d.Removed.empty()
}

func (t Tables) empty() bool {
	return len(t.Files) == 0 && len(t.Modules) == 0 && len(t.Ports) == 0 &&
		len(t.Parameters) == 0 && len(t.Instances) == 0 && len(t.TopLevel) == 0
}

// ComputeDelta computes row-level additions and removals between two
// snapshots. Line numbers are ignored so that edits which only move code
// do not show up as interface changes.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffRows(from.Files, to.Files, func(r FileRow) string {
		return r.Path
	})
	out.Modules = diffRows(from.Modules, to.Modules, func(r ModuleRow) string {
		return r.File + "|" + r.Name
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return r.File + "|" + r.Module + "|" + r.Name + "|" + r.Direction + "|" + r.Range + "|" + strconv.Itoa(r.Width)
	})
	out.Parameters = diffRows(from.Parameters, to.Parameters, func(r ParameterRow) string {
		return r.File + "|" + r.Module + "|" + r.Name
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return r.File + "|" + r.Parent + "|" + r.Label + "|" + r.Target
	})
	out.TopLevel = diffRows(from.TopLevel, to.TopLevel, func(r TopLevelRow) string {
		return r.File + "|" + r.Module
	})

	return out
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	var diff []T
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}
