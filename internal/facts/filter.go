package facts

// FilterTablesByModules returns a new Tables object containing only the rows
// that belong to the named modules: their declarations, ports, parameters,
// the instances inside them and their top-level marks.
func FilterTablesByModules(tables Tables, modules map[string]bool) Tables {
	if len(modules) == 0 {
		return emptyTables()
	}
	out := emptyTables()

	files := make(map[string]bool)
	for _, row := range tables.Modules {
		if modules[row.Name] {
			out.Modules = append(out.Modules, row)
			files[row.File] = true
		}
	}
	for _, row := range tables.Files {
		if files[row.Path] {
			out.Files = append(out.Files, row)
		}
	}
	for _, row := range tables.Ports {
		if modules[row.Module] {
			out.Ports = append(out.Ports, row)
		}
	}
	for _, row := range tables.Parameters {
		if modules[row.Module] {
			out.Parameters = append(out.Parameters, row)
		}
	}
	for _, row := range tables.Instances {
		if modules[row.Parent] {
			out.Instances = append(out.Instances, row)
		}
	}
	for _, row := range tables.TopLevel {
		if modules[row.Module] {
			out.TopLevel = append(out.TopLevel, row)
		}
	}

	return out
}
