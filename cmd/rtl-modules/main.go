// rtl-modules prints what sim-build sees in an RTL file: declared modules,
// ports, instances and the top-level candidates. Handy for picking --top.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/sim-build/internal/extractor"
	"github.com/robert-at-pretension-io/sim-build/internal/facts"
	"github.com/robert-at-pretension-io/sim-build/internal/toplevel"
)

// report is the JSON document printed by rtl-modules.
type report struct {
	facts.Tables
	Candidates []string `json:"candidates"`
}

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, args []string) error {
	fs := pflag.NewFlagSet("rtl-modules", pflag.ContinueOnError)
	fs.SetOutput(out)
	output := fs.StringP("output", "o", "", "write the report to file (default: stdout)")
	module := fs.StringP("module", "m", "", "only report the named module")
	deltaFrom := fs.String("delta-from", "", "previous report to compute delta from")
	deltaOut := fs.String("delta-out", "", "write delta JSON to file (requires --delta-from)")
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: rtl-modules [--output file] [--module name] [--delta-from prev.json --delta-out delta.json] <rtl-file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("missing RTL file")
	}
	if (*deltaFrom == "") != (*deltaOut == "") {
		return fmt.Errorf("--delta-from and --delta-out must be used together")
	}

	path := fs.Arg(0)
	fileFacts, err := extractor.New().ExtractContext(context.Background(), path)
	if err != nil {
		return err
	}

	rep := report{Tables: facts.BuildTables([]extractor.FileFacts{fileFacts}), Candidates: []string{}}
	for _, m := range toplevel.Candidates(&fileFacts) {
		rep.Candidates = append(rep.Candidates, m.Name)
	}
	if *module != "" {
		if _, ok := fileFacts.Module(*module); !ok {
			return fmt.Errorf("module %s not declared in %s", *module, path)
		}
		rep.Tables = facts.FilterTablesByModules(rep.Tables, map[string]bool{*module: true})
	}

	if *output != "" {
		if err := writeJSON(*output, rep); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	} else {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	}

	if *deltaFrom != "" {
		prev, err := readReport(*deltaFrom)
		if err != nil {
			return fmt.Errorf("reading delta-from: %w", err)
		}
		delta := facts.ComputeDelta(prev.Tables, rep.Tables)
		if err := writeJSON(*deltaOut, delta); err != nil {
			return fmt.Errorf("writing delta: %w", err)
		}
	}
	return nil
}

func readReport(path string) (report, error) {
	f, err := os.Open(path)
	if err != nil {
		return report{}, err
	}
	defer func() { _ = f.Close() }()

	var rep report
	if err := json.NewDecoder(f).Decode(&rep); err != nil {
		return report{}, err
	}
	return rep, nil
}

func writeJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
