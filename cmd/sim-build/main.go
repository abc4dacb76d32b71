// =============================================================================
// sim-build - Main Entry Point
// =============================================================================
//
// Turns a top-level Verilog file into everything a simulator needs to be
// driven pin by pin from an application.
//
// THE PIPELINE:
//   1. Extractor reads module declarations, ports and instantiations
//   2. Resolver picks the top-level module (--top when ambiguous)
//   3. The module is promoted to a DUT pin model, then Rego pin checks run
//   4. Testbench wrapper and VPI extension sources are rendered
//   5. The target definition is validated against the CUE contract and written
//   6. Build instructions are printed for irun, vcs and iverilog
//
// Every failure is reported on stdout and exits 1. Nothing is cleaned up;
// rerunning overwrites the output directory.
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/robert-at-pretension-io/sim-build/internal/cli"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		os.Exit(report(os.Stdout, err))
	}
}

// report prints err and returns the process exit code.
func report(w io.Writer, err error) int {
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(w, exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintln(w, err)
	return 1
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	return cli.Execute(context.Background(), cli.Options{Out: outW, Err: os.Stderr}, args)
}
