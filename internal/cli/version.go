package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information, overridable at build time via -ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildDate = ""
)

func newVersionCommand(opts Options, globals *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sim-build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			colored, err := useColor(globals.color, opts.Out)
			if err != nil {
				return err
			}
			c := color.New(color.FgGreen, color.Bold)
			if colored {
				c.EnableColor()
			} else {
				c.DisableColor()
			}

			fmt.Fprintf(opts.Out, "sim-build %s\n", c.Sprint(Version))
			if GitCommit != "" {
				fmt.Fprintf(opts.Out, "commit: %s\n", GitCommit)
			}
			if BuildDate != "" {
				fmt.Fprintf(opts.Out, "built: %s\n", BuildDate)
			}
			return nil
		},
	}
}
