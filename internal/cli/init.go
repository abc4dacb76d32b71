package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sim-build/internal/config"
)

func newInitCommand(opts Options) *cobra.Command {
	var format string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default sim_build configuration file",
		Long: `Write a default sim_build.json (or sim_build.toml with --format toml) into dir,
or the current directory when dir is omitted. An existing file is only replaced
after confirmation or with --force.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, opts, dir, format, force)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "config file format (json|toml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file without asking")
	return cmd
}

func runInit(cmd *cobra.Command, opts Options, dir, format string, force bool) error {
	var name string
	switch strings.ToLower(format) {
	case "json":
		name = "sim_build.json"
	case "toml":
		name = "sim_build.toml"
	default:
		return &ExitError{Code: 1, Message: fmt.Sprintf("invalid --format %q: must be json or toml", format)}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("failed to create directory %q: %v", dir, err)}
	}
	path := filepath.Join(dir, name)

	err := config.DefaultConfig().Save(path, force)
	if errors.Is(err, config.ErrExists) {
		if !confirm(cmd, path) {
			fmt.Fprintf(opts.Out, "Left %s unchanged\n", path)
			return nil
		}
		err = config.DefaultConfig().Save(path, true)
	}
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}

	fmt.Fprintf(opts.Out, "Created %s\n", path)
	return nil
}

func confirm(cmd *cobra.Command, path string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, overwrite? [y/N] ", path)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
