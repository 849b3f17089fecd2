package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/hearth/internal/config"
)

// errReported is returned by commands that already wrote their failure
// details to stderr.
var errReported = errors.New("command failed")

type rootOptions struct {
	configPath string
}

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

func runCLI(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "hearth",
		Short:         "hearth - module/system scheduling engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to hearth.yaml or its directory")

	root.AddCommand(
		newRunCmd(opts),
		newScheduleCmd(opts),
		newCheckCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
		newWatchCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the configured or discovered file. With no --config and
// nothing discoverable, defaults are used.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "No config file found, using defaults")
			return config.Defaults(), nil
		}
		path = discovered
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
