package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/hearth/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration integrity and inspection",
	}
	cmd.AddCommand(newConfigHashCmd(opts), newConfigShowCmd(opts))
	return cmd
}

func newConfigHashCmd(opts *rootOptions) *cobra.Command {
	var dryRun, verbose bool
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Write the .checksums manifest for the config directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				discovered, err := config.DiscoverConfigPath()
				if err != nil {
					return err
				}
				path = discovered
			}

			report, err := config.LockConfig(path, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if verbose || dryRun {
				for _, f := range report.Files {
					if f.Exists {
						fmt.Fprintf(out, "  HASH %s: %s\n", f.Filename, f.Hash)
						continue
					}
					fmt.Fprintf(out, "  SKIP %s: not found\n", f.Filename)
				}
			}
			if dryRun {
				fmt.Fprintf(out, "Dry run: %s not written\n", report.ChecksumPath)
				return nil
			}
			fmt.Fprintf(out, "Wrote %s (%d file(s))\n", report.ChecksumPath, len(report.Files))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute hashes without writing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every hashed file")
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			redacted := *cfg
			redacted.API.Auth = redactAuth(cfg.API.Auth)

			data, err := yaml.Marshal(&redacted)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

const redactedValue = "[redacted]"

func redactAuth(a config.APIAuthConfig) config.APIAuthConfig {
	out := config.APIAuthConfig{}
	if a.APIKey != "" {
		out.APIKey = redactedValue
	}
	for _, t := range a.Tokens {
		out.Tokens = append(out.Tokens, config.APIToken{Token: redactedValue, Scopes: t.Scopes})
	}
	return out
}
