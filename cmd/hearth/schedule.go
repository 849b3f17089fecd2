package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/hearth/internal/doctor"
	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/inspect"
	"github.com/mattjoyce/hearth/internal/modules"
	"github.com/mattjoyce/hearth/internal/resource"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Resolve the enabled modules and print both groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			mods, err := modules.Build(cfg)
			if err != nil {
				return err
			}
			ictx, err := engine.Prepare(resource.New(), mods...)
			if err != nil {
				return err
			}
			parallel, local, err := ictx.ResolveAll()
			if err != nil {
				if inspect.RenderDiagnostics(cmd.ErrOrStderr(), err) {
					return errReported
				}
				return err
			}

			report := inspect.BuildReport("", cfg.Hash, parallel, local)
			if jsonOut {
				out, err := inspect.JSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			inspect.RenderSchedule(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var jsonOut, strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and dry-run the schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			mods, err := modules.Build(cfg)
			if err != nil {
				return err
			}

			result := doctor.New(cfg, mods, modules.Names()).Validate()
			if jsonOut {
				out, err := doctor.FormatJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			} else {
				fmt.Fprint(cmd.OutOrStdout(), doctor.FormatHuman(result))
			}

			if !result.Valid || (strict && len(result.Warnings) > 0) {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}
