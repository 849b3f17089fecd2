package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/hearth/internal/history"
	"github.com/mattjoyce/hearth/internal/inspect"
	"github.com/mattjoyce/hearth/internal/storage"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit       int
		showProfile bool
		bootID      string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded schedules or the stored profile of a boot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			db, err := storage.OpenSQLite(cmd.Context(), cfg.State.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			store := history.NewStore(db)
			out := cmd.OutOrStdout()

			if showProfile || bootID != "" {
				boot, totals, err := store.LastProfile(cmd.Context(), bootID)
				if errors.Is(err, history.ErrNoHistory) {
					fmt.Fprintln(out, "No profile recorded.")
					return nil
				}
				if err != nil {
					return err
				}
				inspect.RenderProfile(out, boot, totals)
				return nil
			}

			snaps, err := store.ListSchedules(cmd.Context(), limit)
			if err != nil {
				return err
			}
			inspect.RenderHistory(out, snaps)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum snapshots to list")
	cmd.Flags().BoolVar(&showProfile, "profile", false, "Show the stored profile of the latest boot")
	cmd.Flags().StringVar(&bootID, "boot", "", "Show the stored profile of this boot")
	return cmd
}
