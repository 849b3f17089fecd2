package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/hearth/internal/tui/watch"
)

func newWatchCmd() *cobra.Command {
	var apiURL, apiKey string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live terminal monitor of a running engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiKey == "" {
				return fmt.Errorf("API key required, use --api-key or HEARTH_API_KEY")
			}
			p := tea.NewProgram(watch.New(apiURL, apiKey), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "http://127.0.0.1:8090", "Engine API URL")
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("HEARTH_API_KEY"), "API bearer token")
	return cmd
}
