package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rwielk/cardbridge/internal/config"
)

func newStatusCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent sync runs",
		Long:  "Displays the most recent sync runs from the history store: when they ran, what triggered them, and what changed. Use --watch for auto-refresh.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath, limit, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cardbridge.yaml", "path to cardbridge config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().BoolVar(&watch, "watch", false, "auto-refresh every 5 seconds")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string, limit int, watch bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := historyFromConfig(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	// Only a real terminal gets ANSI clear codes between refreshes; piped
	// output just appends.
	clearScreen := watch && term.IsTerminal(int(os.Stdout.Fd()))

	for {
		runs, err := store.Recent(limit)
		if err != nil {
			return err
		}

		if clearScreen {
			fmt.Fprint(out, "\033[2J\033[H")
		}

		fmt.Fprint(out, formatRuns(runs))

		if !watch {
			return nil
		}
		time.Sleep(5 * time.Second)
	}
}
