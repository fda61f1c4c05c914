package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwielk/cardbridge/internal/bridge"
	"github.com/rwielk/cardbridge/internal/config"
	"github.com/rwielk/cardbridge/internal/history"
	"github.com/rwielk/cardbridge/internal/notion"
	"github.com/rwielk/cardbridge/internal/trello"
)

func newSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass",
		Long:  "Runs a single reconciliation pass between the Trello board and the Notion database, prints what changed, and records the run in the history store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cardbridge.yaml", "path to cardbridge config file")
	return cmd
}

func runSync(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	board, database, err := clientsFromConfig(cfg)
	if err != nil {
		return err
	}

	engine, err := bridge.New(bridge.Opts{
		Board:    board,
		Database: database,
		Out:      cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	store, err := historyFromConfig(cfg)
	if err != nil {
		return err
	}

	started := time.Now()
	stats, syncErr := engine.Sync(context.Background())
	finished := time.Now()

	if err := store.Record(history.NewRun(history.TriggerManual, started, finished, stats, syncErr)); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "record run: %v\n", err)
	}

	if syncErr != nil {
		return syncErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sync complete: %s\n", stats)
	return nil
}

// clientsFromConfig builds the two API clients from config.
func clientsFromConfig(cfg *config.Config) (*trello.Client, *notion.Client, error) {
	board, err := trello.New(trello.Opts{
		Key:     cfg.Trello.Key,
		Token:   cfg.Trello.Token,
		BoardID: cfg.Trello.Board,
	})
	if err != nil {
		return nil, nil, err
	}
	database, err := notion.New(notion.Opts{
		Token:      cfg.Notion.Token,
		DatabaseID: cfg.Notion.Database,
	})
	if err != nil {
		return nil, nil, err
	}
	return board, database, nil
}

// historyFromConfig opens the run history store selected by config.
func historyFromConfig(cfg *config.Config) (*history.Store, error) {
	return history.Open(history.Opts{
		Driver:   cfg.History.Driver,
		Path:     cfg.History.Path,
		Host:     cfg.History.Host,
		Port:     cfg.History.Port,
		User:     cfg.History.User,
		Password: cfg.History.Password,
		Database: cfg.History.Database,
	})
}
