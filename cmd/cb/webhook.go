package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rwielk/cardbridge/internal/config"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage Trello webhooks",
		Long:  "Registers, lists and removes the Trello webhooks that point board activity at the cardbridge receiver.",
	}

	cmd.AddCommand(newWebhookRegisterCmd())
	cmd.AddCommand(newWebhookListCmd())
	cmd.AddCommand(newWebhookRemoveCmd())
	return cmd
}

func newWebhookRegisterCmd() *cobra.Command {
	var (
		configPath  string
		callbackURL string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a webhook for the board",
		Long:  "Registers a Trello webhook pointing at the cardbridge receiver. Trello probes the callback URL during registration, so the receiver must already be reachable (run \"cb daemon --webhook\" first).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWebhookRegister(cmd, configPath, callbackURL)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cardbridge.yaml", "path to cardbridge config file")
	cmd.Flags().StringVar(&callbackURL, "url", "", "callback URL (defaults to webhook.callback_url from config)")
	return cmd
}

func runWebhookRegister(cmd *cobra.Command, configPath, callbackURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if callbackURL == "" {
		callbackURL = cfg.Webhook.CallbackURL
	}
	if callbackURL == "" {
		return fmt.Errorf("no callback URL: set webhook.callback_url in %s or pass --url", configPath)
	}

	board, _, err := clientsFromConfig(cfg)
	if err != nil {
		return err
	}

	hook, err := board.CreateWebhook(context.Background(), callbackURL, "cardbridge sync trigger")
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered webhook %s for %s\n", hook.ID, callbackURL)
	return nil
}

func newWebhookListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List webhooks registered for the API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWebhookList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cardbridge.yaml", "path to cardbridge config file")
	return cmd
}

func runWebhookList(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	board, _, err := clientsFromConfig(cfg)
	if err != nil {
		return err
	}

	hooks, err := board.ListWebhooks(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(hooks) == 0 {
		fmt.Fprintln(out, "No webhooks registered for this token.")
		return nil
	}

	for _, h := range hooks {
		state := "inactive"
		if h.Active {
			state = "active"
		}
		marker := " "
		if h.IDModel == cfg.Trello.Board {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %-8s  %s\n", marker, h.ID, state, h.CallbackURL)
	}
	fmt.Fprintln(out, "\n* watching the configured board")
	return nil
}

func newWebhookRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <webhook-id>",
		Short: "Remove a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWebhookRemove(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cardbridge.yaml", "path to cardbridge config file")
	return cmd
}

func runWebhookRemove(cmd *cobra.Command, configPath, webhookID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	board, _, err := clientsFromConfig(cfg)
	if err != nil {
		return err
	}

	if err := board.DeleteWebhook(context.Background(), webhookID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed webhook %s\n", webhookID)
	return nil
}
