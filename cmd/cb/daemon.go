package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rwielk/cardbridge/internal/bridge"
	"github.com/rwielk/cardbridge/internal/config"
	"github.com/rwielk/cardbridge/internal/daemon"
	"github.com/rwielk/cardbridge/internal/notify"
	discordnotify "github.com/rwielk/cardbridge/internal/notify/discord"
	slacknotify "github.com/rwielk/cardbridge/internal/notify/slack"
	"github.com/rwielk/cardbridge/internal/trigger"
	"github.com/rwielk/cardbridge/internal/webhook"
)

func newDaemonCmd() *cobra.Command {
	var (
		configPath string
		serveHooks bool
		logFile    string
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync daemon",
		Long:  "Runs the bridge continuously: one pass at startup, a pass whenever board activity is detected, scheduled passes from the configured cron expression, and retries after failures. With --webhook it also serves the Trello webhook receiver.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath, serveHooks, logFile)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cardbridge.yaml", "path to cardbridge config file")
	cmd.Flags().BoolVar(&serveHooks, "webhook", false, "serve the Trello webhook receiver")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write output to this file with rotation instead of stdout")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string, serveHooks bool, logFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		log.SetOutput(rotated)
		out = rotated
	}

	board, database, err := clientsFromConfig(cfg)
	if err != nil {
		return err
	}

	engine, err := bridge.New(bridge.Opts{Board: board, Database: database})
	if err != nil {
		return err
	}

	poller, err := trigger.New(trigger.Opts{
		Source:   board,
		Interval: cfg.Daemon.Interval(),
	})
	if err != nil {
		return err
	}

	store, err := historyFromConfig(cfg)
	if err != nil {
		return err
	}

	notifiers, err := notifiersFromConfig(cfg)
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Opts{
		Syncer:     engine,
		Poller:     poller,
		Recorder:   store,
		Notifiers:  notifiers,
		CronExpr:   cfg.Daemon.Schedule,
		RetryDelay: cfg.Daemon.Retry(),
		Out:        out,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if serveHooks {
		go func() {
			err := webhook.Start(ctx, webhook.StartOpts{
				Kicker:      d,
				Runs:        store,
				Port:        cfg.Webhook.Port,
				Secret:      cfg.Webhook.Secret,
				CallbackURL: cfg.Webhook.CallbackURL,
				Out:         out,
			})
			if err != nil {
				log.Printf("webhook server: %v", err)
				cancel()
			}
		}()
	}

	return d.Run(ctx)
}

// notifiersFromConfig builds a notifier for each chat platform with a
// token configured.
func notifiersFromConfig(cfg *config.Config) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier
	if cfg.Notify.Slack.Token != "" {
		n, err := slacknotify.New(slacknotify.Opts{
			BotToken:  cfg.Notify.Slack.Token,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Notify.Discord.Token != "" {
		n, err := discordnotify.New(discordnotify.Opts{
			BotToken:  cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.Channel,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	return notifiers, nil
}
