package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rwielk/cardbridge/internal/bridge"
	"github.com/rwielk/cardbridge/internal/config"
	"github.com/rwielk/cardbridge/internal/notion"
	"github.com/rwielk/cardbridge/internal/trello"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity",
		Long:  "Runs diagnostic checks on the cardbridge setup: config file, Trello and Notion API access, the board's custom field definitions, webhook registration, and the history store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cardbridge.yaml", "path to cardbridge config file")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "cardbridge doctor")
	fmt.Fprintln(out, "=================")

	ctx := context.Background()
	var results []checkResult

	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	if cfg == nil {
		for _, name := range []string{"Trello API", "Custom fields", "Notion API", "History store"} {
			results = append(results, checkResult{name, "FAIL", "skipped (no config)"})
		}
	} else {
		board, database, err := clientsFromConfig(cfg)
		if err != nil {
			results = append(results, checkResult{"API clients", "FAIL", err.Error()})
		} else {
			results = append(results, checkTrello(ctx, board))
			results = append(results, checkCustomFields(ctx, board))
			results = append(results, checkNotion(ctx, database))
			if cfg.Webhook.CallbackURL != "" {
				results = append(results, checkWebhookRegistration(ctx, board, cfg.Webhook.CallbackURL))
			}
		}
		results = append(results, checkHistory(cfg))
	}

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printCheckResult(out io.Writer, r checkResult) {
	fmt.Fprintf(out, "[%s] %s: %s\n", r.status, r.name, r.detail)
}

func checkConfig(path string) (*config.Config, checkResult) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, checkResult{"Config file", "FAIL", fmt.Sprintf("%s: %v", path, err)}
	}
	return cfg, checkResult{"Config file", "PASS", path}
}

func checkTrello(ctx context.Context, board *trello.Client) checkResult {
	lists, err := board.ListLists(ctx)
	if err != nil {
		return checkResult{"Trello API", "FAIL", err.Error()}
	}
	return checkResult{"Trello API", "PASS", fmt.Sprintf("board reachable, %d lists", len(lists))}
}

// checkCustomFields verifies the board defines every custom field the
// bridge writes to.
func checkCustomFields(ctx context.Context, board *trello.Client) checkResult {
	defs, err := board.ListCustomFields(ctx)
	if err != nil {
		return checkResult{"Custom fields", "FAIL", err.Error()}
	}

	have := make(map[string]bool, len(defs))
	for _, d := range defs {
		have[d.Name] = true
	}

	needed := append([]string{}, bridge.ScoreFields...)
	needed = append(needed, bridge.TotalScoreName, bridge.SyncedName, bridge.NotionLinkField)
	var missing []string
	for _, name := range needed {
		if !have[name] {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return checkResult{"Custom fields", "WARN", "board is missing: " + strings.Join(missing, ", ")}
	}
	return checkResult{"Custom fields", "PASS", fmt.Sprintf("%d definitions, all bridged fields present", len(defs))}
}

func checkNotion(ctx context.Context, database *notion.Client) checkResult {
	entries, err := database.ListEntries(ctx)
	if err != nil {
		return checkResult{"Notion API", "FAIL", err.Error()}
	}
	return checkResult{"Notion API", "PASS", fmt.Sprintf("database reachable, %d live entries", len(entries))}
}

func checkWebhookRegistration(ctx context.Context, board *trello.Client, callbackURL string) checkResult {
	hooks, err := board.ListWebhooks(ctx)
	if err != nil {
		return checkResult{"Webhook", "FAIL", err.Error()}
	}
	for _, h := range hooks {
		if h.CallbackURL == callbackURL && h.Active {
			return checkResult{"Webhook", "PASS", fmt.Sprintf("registered (%s)", h.ID)}
		}
	}
	return checkResult{"Webhook", "WARN", fmt.Sprintf("no active webhook for %s (run \"cb webhook register\")", callbackURL)}
}

func checkHistory(cfg *config.Config) checkResult {
	store, err := historyFromConfig(cfg)
	if err != nil {
		return checkResult{"History store", "FAIL", err.Error()}
	}
	last, err := store.LastRun()
	if err != nil {
		return checkResult{"History store", "FAIL", fmt.Sprintf("query last run: %v", err)}
	}
	if last == nil {
		return checkResult{"History store", "PASS", fmt.Sprintf("%s ready, no runs recorded yet", cfg.History.Driver)}
	}
	return checkResult{"History store", "PASS", fmt.Sprintf("%s ready, last run %s", cfg.History.Driver, last.StartedAt.Local().Format("2006-01-02 15:04:05"))}
}
