package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rwielk/cardbridge/internal/history"
)

// formatRuns renders recent sync runs as a fixed-width table, newest first.
func formatRuns(runs []history.SyncRun) string {
	if len(runs) == 0 {
		return "No sync runs recorded yet.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-19s  %-8s  %9s  %-22s  %-22s  %s\n",
		"STARTED", "TRIGGER", "DURATION", "TO NOTION", "TO TRELLO", "RESULT")
	for _, r := range runs {
		result := "ok"
		if r.Failed {
			result = "FAILED: " + r.FailureMessage
		} else if r.Errors > 0 {
			result = fmt.Sprintf("%d errors", r.Errors)
		}
		if r.Archived > 0 || r.Deleted > 0 {
			result += fmt.Sprintf(" (%d archived, %d deleted)", r.Archived, r.Deleted)
		}
		fmt.Fprintf(&b, "%-19s  %-8s  %9s  %-22s  %-22s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Trigger,
			formatDuration(time.Duration(r.DurationMs)*time.Millisecond),
			fmt.Sprintf("%d created, %d updated", r.EntriesCreated, r.EntriesUpdated),
			fmt.Sprintf("%d created, %d updated", r.CardsCreated, r.CardsUpdated),
			result)
	}
	return b.String()
}

// formatDuration renders a duration at table-friendly precision.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
