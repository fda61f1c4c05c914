// Package notify formats sync outcomes for delivery to chat channels.
// Adapters for concrete platforms live in the slack and discord
// subpackages.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
)

// Sidebar colors for summary severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Notifier delivers a sync summary to a chat destination.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// Summary describes one finished sync pass.
type Summary struct {
	Trigger  string
	Duration time.Duration

	EntriesCreated int
	EntriesUpdated int
	CardsCreated   int
	CardsUpdated   int
	Archived       int
	Deleted        int
	Errors         int

	Failed  bool
	Failure string
}

// Field is one short label/value pair for structured chat layouts.
type Field struct {
	Name  string
	Value string
	Short bool
}

// NewSummary builds a Summary from the outcome of a sync pass. failure
// is the fatal error when the pass aborted, or nil.
func NewSummary(trigger string, duration time.Duration, stats *bridge.Stats, failure error) Summary {
	s := Summary{Trigger: trigger, Duration: duration}
	if stats != nil {
		s.EntriesCreated = stats.TrelloToNotion.Created
		s.EntriesUpdated = stats.TrelloToNotion.Updated
		s.CardsCreated = stats.NotionToTrello.Created
		s.CardsUpdated = stats.NotionToTrello.Updated
		s.Archived = stats.Archived
		s.Deleted = stats.Deleted
		s.Errors = stats.Errors
	}
	if failure != nil {
		s.Failed = true
		s.Failure = failure.Error()
	}
	return s
}

// Noteworthy reports whether the pass is worth a notification. Quiet
// passes that changed nothing and hit no errors are suppressed.
func (s Summary) Noteworthy() bool {
	if s.Failed || s.Errors > 0 {
		return true
	}
	return s.EntriesCreated+s.EntriesUpdated+s.CardsCreated+s.CardsUpdated+s.Archived+s.Deleted > 0
}

// Title returns the headline for the summary.
func (s Summary) Title() string {
	if s.Failed {
		return "Card sync failed"
	}
	return "Card sync complete"
}

// Color returns the severity sidebar color.
func (s Summary) Color() string {
	switch {
	case s.Failed:
		return ColorError
	case s.Errors > 0:
		return ColorWarning
	case s.Noteworthy():
		return ColorSuccess
	default:
		return ColorInfo
	}
}

// Body returns the multi-line detail text.
func (s Summary) Body() string {
	var b strings.Builder
	if s.Failed {
		fmt.Fprintf(&b, "%s\n", s.Failure)
	}
	fmt.Fprintf(&b, "To database: %d created, %d updated\n", s.EntriesCreated, s.EntriesUpdated)
	fmt.Fprintf(&b, "To board: %d created, %d updated\n", s.CardsCreated, s.CardsUpdated)
	if s.Archived > 0 || s.Deleted > 0 {
		fmt.Fprintf(&b, "Cleanup: %d entries archived, %d cards deleted\n", s.Archived, s.Deleted)
	}
	if s.Errors > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", s.Errors)
	}
	fmt.Fprintf(&b, "Trigger: %s · finished in %s", s.Trigger, s.Duration.Round(time.Millisecond))
	return b.String()
}

// FieldList returns short fields for platforms that lay summaries out in
// columns.
func (s Summary) FieldList() []Field {
	fields := []Field{
		{Name: "To Database", Value: fmt.Sprintf("%d created / %d updated", s.EntriesCreated, s.EntriesUpdated), Short: true},
		{Name: "To Board", Value: fmt.Sprintf("%d created / %d updated", s.CardsCreated, s.CardsUpdated), Short: true},
	}
	if s.Archived > 0 || s.Deleted > 0 {
		fields = append(fields, Field{
			Name:  "Cleanup",
			Value: fmt.Sprintf("%d archived / %d deleted", s.Archived, s.Deleted),
			Short: true,
		})
	}
	if s.Errors > 0 {
		fields = append(fields, Field{Name: "Errors", Value: fmt.Sprintf("%d", s.Errors), Short: true})
	}
	return fields
}
