package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
)

func TestNewSummary_FromStats(t *testing.T) {
	stats := &bridge.Stats{
		TrelloToNotion: bridge.Tally{Created: 2, Updated: 3},
		NotionToTrello: bridge.Tally{Created: 1, Updated: 4},
		Archived:       1,
		Deleted:        2,
		Errors:         1,
	}

	s := NewSummary("poll", 1500*time.Millisecond, stats, nil)
	if s.Trigger != "poll" || s.Duration != 1500*time.Millisecond {
		t.Errorf("summary = %+v", s)
	}
	if s.EntriesCreated != 2 || s.EntriesUpdated != 3 {
		t.Errorf("entries = %d/%d, want 2/3", s.EntriesCreated, s.EntriesUpdated)
	}
	if s.CardsCreated != 1 || s.CardsUpdated != 4 {
		t.Errorf("cards = %d/%d, want 1/4", s.CardsCreated, s.CardsUpdated)
	}
	if s.Failed {
		t.Error("Failed = true, want false")
	}
}

func TestNewSummary_Failure(t *testing.T) {
	s := NewSummary("manual", time.Second, nil, errors.New("bridge: fetch: boom"))
	if !s.Failed {
		t.Error("Failed = false, want true")
	}
	if !strings.Contains(s.Failure, "boom") {
		t.Errorf("Failure = %q", s.Failure)
	}
}

func TestSummary_Noteworthy(t *testing.T) {
	tests := []struct {
		name string
		s    Summary
		want bool
	}{
		{"quiet pass", Summary{Trigger: "schedule"}, false},
		{"created entry", Summary{EntriesCreated: 1}, true},
		{"updated card", Summary{CardsUpdated: 1}, true},
		{"archived", Summary{Archived: 1}, true},
		{"errors only", Summary{Errors: 1}, true},
		{"failed", Summary{Failed: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Noteworthy(); got != tt.want {
				t.Errorf("Noteworthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummary_TitleAndColor(t *testing.T) {
	tests := []struct {
		name      string
		s         Summary
		wantTitle string
		wantColor string
	}{
		{"failed", Summary{Failed: true}, "Card sync failed", ColorError},
		{"partial errors", Summary{EntriesCreated: 1, Errors: 2}, "Card sync complete", ColorWarning},
		{"clean changes", Summary{CardsCreated: 1}, "Card sync complete", ColorSuccess},
		{"quiet", Summary{}, "Card sync complete", ColorInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Title(); got != tt.wantTitle {
				t.Errorf("Title() = %q, want %q", got, tt.wantTitle)
			}
			if got := tt.s.Color(); got != tt.wantColor {
				t.Errorf("Color() = %q, want %q", got, tt.wantColor)
			}
		})
	}
}

func TestSummary_Body(t *testing.T) {
	s := Summary{
		Trigger:        "webhook",
		Duration:       2 * time.Second,
		EntriesCreated: 2,
		CardsUpdated:   1,
		Deleted:        1,
		Errors:         1,
	}
	body := s.Body()
	for _, want := range []string{
		"To database: 2 created, 0 updated",
		"To board: 0 created, 1 updated",
		"1 cards deleted",
		"Errors: 1",
		"Trigger: webhook",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Body() missing %q:\n%s", want, body)
		}
	}
}

func TestSummary_BodyIncludesFailure(t *testing.T) {
	s := Summary{Failed: true, Failure: "bridge: fetch: status 401"}
	if !strings.Contains(s.Body(), "status 401") {
		t.Errorf("Body() = %q, want failure message", s.Body())
	}
}

func TestSummary_FieldList(t *testing.T) {
	s := Summary{EntriesCreated: 1}
	fields := s.FieldList()
	if len(fields) != 2 {
		t.Fatalf("len(fields) = %d, want 2 (no cleanup, no errors)", len(fields))
	}
	if fields[0].Name != "To Database" || fields[0].Value != "1 created / 0 updated" {
		t.Errorf("fields[0] = %+v", fields[0])
	}

	s.Archived = 2
	s.Errors = 1
	fields = s.FieldList()
	if len(fields) != 4 {
		t.Fatalf("len(fields) = %d, want 4", len(fields))
	}
	if fields[2].Name != "Cleanup" || fields[3].Name != "Errors" {
		t.Errorf("fields = %+v", fields)
	}
}
