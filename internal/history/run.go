// Package history persists a record of every sync pass so operators can
// see what the bridge did and when.
package history

import (
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
)

// Run triggers.
const (
	TriggerManual   = "manual"
	TriggerStartup  = "startup"
	TriggerPoll     = "poll"
	TriggerWebhook  = "webhook"
	TriggerSchedule = "schedule"
	TriggerRetry    = "retry"
)

// SyncRun records one completed sync pass.
type SyncRun struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Trigger        string    `gorm:"size:16;index"`
	StartedAt      time.Time `gorm:"index"`
	FinishedAt     time.Time
	DurationMs     int64
	EntriesCreated int
	EntriesUpdated int
	CardsCreated   int
	CardsUpdated   int
	Archived       int
	Deleted        int
	Errors         int
	Failed         bool   `gorm:"index"`
	FailureMessage string `gorm:"type:text"`
}

// NewRun builds a SyncRun from the outcome of a sync pass. failure is
// the fatal error when the pass aborted, or nil.
func NewRun(trigger string, started, finished time.Time, stats *bridge.Stats, failure error) *SyncRun {
	run := &SyncRun{
		Trigger:    trigger,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: finished.Sub(started).Milliseconds(),
	}
	if stats != nil {
		run.EntriesCreated = stats.TrelloToNotion.Created
		run.EntriesUpdated = stats.TrelloToNotion.Updated
		run.CardsCreated = stats.NotionToTrello.Created
		run.CardsUpdated = stats.NotionToTrello.Updated
		run.Archived = stats.Archived
		run.Deleted = stats.Deleted
		run.Errors = stats.Errors
	}
	if failure != nil {
		run.Failed = true
		run.FailureMessage = failure.Error()
	}
	return run
}
