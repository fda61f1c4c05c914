// Package trigger watches board activity and signals when a sync pass
// should run.
package trigger

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
)

// ActivitySource lists board activity since a given time. *trello.Client
// satisfies it.
type ActivitySource interface {
	ListActions(ctx context.Context, since time.Time) ([]bridge.Action, error)
}

// DefaultInterval is how often the activity feed is polled when no
// interval is configured.
const DefaultInterval = 60 * time.Second

// Change summarizes the board activity that fired a poll.
type Change struct {
	Count   int
	Actions []bridge.Action
}

// Poller polls the board's activity feed and emits a Change whenever new
// activity shows up. The cursor moves forward on every poll, including
// failed ones; the periodic full sync covers anything a failed window
// missed, so a change is delivered at most once.
type Poller struct {
	source   ActivitySource
	interval time.Duration

	mu     sync.Mutex
	cursor time.Time
}

// Opts holds parameters for creating a Poller.
type Opts struct {
	Source   ActivitySource
	Interval time.Duration // defaults to DefaultInterval
	// Since sets the initial cursor. Defaults to the creation time, so
	// activity from before the poller existed never fires a change.
	Since time.Time
}

// New creates a Poller.
func New(opts Opts) (*Poller, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("trigger: activity source is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	since := opts.Since
	if since.IsZero() {
		since = time.Now()
	}
	return &Poller{
		source:   opts.Source,
		interval: interval,
		cursor:   since,
	}, nil
}

// Poll runs one cycle against the activity feed. It returns nil when the
// window held no activity.
func (p *Poller) Poll(ctx context.Context) (*Change, error) {
	p.mu.Lock()
	since := p.cursor
	p.mu.Unlock()

	now := time.Now()
	actions, err := p.source.ListActions(ctx, since)

	p.mu.Lock()
	p.cursor = now
	p.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("trigger: list actions: %w", err)
	}
	if len(actions) == 0 {
		return nil, nil
	}
	return &Change{Count: len(actions), Actions: actions}, nil
}

// Run starts the poll loop. Changes are delivered on the returned
// channel, which is closed when the context is cancelled.
func (p *Poller) Run(ctx context.Context) <-chan Change {
	ch := make(chan Change, 16)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				change, err := p.Poll(ctx)
				if err != nil {
					log.Printf("trigger: poll: %v", err)
					continue
				}
				if change == nil {
					continue
				}
				select {
				case ch <- *change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}

// Cursor returns the current cursor position.
func (p *Poller) Cursor() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
