// Package daemon runs the bridge continuously: one pass at startup,
// change-triggered passes from the activity poller or webhook receiver,
// and scheduled passes from a cron expression.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
	"github.com/rwielk/cardbridge/internal/history"
	"github.com/rwielk/cardbridge/internal/notify"
	"github.com/rwielk/cardbridge/internal/trigger"
)

// DefaultRetryDelay is how long a failed pass waits before retrying when
// no delay is configured.
const DefaultRetryDelay = time.Minute

// Syncer runs one sync pass. *bridge.Engine satisfies it.
type Syncer interface {
	Sync(ctx context.Context) (*bridge.Stats, error)
}

// Recorder persists finished runs. *history.Store satisfies it.
type Recorder interface {
	Record(run *history.SyncRun) error
}

// Daemon owns the long-running sync loop. Passes are serialized: every
// trigger lands in the same loop goroutine, so two passes can never run
// at once and triggers that arrive mid-pass coalesce into one.
type Daemon struct {
	syncer     Syncer
	poller     *trigger.Poller
	recorder   Recorder
	notifiers  []notify.Notifier
	cronExpr   string
	retryDelay time.Duration
	out        io.Writer

	kicks chan string
}

// Opts holds parameters for creating a Daemon.
type Opts struct {
	Syncer     Syncer
	Poller     *trigger.Poller   // optional; enables change-triggered passes
	Recorder   Recorder          // optional; persists run history
	Notifiers  []notify.Notifier // optional; receive pass summaries
	CronExpr   string            // optional; 5-field cron for scheduled passes
	RetryDelay time.Duration     // defaults to DefaultRetryDelay
	Out        io.Writer         // defaults to os.Stdout
}

// New creates a Daemon.
func New(opts Opts) (*Daemon, error) {
	if opts.Syncer == nil {
		return nil, fmt.Errorf("daemon: syncer is required")
	}
	if opts.CronExpr != "" {
		if _, err := cronParser.Parse(opts.CronExpr); err != nil {
			return nil, fmt.Errorf("daemon: invalid cron expression %q: %w", opts.CronExpr, err)
		}
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		syncer:     opts.Syncer,
		poller:     opts.Poller,
		recorder:   opts.Recorder,
		notifiers:  opts.Notifiers,
		cronExpr:   opts.CronExpr,
		retryDelay: retryDelay,
		out:        out,
		kicks:      make(chan string, 1),
	}, nil
}

// Kick requests a sync pass with the given trigger label. When a pass is
// already pending the request coalesces with it.
func (d *Daemon) Kick(trig string) {
	select {
	case d.kicks <- trig:
	default:
	}
}

// Run starts the daemon loop and blocks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "cardbridge daemon starting\n")

	var retryTimer *time.Timer
	run := func(trig string) {
		err := d.runPass(ctx, trig)
		if err != nil {
			if retryTimer == nil {
				retryTimer = time.NewTimer(d.retryDelay)
			}
			return
		}
		if retryTimer != nil {
			retryTimer.Stop()
			retryTimer = nil
		}
	}

	// Initial pass so a freshly started daemon converges immediately.
	run(history.TriggerStartup)

	var changes <-chan trigger.Change
	if d.poller != nil {
		changes = d.poller.Run(ctx)
	}

	var cronTimer *time.Timer
	if d.cronExpr != "" {
		if wait := nextCronDuration(d.cronExpr); wait > 0 {
			cronTimer = time.NewTimer(wait)
		}
	}
	defer func() {
		if cronTimer != nil {
			cronTimer.Stop()
		}
		if retryTimer != nil {
			retryTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "cardbridge daemon stopped\n")
			return nil

		case trig := <-d.kicks:
			run(trig)

		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			fmt.Fprintf(d.out, "daemon: board activity (%d actions), syncing\n", change.Count)
			run(history.TriggerPoll)

		case <-timerChan(cronTimer):
			run(history.TriggerSchedule)
			if wait := nextCronDuration(d.cronExpr); wait > 0 {
				cronTimer.Reset(wait)
			}

		case <-timerChan(retryTimer):
			retryTimer = nil
			run(history.TriggerRetry)
		}
	}
}

// runPass executes one sync pass, records it, and notifies.
func (d *Daemon) runPass(ctx context.Context, trig string) error {
	started := time.Now()
	stats, err := d.syncer.Sync(ctx)
	finished := time.Now()

	if err != nil {
		log.Printf("daemon: sync (%s): %v", trig, err)
	} else {
		fmt.Fprintf(d.out, "daemon: sync (%s): %s\n", trig, stats)
	}

	if d.recorder != nil {
		if recErr := d.recorder.Record(history.NewRun(trig, started, finished, stats, err)); recErr != nil {
			log.Printf("daemon: record run: %v", recErr)
		}
	}

	summary := notify.NewSummary(trig, finished.Sub(started), stats, err)
	if summary.Noteworthy() {
		for _, n := range d.notifiers {
			if nerr := n.Notify(ctx, summary); nerr != nil {
				log.Printf("daemon: notify: %v", nerr)
			}
		}
	}
	return err
}

// timerChan returns the timer's channel, or nil if the timer is nil.
// A nil channel blocks forever in select, which is the desired behavior
// when a timer is not armed.
func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
