package trigger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
)

// fakeSource is a scripted ActivitySource. Each call pops the next
// queued result.
type fakeSource struct {
	mu      sync.Mutex
	queue   [][]bridge.Action
	err     error
	sinceAt []time.Time
}

func (f *fakeSource) ListActions(ctx context.Context, since time.Time) ([]bridge.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceAt = append(f.sinceAt, since)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.queue) == 0 {
		return nil, nil
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next, nil
}

func (f *fakeSource) calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.sinceAt...)
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := New(Opts{})
	if err == nil {
		t.Fatal("expected error for nil source")
	}
	if !strings.Contains(err.Error(), "activity source is required") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestNew_Defaults(t *testing.T) {
	before := time.Now()
	p, err := New(Opts{Source: &fakeSource{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", p.interval, DefaultInterval)
	}
	if p.Cursor().Before(before) {
		t.Errorf("cursor = %v, want at or after creation time", p.Cursor())
	}
}

func TestPoll_QuietWindowReturnsNil(t *testing.T) {
	p, err := New(Opts{Source: &fakeSource{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	change, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if change != nil {
		t.Errorf("change = %+v, want nil", change)
	}
}

func TestPoll_ReportsActivity(t *testing.T) {
	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{queue: [][]bridge.Action{{
		{ID: "a1", Type: "updateCard"},
		{ID: "a2", Type: "createCard"},
	}}}
	p, err := New(Opts{Source: src, Since: since})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	change, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if change == nil {
		t.Fatal("change = nil, want activity")
	}
	if change.Count != 2 || len(change.Actions) != 2 {
		t.Errorf("change = %+v, want 2 actions", change)
	}

	calls := src.calls()
	if len(calls) != 1 || !calls[0].Equal(since) {
		t.Errorf("since = %v, want %v", calls, since)
	}
	if !p.Cursor().After(since) {
		t.Errorf("cursor = %v, want after %v", p.Cursor(), since)
	}
}

func TestPoll_CursorAdvancesOnError(t *testing.T) {
	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{err: errors.New("boom")}
	p, err := New(Opts{Source: src, Since: since})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Poll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "list actions") {
		t.Errorf("error = %q", err.Error())
	}
	// A failed window does not replay: the next poll starts from now.
	if !p.Cursor().After(since) {
		t.Errorf("cursor = %v, want advanced past %v", p.Cursor(), since)
	}
}

func TestPoll_EachWindowDeliveredOnce(t *testing.T) {
	src := &fakeSource{queue: [][]bridge.Action{{{ID: "a1", Type: "updateCard"}}}}
	p, err := New(Opts{Source: src, Since: time.Now().Add(-time.Minute)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := p.Poll(context.Background())
	if err != nil || first == nil {
		t.Fatalf("first poll = %+v, %v", first, err)
	}
	second, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if second != nil {
		t.Errorf("second poll = %+v, want nil", second)
	}

	calls := src.calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if !calls[1].After(calls[0]) {
		t.Errorf("second since %v not after first %v", calls[1], calls[0])
	}
}

func TestRun_DeliversChangesAndClosesOnCancel(t *testing.T) {
	src := &fakeSource{queue: [][]bridge.Action{{{ID: "a1", Type: "updateCard"}}}}
	p, err := New(Opts{Source: src, Interval: 10 * time.Millisecond, Since: time.Now().Add(-time.Minute)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Run(ctx)

	select {
	case change, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before delivering a change")
		}
		if change.Count != 1 {
			t.Errorf("change = %+v, want 1 action", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// Drain any change that raced the cancel.
			if _, ok := <-ch; ok {
				t.Fatal("channel still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
