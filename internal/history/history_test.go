package history

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
)

// openTestStore opens a store backed by a throwaway sqlite file.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Opts{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Opts{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestOpen_SQLiteRequiresPath(t *testing.T) {
	_, err := Open(Opts{Driver: DriverSQLite})
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(Opts{
		Driver:   DriverMySQL,
		Host:     "db.internal",
		Port:     3307,
		User:     "bridge",
		Password: "hunter2",
		Database: "cardbridge",
	})
	for _, want := range []string{
		"bridge:hunter2@tcp(db.internal:3307)/cardbridge",
		"parseTime=true",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn = %q, want to contain %q", dsn, want)
		}
	}
}

func TestRecord_AssignsID(t *testing.T) {
	s := openTestStore(t)

	run := &SyncRun{Trigger: TriggerManual, StartedAt: time.Now()}
	if err := s.Record(run); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(run.ID) != 36 {
		t.Errorf("ID = %q, want a uuid", run.ID)
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &SyncRun{
			Trigger:        TriggerPoll,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			EntriesCreated: i,
		}
		if err := s.Record(run); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	runs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].EntriesCreated != 2 || runs[1].EntriesCreated != 1 {
		t.Errorf("runs = created %d, %d; want newest first", runs[0].EntriesCreated, runs[1].EntriesCreated)
	}
}

func TestLastRun_EmptyReturnsNil(t *testing.T) {
	s := openTestStore(t)

	run, err := s.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run != nil {
		t.Errorf("run = %+v, want nil", run)
	}
}

func TestLastRun_ReturnsNewest(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		run := &SyncRun{Trigger: TriggerManual, StartedAt: base.Add(time.Duration(i) * time.Hour), Deleted: i}
		if err := s.Record(run); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	run, err := s.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run == nil || run.Deleted != 1 {
		t.Errorf("run = %+v, want the later one", run)
	}
}

func TestNewRun_FromStats(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	stats := &bridge.Stats{
		TrelloToNotion: bridge.Tally{Created: 2, Updated: 3},
		NotionToTrello: bridge.Tally{Created: 1, Updated: 4},
		Archived:       1,
		Deleted:        2,
		Errors:         1,
	}

	run := NewRun(TriggerWebhook, started, finished, stats, nil)
	if run.Trigger != TriggerWebhook {
		t.Errorf("Trigger = %q", run.Trigger)
	}
	if run.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", run.DurationMs)
	}
	if run.EntriesCreated != 2 || run.EntriesUpdated != 3 {
		t.Errorf("entries = %d/%d, want 2/3", run.EntriesCreated, run.EntriesUpdated)
	}
	if run.CardsCreated != 1 || run.CardsUpdated != 4 {
		t.Errorf("cards = %d/%d, want 1/4", run.CardsCreated, run.CardsUpdated)
	}
	if run.Archived != 1 || run.Deleted != 2 || run.Errors != 1 {
		t.Errorf("sweep = %d/%d errors %d", run.Archived, run.Deleted, run.Errors)
	}
	if run.Failed {
		t.Error("Failed = true, want false")
	}
}

func TestNewRun_Failure(t *testing.T) {
	now := time.Now()
	run := NewRun(TriggerManual, now, now, nil, errors.New("bridge: fetch: boom"))
	if !run.Failed {
		t.Error("Failed = false, want true")
	}
	if !strings.Contains(run.FailureMessage, "boom") {
		t.Errorf("FailureMessage = %q", run.FailureMessage)
	}
}

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestSyncRun_Fields(t *testing.T) {
	typ := reflect.TypeOf(SyncRun{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:36")
	assertGormTag(t, typ, "Trigger", "size:16")
	assertGormTag(t, typ, "Trigger", "index")
	assertGormTag(t, typ, "StartedAt", "index")
	assertGormTag(t, typ, "Failed", "index")
	assertGormTag(t, typ, "FailureMessage", "type:text")
}
