package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tjfontaine/x-wrapped/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "wrapped.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecentRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &storage.Run{
		ID:         "run-1",
		Username:   "alice",
		Year:       2025,
		Schema:     "personality",
		Status:     storage.StatusComplete,
		Chunks:     42,
		DurationMS: 18500,
		Report:     json.RawMessage(`{"year_story":"a good year"}`),
		Citations:  []string{"https://x.com/alice/status/1", "https://x.com/alice/status/2"},
	}
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != "run-1" || got.Username != "alice" || got.Year != 2025 {
		t.Errorf("run identity = %+v", got)
	}
	if got.Status != storage.StatusComplete || got.Chunks != 42 || got.DurationMS != 18500 {
		t.Errorf("run stats = %+v", got)
	}
	if string(got.Report) != `{"year_story":"a good year"}` {
		t.Errorf("report = %s", got.Report)
	}
	if len(got.Citations) != 2 || got.Citations[0] != run.Citations[0] {
		t.Errorf("citations = %v", got.Citations)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at was not defaulted")
	}
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := &storage.Run{
			ID:        fmt.Sprintf("run-%d", i),
			Username:  "alice",
			Year:      2025,
			Schema:    "personality",
			Status:    storage.StatusComplete,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun(%d) error = %v", i, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want limit of 3", len(runs))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].ID != want {
			t.Errorf("runs[%d].ID = %s, want %s", i, runs[i].ID, want)
		}
	}
}

func TestRecordRun_ErrorRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &storage.Run{
		ID:       "run-err",
		Username: "bob",
		Year:     2025,
		Schema:   "personality",
		Status:   storage.StatusError,
		Error:    "request timed out",
	}
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := store.RecentRuns(ctx, 0) // zero falls back to the default limit
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.Status != storage.StatusError || got.Error != "request timed out" {
		t.Errorf("error run = %+v", got)
	}
	if got.Report != nil {
		t.Errorf("error run has a report: %s", got.Report)
	}
}

func TestRecordRun_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &storage.Run{ID: "run-1", Username: "alice", Year: 2025, Schema: "personality", Status: storage.StatusComplete}
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := store.RecordRun(ctx, run); err == nil {
		t.Error("duplicate primary key was accepted")
	}
}
