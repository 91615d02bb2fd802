// Package storage defines the run archive interfaces. Implementations
// live in subpackages.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Run statuses.
const (
	StatusComplete = "complete"
	StatusError    = "error"
)

// Run is the archived record of one terminal pipeline run. The archive
// is an operational log, written best-effort after the terminal event;
// it never participates in the stream itself.
type Run struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	Year       int             `json:"year"`
	Schema     string          `json:"schema"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Chunks     int             `json:"chunks"`
	DurationMS int64           `json:"duration_ms"`
	Report     json.RawMessage `json:"report,omitempty"`
	Citations  []string        `json:"citations,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RunStore archives terminal runs and serves recent history.
type RunStore interface {
	RecordRun(ctx context.Context, run *Run) error
	RecentRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}
