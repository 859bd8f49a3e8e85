// Package store keeps transient analysis sessions. Nothing here outlives
// the session TTL; extracted data is never durably persisted.
package store

import (
	"context"
	"time"
)

// Session states.
const (
	StateQueued    = "queued"
	StateStaging   = "staging"
	StateAnalyzing = "analyzing"
	StateDone      = "done"
	StateFailed    = "failed"
)

// Session is the transient record of one analysis request.
type Session struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	Warning    string     `json:"warning,omitempty"`
	SourceName string     `json:"source_name"`
	SourcePath string     `json:"source_path,omitempty"`
	PageCount  int        `json:"page_count"`
	Pages      []int      `json:"pages,omitempty"`
	RawResult  string     `json:"raw_result,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store is the transient session keeper. Implementations expire sessions
// after a TTL; Get on an expired or unknown ID reports found=false.
type Store interface {
	Set(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, bool, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
