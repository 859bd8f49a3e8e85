// Package gemini wraps the hosted document-understanding service behind a
// small capability interface so the analyzer can be exercised against test
// doubles.
package gemini

import (
	"context"
	"errors"
)

// FileState is the lifecycle state of a staged remote file.
type FileState string

const (
	StateProcessing FileState = "PROCESSING"
	StateActive     FileState = "ACTIVE"
	StateFailed     FileState = "FAILED"
)

// FileHandle identifies a document staged with the remote service.
type FileHandle struct {
	Name     string
	URI      string
	MIMEType string
	State    FileState
}

// Generation is the outcome of one model invocation. A safety block is
// surfaced as data rather than an error so the caller can distinguish it
// from plain emptiness.
type Generation struct {
	Text        string
	BlockReason string
}

// Service is the remote capability consumed by the analyzer: stage a
// document, watch its state, run one structured extraction, release the
// handle, and (diagnostically) list the model identifiers the credentials
// can reach.
type Service interface {
	Stage(ctx context.Context, path, mimeType string) (FileHandle, error)
	Status(ctx context.Context, name string) (FileHandle, error)
	Generate(ctx context.Context, model string, file FileHandle, prompt string) (Generation, error)
	Delete(ctx context.Context, name string) error
	ListModels(ctx context.Context) ([]string, error)
}

// ErrNoAPIKey is returned by NewClient when no credential is configured.
var ErrNoAPIKey = errors.New("missing GEMINI_API_KEY")
