package analyzer

import (
	"fmt"
	"strings"
	"time"
)

// StagingError means the remote service never reported the staged document
// as ready for use.
type StagingError struct {
	State string
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("remote processing failed (state %s)", e.State)
}

// TimeoutError means the staging poll exhausted its wall-clock budget while
// the remote job was still processing.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("remote processing did not become ready within %s", e.Elapsed.Round(time.Second))
}

// ModelUnavailableError means every candidate model identifier was rejected.
// Available carries a best-effort listing of identifiers the credentials can
// actually reach, so an operator can fix the configuration.
type ModelUnavailableError struct {
	Attempted []string
	Available []string
	LastErr   error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("all model candidates failed (%s): %v", strings.Join(e.Attempted, ", "), e.LastErr)
}

func (e *ModelUnavailableError) Unwrap() error { return e.LastErr }

// BlockedError means the model returned no text but flagged a safety block.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("response blocked by the model (%s)", e.Reason)
}

// EmptyResponseError means the model returned neither text nor a block
// indicator.
type EmptyResponseError struct{}

func (e *EmptyResponseError) Error() string { return "model returned an empty response" }
