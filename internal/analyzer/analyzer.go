// Package analyzer drives one structured-extraction pass against the
// remote model service: stage, poll until ready, generate with ordered
// model fallback, release the staged handle.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/finsight/internal/gemini"
	mpkg "github.com/local/finsight/internal/metrics"
)

// Config bounds a single analysis call.
type Config struct {
	// Models are candidate identifiers tried in order; the first success
	// short-circuits the rest.
	Models []string
	// PollInterval is the sleep between staging-status checks.
	PollInterval time.Duration
	// PollTimeout is the wall-clock budget for the staging poll. The
	// remote job occasionally wedges; without a deadline the caller
	// blocks forever.
	PollTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.Models) == 0 {
		c.Models = []string{"gemini-1.5-flash"}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 2 * time.Minute
	}
	return c
}

// Analyzer runs synchronous, single-document extraction calls. Safe for
// concurrent use; calls share nothing.
type Analyzer struct {
	svc gemini.Service
	cfg Config
}

// New validates its preconditions up front: no service, no analyzer.
func New(svc gemini.Service, cfg Config) (*Analyzer, error) {
	if svc == nil {
		return nil, errors.New("analyzer requires a remote service")
	}
	return &Analyzer{svc: svc, cfg: cfg.withDefaults()}, nil
}

// Analyze stages the PDF at path, waits for it to become ready, and asks
// the model for the fixed financial field set. The return value is always
// a JSON object: the raw model text on success, or {"error": ..., "detail":
// ...} on failure, so callers have exactly one decoding path.
func (a *Analyzer) Analyze(ctx context.Context, path string) string {
	start := time.Now()
	text, err := a.analyze(ctx, path)
	if err != nil {
		mpkg.ObserveAnalysis("error", time.Since(start))
		return errorPayload(err)
	}
	mpkg.ObserveAnalysis("success", time.Since(start))
	return text
}

func (a *Analyzer) analyze(ctx context.Context, path string) (string, error) {
	handle, err := a.svc.Stage(ctx, path, "application/pdf")
	if err != nil {
		return "", &StagingError{State: "UPLOAD_FAILED: " + err.Error()}
	}
	// Release the remote handle on every exit path. A failed delete must
	// not mask the primary outcome.
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if derr := a.svc.Delete(dctx, handle.Name); derr != nil {
			log.Warn().Err(derr).Str("file", handle.Name).Msg("failed to release staged file")
		}
	}()

	handle, err = a.waitActive(ctx, handle)
	if err != nil {
		return "", err
	}

	gen, err := a.generateWithFallback(ctx, handle)
	if err != nil {
		return "", err
	}
	if gen.Text == "" {
		if gen.BlockReason != "" {
			return "", &BlockedError{Reason: gen.BlockReason}
		}
		return "", &EmptyResponseError{}
	}
	return gen.Text, nil
}

// waitActive polls the staged file until it leaves PROCESSING, bounded by
// the configured interval and wall-clock deadline.
func (a *Analyzer) waitActive(ctx context.Context, handle gemini.FileHandle) (gemini.FileHandle, error) {
	deadline := time.Now().Add(a.cfg.PollTimeout)
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for handle.State == gemini.StateProcessing {
		if time.Now().After(deadline) {
			return handle, &TimeoutError{Elapsed: a.cfg.PollTimeout}
		}
		select {
		case <-ctx.Done():
			return handle, ctx.Err()
		case <-ticker.C:
		}
		mpkg.IncStagingPoll()
		h, err := a.svc.Status(ctx, handle.Name)
		if err != nil {
			return handle, &StagingError{State: "STATUS_UNAVAILABLE: " + err.Error()}
		}
		handle = h
	}

	if handle.State != gemini.StateActive {
		return handle, &StagingError{State: string(handle.State)}
	}
	return handle, nil
}

// generateWithFallback tries each candidate model in order and returns the
// first success. When all candidates fail, the aggregate error carries the
// attempted identifiers plus a best-effort listing of reachable models.
func (a *Analyzer) generateWithFallback(ctx context.Context, handle gemini.FileHandle) (gemini.Generation, error) {
	var lastErr error
	for _, model := range a.cfg.Models {
		start := time.Now()
		gen, err := a.svc.Generate(ctx, model, handle, extractionPrompt)
		dur := time.Since(start)
		if err == nil {
			mpkg.ObserveModel(model, "success", dur)
			log.Debug().Str("model", model).Dur("duration", dur).Msg("model call succeeded")
			return gen, nil
		}
		mpkg.ObserveModel(model, "error", dur)
		log.Warn().Err(err).Str("model", model).Dur("duration", dur).Msg("model call failed, trying next candidate")
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	available, lerr := a.svc.ListModels(ctx)
	if lerr != nil {
		log.Warn().Err(lerr).Msg("model listing diagnostic failed")
	}
	return gemini.Generation{}, &ModelUnavailableError{
		Attempted: a.cfg.Models,
		Available: available,
		LastErr:   lastErr,
	}
}

// errorPayload folds the error taxonomy into the single textual result
// channel the caller decodes.
func errorPayload(err error) string {
	detail := ""

	var mu *ModelUnavailableError
	if errors.As(err, &mu) {
		detail = fmt.Sprintf("attempted models: %s", strings.Join(mu.Attempted, ", "))
		if len(mu.Available) > 0 {
			detail += "; available models: " + strings.Join(mu.Available, ", ")
		}
	}

	payload := map[string]string{"error": err.Error()}
	if detail != "" {
		payload["detail"] = detail
	}
	b, merr := json.Marshal(payload)
	if merr != nil {
		return `{"error":"analysis failed"}`
	}
	return string(b)
}
