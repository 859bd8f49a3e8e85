package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/finsight/internal/gemini"
)

// fakeService scripts the remote side of an analysis call.
type fakeService struct {
	stageState gemini.FileState
	stageErr   error
	statusSeq  []gemini.FileState // consumed one per Status call; last repeats
	statusCall int
	generate   func(model string) (gemini.Generation, error)
	models     []string
	deleteErr  error
	deleted    []string
}

func (f *fakeService) Stage(ctx context.Context, path, mime string) (gemini.FileHandle, error) {
	if f.stageErr != nil {
		return gemini.FileHandle{}, f.stageErr
	}
	st := f.stageState
	if st == "" {
		st = gemini.StateProcessing
	}
	return gemini.FileHandle{Name: "files/abc", URI: "uri://abc", MIMEType: mime, State: st}, nil
}

func (f *fakeService) Status(ctx context.Context, name string) (gemini.FileHandle, error) {
	i := f.statusCall
	if i >= len(f.statusSeq) {
		i = len(f.statusSeq) - 1
	}
	f.statusCall++
	return gemini.FileHandle{Name: name, URI: "uri://abc", State: f.statusSeq[i]}, nil
}

func (f *fakeService) Generate(ctx context.Context, model string, file gemini.FileHandle, prompt string) (gemini.Generation, error) {
	return f.generate(model)
}

func (f *fakeService) Delete(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return f.deleteErr
}

func (f *fakeService) ListModels(ctx context.Context) ([]string, error) {
	return f.models, nil
}

func testConfig(models ...string) Config {
	return Config{
		Models:       models,
		PollInterval: time.Millisecond,
		PollTimeout:  50 * time.Millisecond,
	}
}

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m), "result must always be JSON: %s", raw)
	return m
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(nil, Config{})
	require.Error(t, err)
}

func TestAnalyzeSuccess(t *testing.T) {
	svc := &fakeService{
		statusSeq: []gemini.FileState{gemini.StateProcessing, gemini.StateActive},
		generate: func(model string) (gemini.Generation, error) {
			return gemini.Generation{Text: `{"company_name":"Acme Corp","fiscal_year":"2024"}`}, nil
		},
	}
	a, err := New(svc, testConfig("gemini-1.5-flash"))
	require.NoError(t, err)

	out := a.Analyze(context.Background(), "report.pdf")
	m := decode(t, out)
	assert.Equal(t, "Acme Corp", m["company_name"])
	assert.NotContains(t, m, "error")
	assert.Equal(t, []string{"files/abc"}, svc.deleted, "staged handle must be released")
}

func TestAnalyzeNeverReady(t *testing.T) {
	svc := &fakeService{
		statusSeq: []gemini.FileState{gemini.StateProcessing},
		generate: func(string) (gemini.Generation, error) {
			t.Fatal("generate must not be called when staging never completes")
			return gemini.Generation{}, nil
		},
	}
	a, err := New(svc, testConfig("gemini-1.5-flash"))
	require.NoError(t, err)

	m := decode(t, a.Analyze(context.Background(), "report.pdf"))
	assert.Contains(t, m["error"], "did not become ready")
	assert.NotEmpty(t, svc.deleted)
}

func TestAnalyzeStagingFailedState(t *testing.T) {
	svc := &fakeService{
		statusSeq: []gemini.FileState{gemini.StateFailed},
	}
	a, err := New(svc, testConfig("gemini-1.5-flash"))
	require.NoError(t, err)

	m := decode(t, a.Analyze(context.Background(), "report.pdf"))
	assert.Contains(t, m["error"], "FAILED")
	assert.NotEmpty(t, svc.deleted)
}

func TestAnalyzeFallbackModelSucceeds(t *testing.T) {
	svc := &fakeService{
		stageState: gemini.StateActive,
		generate: func(model string) (gemini.Generation, error) {
			if model == "gemini-1.5-flash" {
				return gemini.Generation{}, errors.New("404 model not found")
			}
			return gemini.Generation{Text: `{"company_name":"Acme Corp"}`}, nil
		},
	}
	a, err := New(svc, testConfig("gemini-1.5-flash", "gemini-1.5-flash-002"))
	require.NoError(t, err)

	m := decode(t, a.Analyze(context.Background(), "report.pdf"))
	assert.Equal(t, "Acme Corp", m["company_name"])
	assert.NotContains(t, m, "error")
}

func TestAnalyzeAllModelsRejected(t *testing.T) {
	svc := &fakeService{
		stageState: gemini.StateActive,
		generate: func(model string) (gemini.Generation, error) {
			return gemini.Generation{}, errors.New("404 model not found")
		},
		models: []string{"models/gemini-2.0-flash"},
	}
	a, err := New(svc, testConfig("bogus-a", "bogus-b"))
	require.NoError(t, err)

	m := decode(t, a.Analyze(context.Background(), "report.pdf"))
	assert.Contains(t, m["error"], "all model candidates failed")
	assert.Contains(t, m["detail"], "bogus-a")
	assert.Contains(t, m["detail"], "models/gemini-2.0-flash")
}

func TestAnalyzeBlockedResponse(t *testing.T) {
	svc := &fakeService{
		stageState: gemini.StateActive,
		generate: func(string) (gemini.Generation, error) {
			return gemini.Generation{BlockReason: "SAFETY"}, nil
		},
	}
	a, err := New(svc, testConfig("gemini-1.5-flash"))
	require.NoError(t, err)

	m := decode(t, a.Analyze(context.Background(), "report.pdf"))
	assert.Contains(t, m["error"], "SAFETY")
	assert.NotContains(t, m["error"], "empty")
}

func TestAnalyzeEmptyResponse(t *testing.T) {
	svc := &fakeService{
		stageState: gemini.StateActive,
		generate: func(string) (gemini.Generation, error) {
			return gemini.Generation{}, nil
		},
	}
	a, err := New(svc, testConfig("gemini-1.5-flash"))
	require.NoError(t, err)

	m := decode(t, a.Analyze(context.Background(), "report.pdf"))
	assert.Contains(t, m["error"], "empty")
}

func TestAnalyzeCleanupFailureDoesNotMaskResult(t *testing.T) {
	svc := &fakeService{
		stageState: gemini.StateActive,
		deleteErr:  errors.New("delete refused"),
		generate: func(string) (gemini.Generation, error) {
			return gemini.Generation{Text: `{"company_name":"Acme Corp"}`}, nil
		},
	}
	a, err := New(svc, testConfig("gemini-1.5-flash"))
	require.NoError(t, err)

	m := decode(t, a.Analyze(context.Background(), "report.pdf"))
	assert.Equal(t, "Acme Corp", m["company_name"])
	assert.NotContains(t, m, "error")
}
