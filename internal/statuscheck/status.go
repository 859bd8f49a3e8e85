package statuscheck

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/local/finsight/internal/gemini"
	"github.com/local/finsight/internal/store"
)

// Summary reports the readiness of every dependency the service needs.
type Summary struct {
	Gemini    Item `json:"gemini"`
	Sessions  Item `json:"sessions"`
	UploadDir Item `json:"upload_dir"`
	Healthy   bool `json:"healthy"`
}

type Item struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Checker probes the dependencies wired at startup.
type Checker struct {
	svc       gemini.Service
	sessions  store.Store
	uploadDir string
}

func New(svc gemini.Service, sessions store.Store, uploadDir string) *Checker {
	return &Checker{svc: svc, sessions: sessions, uploadDir: uploadDir}
}

// Check runs all probes. Gemini is probed with a model listing, which
// verifies both the API key and network reachability.
func (c *Checker) Check(ctx context.Context) Summary {
	var s Summary

	s.Gemini = c.checkGemini(ctx)
	s.Sessions = c.checkSessions(ctx)
	s.UploadDir = c.checkUploadDir()

	s.Healthy = s.Gemini.OK && s.Sessions.OK && s.UploadDir.OK
	return s
}

func (c *Checker) checkGemini(ctx context.Context) Item {
	if c.svc == nil {
		return Item{OK: false, Detail: "not configured (missing API key)"}
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	models, err := c.svc.ListModels(ctx)
	if err != nil {
		return Item{OK: false, Detail: err.Error()}
	}
	if len(models) == 0 {
		return Item{OK: false, Detail: "no models available"}
	}
	return Item{OK: true}
}

func (c *Checker) checkSessions(ctx context.Context) Item {
	if c.sessions == nil {
		return Item{OK: false, Detail: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, _, err := c.sessions.Get(ctx, "statuscheck-probe"); err != nil {
		return Item{OK: false, Detail: err.Error()}
	}
	return Item{OK: true}
}

func (c *Checker) checkUploadDir() Item {
	f, err := os.CreateTemp(c.uploadDir, "statuscheck-*")
	if err != nil {
		return Item{OK: false, Detail: err.Error()}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Item{OK: true, Detail: filepath.Clean(c.uploadDir)}
}
