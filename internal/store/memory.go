package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Memory is the default in-process session store. A janitor goroutine
// expires sessions and removes their staged source files.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]memEntry
	ttl      time.Duration
	stop     chan struct{}
	once     sync.Once
}

type memEntry struct {
	s       Session
	expires time.Time
}

// NewMemory creates a memory store whose sessions expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	m := &Memory{
		sessions: make(map[string]memEntry),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *Memory) Set(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memEntry{s: s, expires: time.Now().Add(m.ttl)}
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok || time.Now().After(e.expires) {
		return Session{}, false, nil
	}
	return e.s, true, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		removeSource(e.s)
		delete(m.sessions, id)
	}
	return nil
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for id, e := range m.sessions {
				if now.After(e.expires) {
					removeSource(e.s)
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// removeSource drops the staged temp copy owned by the session, if any.
// Sources analyzed in place (plain server paths) are left alone; only our
// own staged copies carry the temp prefix.
func removeSource(s Session) {
	if s.SourcePath != "" && strings.HasPrefix(filepath.Base(s.SourcePath), "finsight-") {
		_ = os.Remove(s.SourcePath)
	}
}
