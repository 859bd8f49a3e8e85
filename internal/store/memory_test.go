package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory(time.Minute)
	t.Cleanup(func() { _ = m.Close() })

	s := Session{ID: "abc", Status: StateQueued, SourceName: "report.pdf", CreatedAt: time.Now()}
	require.NoError(t, m.Set(context.Background(), s))

	got, ok, err := m.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateQueued, got.Status)
	assert.Equal(t, "report.pdf", got.SourceName)
}

func TestMemoryGetUnknown(t *testing.T) {
	m := NewMemory(time.Minute)
	t.Cleanup(func() { _ = m.Close() })

	_, ok, err := m.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(10 * time.Millisecond)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Set(context.Background(), Session{ID: "abc"}))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := m.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok, "expired session must not be returned")
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(time.Minute)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Set(context.Background(), Session{ID: "abc"}))
	require.NoError(t, m.Delete(context.Background(), "abc"))

	_, ok, err := m.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}
