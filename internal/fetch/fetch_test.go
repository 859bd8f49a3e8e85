package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/finsight/internal/pdftest"
)

func TestToTempHTTP(t *testing.T) {
	body := pdftest.Bytes(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	path, cleanup, err := ToTemp(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	defer cleanup()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cleanup must remove the temp copy")
}

func TestToTempHTTPWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer srv.Close()

	_, _, err := ToTemp(context.Background(), srv.URL, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content-type")
}

func TestToTempHTTPNotPDFBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("plain text pretending"))
	}))
	defer srv.Close()

	_, _, err := ToTemp(context.Background(), srv.URL, Options{})
	require.Error(t, err)
}

func TestToTempHTTPSizeLimit(t *testing.T) {
	body := pdftest.Bytes(3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	_, _, err := ToTemp(context.Background(), srv.URL, Options{MaxBytes: 16})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestToTempLocalPath(t *testing.T) {
	path := pdftest.Write(t, 1)

	got, cleanup, err := ToTemp(context.Background(), path, Options{})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, path, got, "local paths are used in place")

	cleanup()
	_, err = os.Stat(path)
	assert.NoError(t, err, "cleanup must not delete caller-owned files")
}

func TestToTempFileURL(t *testing.T) {
	path := pdftest.Write(t, 1)

	got, cleanup, err := ToTemp(context.Background(), "file://"+path, Options{})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, path, got)
}

func TestToTempMissingFile(t *testing.T) {
	_, _, err := ToTemp(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCleanupTemps(t *testing.T) {
	old, err := os.CreateTemp("", "finsight-dl-*.pdf")
	require.NoError(t, err)
	require.NoError(t, old.Close())
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old.Name(), stale, stale))

	fresh, err := os.CreateTemp("", "finsight-dl-*.pdf")
	require.NoError(t, err)
	require.NoError(t, fresh.Close())
	defer os.Remove(fresh.Name())

	CleanupTemps(time.Hour)

	_, err = os.Stat(old.Name())
	assert.True(t, os.IsNotExist(err), "stale temp must be removed")
	_, err = os.Stat(fresh.Name())
	assert.NoError(t, err, "fresh temp must survive")
}

func TestCleanupTempsSweepsExtraDirs(t *testing.T) {
	uploadDir := t.TempDir()
	orphan, err := os.CreateTemp(uploadDir, "finsight-up-*.pdf")
	require.NoError(t, err)
	require.NoError(t, orphan.Close())
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(orphan.Name(), stale, stale))

	foreign := filepath.Join(uploadDir, "keep.pdf")
	require.NoError(t, os.WriteFile(foreign, []byte("%PDF"), 0o644))
	require.NoError(t, os.Chtimes(foreign, stale, stale))

	CleanupTemps(time.Hour, uploadDir)

	_, err = os.Stat(orphan.Name())
	assert.True(t, os.IsNotExist(err), "orphaned upload must be removed")
	_, err = os.Stat(foreign)
	assert.NoError(t, err, "files without our prefix are left alone")
}
