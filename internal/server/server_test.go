package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "switcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  enabled: false\nwidget:\n  position: bottomleft\nsessions:\n  maxSessions: 2\n"), 0o644))

	srv, err := New(Config{Host: "localhost", Port: "0", DataDir: dir, ConfigPath: path, LogLevel: "error"})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func get(srv http.Handler, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t)

	rr := get(srv, "/", "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"plat-switcher"`)
	assert.NotEmpty(t, rr.Header().Values("Link"))

	rr = get(srv, "/", "text/html")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/ui", rr.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, get(srv, "/nope", "").Code)
}

func TestConfigReachesWidget(t *testing.T) {
	srv := newTestServer(t)

	rr := get(srv, "/ui", "text/html")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "minimap-switcher bottomleft")
	assert.Nil(t, srv.Services().DB)
}

func TestPageReloadsStayWithinSessionCap(t *testing.T) {
	srv := newTestServer(t)
	for range 5 {
		require.Equal(t, http.StatusOK, get(srv, "/ui", "text/html").Code)
	}
	assert.Len(t, srv.Services().Sessions.IDs(), 2)
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, time.Minute, sweepInterval(30*time.Minute))
	assert.Equal(t, 5*time.Second, sweepInterval(20*time.Second))
	assert.Equal(t, time.Second, sweepInterval(time.Second))
}

func TestTablesWithoutHistoryDB(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/api/v1/tables", "").Code)
}

func TestMetricsAndOpenAPI(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK, get(srv, "/health", "").Code)

	rr := get(srv, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `/health",status="200"`)

	spec := srv.OpenAPI()
	assert.Equal(t, "plat-switcher API", spec.Info.Title)
	_, ok := spec.Paths["/api/v1/sessions/{id}/select/{basemap}"]
	assert.True(t, ok)
	for p := range spec.Paths {
		assert.False(t, strings.HasPrefix(p, "/api/v1/editor"), p)
	}
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "switcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("widget:\n  position: middle\n"), 0o644))

	_, err := New(Config{DataDir: dir, ConfigPath: path, LogLevel: "error"})
	assert.Error(t, err)
}
