package main

import (
	"bytes"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tutorsim.ai/internal/metrics"
	"tutorsim.ai/internal/persistence/indexdb"
)

func TestRuntime_ServesHealthMetricsAndStats(t *testing.T) {
	dir := t.TempDir()
	rt, err := newRuntime(serverConfig{
		ConfigDir: filepath.Join("..", "..", "configs"),
		DataDir:   dir,
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	defer rt.Close()
	ts := httptest.NewServer(rt.mux(false))
	defer ts.Close()

	for path, want := range map[string]string{
		"/healthz":  "ok",
		"/metrics":  "tutorsim_sessions_active 0",
		"/v1/stats": `"tasks"`,
	} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != 200 || !strings.Contains(string(body), want) {
			t.Fatalf("GET %s: status=%d body=%s", path, resp.StatusCode, body)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "index", "episodes.sqlite")); err != nil {
		t.Fatalf("index not created: %v", err)
	}
}

func TestRuntime_DisabledIndexHidesStats(t *testing.T) {
	rt, err := newRuntime(serverConfig{
		ConfigDir: t.TempDir(), // no config files: defaults and built-in content
		DataDir:   t.TempDir(),
		DisableDB: true,
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	defer rt.Close()
	rec := httptest.NewRecorder()
	rt.mux(false).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/stats", nil))
	if rec.Code != 404 {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestRegisterIndexMetrics_LogsFailure(t *testing.T) {
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "episodes.sqlite"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()
	m := metrics.New()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	registerIndexMetrics(m, idx, logger)
	if buf.Len() != 0 {
		t.Fatalf("first registration logged: %s", buf.String())
	}
	registerIndexMetrics(m, idx, logger)
	if !strings.Contains(buf.String(), "index metrics:") {
		t.Fatalf("duplicate registration not logged: %q", buf.String())
	}
}
