package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ripline/internal/config"
	"ripline/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.HandBrake.ProfilesPath = filepath.Join(base, "profiles")
	cfg.MakeMKV.LockPath = filepath.Join(base, "makemkv.lock")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

func TestBuildAppServesHealthAndHistory(t *testing.T) {
	cfg := testConfig(t)
	application, err := buildApp(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	t.Cleanup(func() { _ = application.Close() })

	srv := httptest.NewServer(application.handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", resp.StatusCode)
	}
	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty history, got %d records", len(records))
	}
}

func TestBuildAppLeavesUnconfiguredIntegrationsUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = false
	application, err := buildApp(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	srv := httptest.NewServer(application.handler)
	t.Cleanup(srv.Close)

	for _, path := range []string{
		"/api/tmdb/search/movie?query=heat",
		"/api/management/root-folders?media_type=movie",
		"/api/management/quality-profiles?media_type=tv_show",
		"/api/history",
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestBuildAppRejectsUnknownEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Encoding.Engine = "ffmpeg"
	if _, err := buildApp(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}
