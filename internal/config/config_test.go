package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ripline/internal/config"
)

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "ripline", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.EncodingDir() != filepath.Join(wantOutput, "encoding") {
		t.Fatalf("unexpected encoding dir: %q", cfg.EncodingDir())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7590" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Encoding.Engine != config.EngineHandBrake {
		t.Fatalf("unexpected engine: %q", cfg.Encoding.Engine)
	}
	if cfg.Upload.Port != 22 {
		t.Fatalf("unexpected upload port: %d", cfg.Upload.Port)
	}
	if len(cfg.Selection.Languages) != 1 || cfg.Selection.Languages[0] != "eng" {
		t.Fatalf("unexpected languages: %v", cfg.Selection.Languages)
	}
	if cfg.Workflow.CommandPollRetries != 10 || cfg.Workflow.CommandPollInterval != 2 {
		t.Fatalf("unexpected poll settings: %+v", cfg.Workflow)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "state", "ripline", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.OutputDir, cfg.EncodingDir(), cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ripline.toml")

	type payload struct {
		TMDB struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"tmdb"`
		Radarr struct {
			URL string `toml:"url"`
		} `toml:"radarr"`
		Selection struct {
			Languages []string `toml:"languages"`
		} `toml:"selection"`
		Upload struct {
			Host string `toml:"host"`
			User string `toml:"user"`
		} `toml:"upload"`
	}
	custom := payload{}
	custom.TMDB.APIKey = "abc123"
	custom.TMDB.BaseURL = "https://example.com/tmdb/"
	custom.Radarr.URL = " http://radarr:7878/api/v3/ "
	custom.Selection.Languages = []string{"en", "ger", "eng"}
	custom.Upload.Host = "nas.local"
	custom.Upload.User = "media"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.TMDB.APIKey != "abc123" {
		t.Fatalf("expected TMDB key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != "https://example.com/tmdb" {
		t.Fatalf("expected trimmed TMDB base url, got %q", cfg.TMDB.BaseURL)
	}
	if cfg.Radarr.URL != "http://radarr:7878/api/v3" {
		t.Fatalf("expected trimmed radarr url, got %q", cfg.Radarr.URL)
	}
	if got := strings.Join(cfg.Selection.Languages, ","); got != "eng,deu" {
		t.Fatalf("expected canonical languages, got %q", got)
	}
	if cfg.UploadAddress() != "nas.local:22" {
		t.Fatalf("unexpected upload address: %q", cfg.UploadAddress())
	}
}

func TestConfigFileWinsOverEnvFallbacks(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ripline.toml")

	type payload struct {
		TMDB struct {
			APIKey string `toml:"api_key"`
		} `toml:"tmdb"`
		Sonarr struct {
			APIKey string `toml:"api_key"`
		} `toml:"sonarr"`
	}
	custom := payload{}
	custom.TMDB.APIKey = "file-tmdb"
	custom.Sonarr.APIKey = "file-sonarr"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("TMDB_API_KEY", "env-tmdb")
	t.Setenv("SONARR_API_KEY", "env-sonarr")
	t.Setenv("RADARR_API_KEY", "env-radarr")
	t.Setenv("JELLYFIN_API_KEY", "env-jellyfin")
	t.Setenv("RIPLINE_SFTP_PASSWORD", "env-secret")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "file-tmdb" {
		t.Errorf("expected TMDB key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Sonarr.APIKey != "file-sonarr" {
		t.Errorf("expected Sonarr key from file, got %q", cfg.Sonarr.APIKey)
	}
	if cfg.Radarr.APIKey != "env-radarr" {
		t.Errorf("expected Radarr key from env, got %q", cfg.Radarr.APIKey)
	}
	if cfg.Jellyfin.APIKey != "env-jellyfin" {
		t.Errorf("expected Jellyfin key from env, got %q", cfg.Jellyfin.APIKey)
	}
	if cfg.Upload.Password != "env-secret" {
		t.Errorf("expected SFTP password from env, got %q", cfg.Upload.Password)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "ripline") {
		t.Fatalf("expected output dir to contain ripline, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Encoding.Engine != config.EngineHandBrake {
		t.Fatalf("unexpected sample engine: %q", cfg.Encoding.Engine)
	}
	if cfg.Workflow.CommandPollRetries != 10 {
		t.Fatalf("unexpected sample poll retries: %d", cfg.Workflow.CommandPollRetries)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing tmdb key", func(c *config.Config) { c.TMDB.APIKey = "" }},
		{"bad tmdb language", func(c *config.Config) { c.TMDB.Language = "not a tag!" }},
		{"unknown engine", func(c *config.Config) { c.Encoding.Engine = "ffmpeg" }},
		{"jellyfin without url", func(c *config.Config) { c.Jellyfin.Enabled = true; c.Jellyfin.APIKey = "k" }},
		{"jellyfin without key", func(c *config.Config) { c.Jellyfin.Enabled = true; c.Jellyfin.URL = "http://jf" }},
		{"upload port", func(c *config.Config) { c.Upload.Port = 70000 }},
		{"upload host without user", func(c *config.Config) { c.Upload.Host = "nas" }},
		{"no languages", func(c *config.Config) { c.Selection.Languages = nil }},
		{"poll retries", func(c *config.Config) { c.Workflow.CommandPollRetries = 0 }},
		{"poll interval", func(c *config.Config) { c.Workflow.CommandPollInterval = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.TMDB.APIKey = "key"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	cfg.TMDB.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with key to validate, got %v", err)
	}
}
