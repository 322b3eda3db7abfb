package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
	APIBind   string `toml:"api_bind"`
	Origin    string `toml:"origin"`
}

// MakeMKV contains configuration for disc probing and ripping.
type MakeMKV struct {
	Binary       string `toml:"binary"`
	OpticalDrive string `toml:"optical_drive"`
	// LockPath serializes makemkvcon across processes when set.
	LockPath string `toml:"lock_path"`
}

// HandBrake contains configuration for the HandBrake encoder.
type HandBrake struct {
	Binary       string `toml:"binary"`
	ProfilesPath string `toml:"profiles_path"`
}

// Encoding selects the encode engine.
type Encoding struct {
	Engine string `toml:"engine"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Servarr contains connection settings for Radarr or Sonarr.
type Servarr struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// Jellyfin contains configuration for Jellyfin Media Server integration.
type Jellyfin struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
}

// Upload describes the SFTP target that receives encoded files.
type Upload struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	KnownHostsPath string `toml:"known_hosts_path"`
}

// Selection controls main-feature detection.
type Selection struct {
	Languages []string `toml:"languages"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	DiscDetected   bool   `toml:"disc_detected"`
	JobComplete    bool   `toml:"job_complete"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History controls the job audit log.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	CommandPollInterval int  `toml:"command_poll_interval"`
	CommandPollRetries  int  `toml:"command_poll_retries"`
	DiscMonitor         bool `toml:"disc_monitor"`
}

// Config encapsulates all configuration values for ripline.
//
// Configuration sections by subsystem:
//   - Paths: output/log/state directories, API bind address, CORS origin
//   - MakeMKV / HandBrake / Encoding: external tools and engine choice
//   - TMDB: runtime lookups used to pick the main feature
//   - Radarr / Sonarr: library registration and renames
//   - Jellyfin: library refresh after upload
//   - Upload: SFTP target
//   - Selection: audio language allow-list
//   - Notifications: ntfy push notification settings
//   - Logging, History, Workflow: daemon behaviour
type Config struct {
	Paths         Paths         `toml:"paths"`
	MakeMKV       MakeMKV       `toml:"makemkv"`
	HandBrake     HandBrake     `toml:"handbrake"`
	Encoding      Encoding      `toml:"encoding"`
	TMDB          TMDB          `toml:"tmdb"`
	Radarr        Servarr       `toml:"radarr"`
	Sonarr        Servarr       `toml:"sonarr"`
	Jellyfin      Jellyfin      `toml:"jellyfin"`
	Upload        Upload        `toml:"upload"`
	Selection     Selection     `toml:"selection"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	History       History       `toml:"history"`
	Workflow      Workflow      `toml:"workflow"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ripline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.EncodingDir(), c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EncodingDir is where encoded files are written before upload.
func (c *Config) EncodingDir() string {
	return filepath.Join(c.Paths.OutputDir, "encoding")
}

// HistoryPath returns the sqlite database path for the job history.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "riplined.lock")
}

// UploadAddress returns host:port for the SFTP target.
func (c *Config) UploadAddress() string {
	return fmt.Sprintf("%s:%d", c.Upload.Host, c.Upload.Port)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
