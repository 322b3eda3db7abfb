package config

import (
	"fmt"
	"os"
	"strings"

	"ripline/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeServarr()
	c.normalizeJellyfin()
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	c.normalizeSelection()
	c.normalizeLogging()
	if c.History.Path != "" {
		var err error
		if c.History.Path, err = expandPath(c.History.Path); err != nil {
			return fmt.Errorf("history.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.Origin = strings.TrimRight(strings.TrimSpace(c.Paths.Origin), "/")
	return nil
}

func (c *Config) normalizeTools() error {
	c.MakeMKV.Binary = strings.TrimSpace(c.MakeMKV.Binary)
	if c.MakeMKV.Binary == "" {
		c.MakeMKV.Binary = defaultMakeMKVBinary
	}
	c.MakeMKV.OpticalDrive = strings.TrimSpace(c.MakeMKV.OpticalDrive)
	if c.MakeMKV.LockPath != "" {
		var err error
		if c.MakeMKV.LockPath, err = expandPath(c.MakeMKV.LockPath); err != nil {
			return fmt.Errorf("makemkv.lock_path: %w", err)
		}
	}
	c.HandBrake.Binary = strings.TrimSpace(c.HandBrake.Binary)
	if c.HandBrake.Binary == "" {
		c.HandBrake.Binary = defaultHandBrakeBinary
	}
	if strings.TrimSpace(c.HandBrake.ProfilesPath) == "" {
		c.HandBrake.ProfilesPath = defaultProfilesPath
	}
	var err error
	if c.HandBrake.ProfilesPath, err = expandPath(c.HandBrake.ProfilesPath); err != nil {
		return fmt.Errorf("handbrake.profiles_path: %w", err)
	}
	c.Encoding.Engine = strings.ToLower(strings.TrimSpace(c.Encoding.Engine))
	if c.Encoding.Engine == "" {
		c.Encoding.Engine = defaultEncodingEngine
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
}

func (c *Config) normalizeServarr() {
	for _, target := range []struct {
		cfg *Servarr
		env string
	}{
		{&c.Radarr, "RADARR_API_KEY"},
		{&c.Sonarr, "SONARR_API_KEY"},
	} {
		if target.cfg.APIKey == "" {
			if value, ok := os.LookupEnv(target.env); ok {
				target.cfg.APIKey = value
			}
		}
		target.cfg.APIKey = strings.TrimSpace(target.cfg.APIKey)
		target.cfg.URL = strings.TrimRight(strings.TrimSpace(target.cfg.URL), "/")
	}
}

func (c *Config) normalizeJellyfin() {
	if c.Jellyfin.APIKey == "" {
		if value, ok := os.LookupEnv("JELLYFIN_API_KEY"); ok {
			c.Jellyfin.APIKey = strings.TrimSpace(value)
		}
	}
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
}

func (c *Config) normalizeUpload() error {
	c.Upload.Host = strings.TrimSpace(c.Upload.Host)
	c.Upload.User = strings.TrimSpace(c.Upload.User)
	if c.Upload.Password == "" {
		if value, ok := os.LookupEnv("RIPLINE_SFTP_PASSWORD"); ok {
			c.Upload.Password = value
		}
	}
	if c.Upload.Port == 0 {
		c.Upload.Port = defaultUploadPort
	}
	if c.Upload.KnownHostsPath != "" {
		var err error
		if c.Upload.KnownHostsPath, err = expandPath(c.Upload.KnownHostsPath); err != nil {
			return fmt.Errorf("upload.known_hosts_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSelection() {
	c.Selection.Languages = language.NormalizeList(c.Selection.Languages)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
