package config

import (
	"errors"
	"fmt"
	"strings"

	"ripline/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'ripline config init')", defaultPath)
	}
	if !language.ValidTag(c.TMDB.Language) {
		return fmt.Errorf("tmdb.language %q is not a valid language tag", c.TMDB.Language)
	}
	return nil
}

func (c *Config) validateEncoding() error {
	switch c.Encoding.Engine {
	case EngineHandBrake, EngineDrapto:
	default:
		return fmt.Errorf("encoding.engine must be %q or %q, got %q", EngineHandBrake, EngineDrapto, c.Encoding.Engine)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if !c.Jellyfin.Enabled {
		return nil
	}
	if c.Jellyfin.URL == "" {
		return errors.New("jellyfin.url must be set when jellyfin.enabled is true")
	}
	if c.Jellyfin.APIKey == "" {
		return errors.New("jellyfin.api_key must be set when jellyfin.enabled is true")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.Port < 1 || c.Upload.Port > 65535 {
		return fmt.Errorf("upload.port must be between 1 and 65535, got %d", c.Upload.Port)
	}
	if c.Upload.Host != "" && c.Upload.User == "" {
		return errors.New("upload.user must be set when upload.host is set")
	}
	return nil
}

func (c *Config) validateSelection() error {
	if len(c.Selection.Languages) == 0 {
		return errors.New("selection.languages must include at least one language")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
		"workflow.command_poll_interval": c.Workflow.CommandPollInterval,
		"workflow.command_poll_retries":  c.Workflow.CommandPollRetries,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
