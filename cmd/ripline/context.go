package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ripline/internal/api"
	"ripline/internal/config"
)

// daemonCommand marks commands that only need the daemon address. They skip
// the eager config load so --server works without a config file.
var daemonCommand = map[string]string{"skipConfigLoad": "true"}

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// serverAddress prefers --server and falls back to the configured bind.
func (c *commandContext) serverAddress() (string, error) {
	if c.serverFlag != nil {
		if server := strings.TrimSpace(*c.serverFlag); server != "" {
			return server, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", fmt.Errorf("resolve daemon address: %w (or pass --server)", err)
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	address, err := c.serverAddress()
	if err != nil {
		return err
	}
	client, err := api.NewClient(address)
	if err != nil {
		return err
	}
	return fn(client)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
