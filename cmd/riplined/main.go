// Command riplined serves the ripline HTTP and websocket API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ripline/internal/config"
	"ripline/internal/daemon"
	"ripline/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "riplined",
		Short:         "Serve the ripline job API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg, "riplined.log")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	application, err := buildApp(cfg, logger)
	if err != nil {
		logger.Error("wire services", logging.Error(err))
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close services", logging.Error(err))
		}
	}()

	d, err := daemon.New(cfg, application.handler, application.notifier, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	status := d.Status()
	logger.Info("riplined started",
		logging.String("api_address", status.APIAddress),
		logging.String("lock_file", status.LockFilePath),
		logging.Bool("disc_monitor", status.MonitorRunning),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	d.Stop()
	return nil
}
