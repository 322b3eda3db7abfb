package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ripline/internal/config"
	"ripline/internal/notifications"
)

type notifier interface {
	Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error
}

// configuredNotifier is swapped out in tests.
var configuredNotifier = func(cfg *config.Config) notifier {
	return notifications.NewService(cfg)
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(out, "Notification not sent: notifications.ntfy_topic is not configured")
				return nil
			}
			if err := configuredNotifier(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
