package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ripline/internal/config"
	"ripline/internal/services"
)

const userAgent = "ripline/0.1.0"

// Event identifies a notification family.
type Event string

const (
	EventDiscDetected Event = "disc_detected"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Keys used: discTitle, discType, title,
// mediaType, stage, error.
type Payload map[string]string

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventDiscDetected: cfg.Notifications.DiscDetected,
			EventJobCompleted: cfg.Notifications.JobComplete,
			EventJobFailed:    cfg.Notifications.Errors,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(payload[key]); v != "" {
			return v
		}
		return fallback
	}
	switch event {
	case EventDiscDetected:
		return message{
			title: "ripline - Disc Detected",
			body:  fmt.Sprintf("📀 Disc detected: %s (%s)", get("discTitle", "unknown disc"), get("discType", "unknown")),
			tags:  []string{"ripline", "disc", "detected"},
		}, true
	case EventJobCompleted:
		return message{
			title:    "ripline - Complete",
			body:     fmt.Sprintf("✅ Uploaded: %s", get("title", "untitled")),
			tags:     []string{"ripline", "job", get("mediaType", "completed")},
			priority: "high",
		}, true
	case EventJobFailed:
		var b strings.Builder
		b.WriteString("❌ Error")
		if stage := get("stage", ""); stage != "" {
			b.WriteString(" during ")
			b.WriteString(stage)
		}
		if title := get("title", ""); title != "" {
			b.WriteString(" (")
			b.WriteString(title)
			b.WriteString(")")
		}
		b.WriteString(": ")
		b.WriteString(get("error", "unknown"))
		return message{
			title:    "ripline - Error",
			body:     b.String(),
			tags:     []string{"ripline", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "ripline - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"ripline", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notifications", "send", "build ntfy request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "notifications", "send", "send ntfy notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrExternalService, "notifications", "send",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
