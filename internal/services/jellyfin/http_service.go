package jellyfin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ripline/internal/config"
	"ripline/internal/services"
)

// Service defines the Jellyfin operations used by ripline.
type Service interface {
	Refresh(ctx context.Context) error
	Ping(ctx context.Context) error
}

// HTTPDoer describes the HTTP client used by the Jellyfin service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type noopService struct{}

func (noopService) Refresh(context.Context) error { return nil }
func (noopService) Ping(context.Context) error    { return nil }

type httpService struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewConfiguredService returns an HTTP-backed service when Jellyfin is
// enabled with a URL and API key, and a no-op service otherwise.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Jellyfin.Enabled {
		return noopService{}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Jellyfin.URL), "/")
	apiKey := strings.TrimSpace(cfg.Jellyfin.APIKey)
	if baseURL == "" || apiKey == "" {
		return noopService{}
	}
	return NewHTTPService(baseURL, apiKey, &http.Client{Timeout: 15 * time.Second})
}

// NewHTTPService constructs an HTTP-backed Jellyfin service.
func NewHTTPService(baseURL, apiKey string, client HTTPDoer) Service {
	return &httpService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

// Refresh asks Jellyfin to rescan every library.
func (s *httpService) Refresh(ctx context.Context) error {
	return s.send(ctx, http.MethodPost, "/Library/Refresh", "refresh")
}

// Ping checks that the server answers authenticated requests.
func (s *httpService) Ping(ctx context.Context) error {
	return s.send(ctx, http.MethodGet, "/System/Info", "ping")
}

func (s *httpService) send(ctx context.Context, method, path, operation string) error {
	if s == nil || s.client == nil || s.baseURL == "" || s.apiKey == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "jellyfin", operation, "build request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("MediaBrowser Token=%q", s.apiKey))

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "jellyfin", operation, "send request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrExternalService, "jellyfin", operation,
			fmt.Sprintf("returned %d", resp.StatusCode), nil)
	}
	return nil
}
