package servarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ripline/internal/logging"
	"ripline/internal/services"
)

// OriginalTag labels every item ripline adds so it can be told apart from
// items acquired by other means.
const OriginalTag = "original"

const (
	defaultPollInterval = 2 * time.Second
	defaultPollRetries  = 10
)

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends authenticated requests to one Radarr or Sonarr instance.
// baseURL includes the API prefix, e.g. http://host:7878/api/v3.
type Client struct {
	name         string
	baseURL      string
	apiKey       string
	http         HTTPDoer
	logger       *slog.Logger
	pollInterval time.Duration
	pollRetries  int
	sleep        func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPolling bounds command completion polling. Non-positive values keep
// the defaults (2s, 10 retries).
func WithPolling(interval time.Duration, retries int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if retries > 0 {
			c.pollRetries = retries
		}
	}
}

// NewClient builds a client. name is used in logs and errors ("radarr", "sonarr").
func NewClient(name, baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, name, "init", "url required", nil)
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, name, "init", "api key required", nil)
	}
	c := &Client{
		name:         name,
		baseURL:      baseURL,
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 30 * time.Second},
		logger:       logging.NewNop(),
		pollInterval: defaultPollInterval,
		pollRetries:  defaultPollRetries,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, name)
	return c, nil
}

// QualityProfiles lists the configured quality profiles.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var out []QualityProfile
	if err := c.do(ctx, http.MethodGet, "qualityprofile", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RootFolders lists the configured library root folders.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var out []RootFolder
	if err := c.do(ctx, http.MethodGet, "rootfolder", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertTag creates the tag, or returns the existing one with that label.
func (c *Client) UpsertTag(ctx context.Context, label string) (Tag, error) {
	var tags []Tag
	if err := c.do(ctx, http.MethodGet, "tag", nil, nil, &tags); err != nil {
		return Tag{}, err
	}
	for _, tag := range tags {
		if strings.EqualFold(tag.Label, label) {
			return tag, nil
		}
	}
	var created Tag
	if err := c.do(ctx, http.MethodPost, "tag", nil, Tag{Label: label}, &created); err != nil {
		return Tag{}, err
	}
	return created, nil
}

// command queues a command and returns its id.
func (c *Client) command(ctx context.Context, body commandBody) (int, error) {
	var status commandStatus
	if err := c.do(ctx, http.MethodPost, "command", nil, body, &status); err != nil {
		return 0, err
	}
	return status.ID, nil
}

// AwaitCommand polls command/<id> until it completes. A failed or aborted
// command is an external service error; running out of retries is a timeout.
func (c *Client) AwaitCommand(ctx context.Context, id int) error {
	for attempt := 0; ; attempt++ {
		var status commandStatus
		if err := c.do(ctx, http.MethodGet, "command/"+strconv.Itoa(id), nil, nil, &status); err != nil {
			return err
		}
		switch strings.ToLower(status.Status) {
		case "completed":
			return nil
		case "failed", "aborted", "cancelled":
			return services.Wrap(services.ErrExternalService, c.name, "command",
				fmt.Sprintf("command %d (%s) %s", id, status.Name, status.Status), nil)
		}
		if attempt >= c.pollRetries {
			return services.Wrap(services.ErrTimeout, c.name, "command",
				fmt.Sprintf("command %d did not complete after %d polls", id, attempt+1), nil)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return err
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, c.name, path, "encode request", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, c.name, path, "build request", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("servarr request", logging.String("method", method), logging.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, c.name, path, "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrExternalService
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, c.name, path,
			fmt.Sprintf("%s returned %d: %s", method, resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalService, c.name, path, "decode response", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
