package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ripline/internal/disc"
	"ripline/internal/history"
	"ripline/internal/pipeline"
	"ripline/internal/services"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/makemkv"
	"ripline/internal/services/servarr"
	"ripline/internal/tmdb"
)

const defaultClientTimeout = 30 * time.Second

// Client talks to a running daemon over its HTTP API.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
}

// NewClient returns a client for the daemon at baseURL. A bare host:port is
// accepted and treated as http.
func NewClient(baseURL string) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "client", "daemon address required", nil)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "client", fmt.Sprintf("invalid daemon address %q", baseURL), err)
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: defaultClientTimeout},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// BaseURL returns the daemon address the client uses.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Healthz reports whether the daemon answers.
func (c *Client) Healthz(ctx context.Context) error {
	var out map[string]string
	return c.get(ctx, "/healthz", nil, &out)
}

// Devices lists optical drives known to MakeMKV.
func (c *Client) Devices(ctx context.Context) ([]makemkv.Device, error) {
	var out []makemkv.Device
	return out, c.get(ctx, "/api/makemkv/devices", nil, &out)
}

// MovieTitles probes device and returns the titles matching the movie runtime.
func (c *Client) MovieTitles(ctx context.Context, device string, tmdbID int64, langs []string) (*disc.Disc, error) {
	q := url.Values{}
	q.Set("device", device)
	q.Set("tmdb_id", strconv.FormatInt(tmdbID, 10))
	if len(langs) > 0 {
		q.Set("langs", strings.Join(langs, ","))
	}
	var out disc.Disc
	if err := c.get(ctx, "/api/makemkv/titles/movie", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TVTitles probes device and returns the titles matching the episode runtimes.
func (c *Client) TVTitles(ctx context.Context, device string, tmdbID int64, season int, episodes []int, langs []string) (*disc.Disc, error) {
	q := url.Values{}
	q.Set("device", device)
	q.Set("tmdb_id", strconv.FormatInt(tmdbID, 10))
	q.Set("season", strconv.Itoa(season))
	q.Set("episodes", joinInts(episodes))
	if len(langs) > 0 {
		q.Set("langs", strings.Join(langs, ","))
	}
	var out disc.Disc
	if err := c.get(ctx, "/api/makemkv/titles/tv", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profiles lists the encoding profiles of the daemon's engine.
func (c *Client) Profiles(ctx context.Context) ([]handbrake.Profile, error) {
	var out []handbrake.Profile
	return out, c.get(ctx, "/api/handbrake/encoding-presets", nil, &out)
}

// QualityProfiles lists the Radarr or Sonarr quality profiles for kind.
func (c *Client) QualityProfiles(ctx context.Context, kind pipeline.MediaKind) ([]servarr.QualityProfile, error) {
	var out []servarr.QualityProfile
	return out, c.get(ctx, "/api/management/quality-profiles", url.Values{"media_type": {string(kind)}}, &out)
}

// RootFolders lists the Radarr or Sonarr root folders for kind.
func (c *Client) RootFolders(ctx context.Context, kind pipeline.MediaKind) ([]servarr.RootFolder, error) {
	var out []servarr.RootFolder
	return out, c.get(ctx, "/api/management/root-folders", url.Values{"media_type": {string(kind)}}, &out)
}

// History returns up to limit recent jobs, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]history.Record, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []history.Record
	return out, c.get(ctx, "/api/history", q, &out)
}

func (c *Client) SearchMovie(ctx context.Context, query, language string) (*tmdb.Response[tmdb.MovieResult], error) {
	var out tmdb.Response[tmdb.MovieResult]
	if err := c.get(ctx, "/api/tmdb/search/movie", searchQuery(query, language), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchTV(ctx context.Context, query, language string) (*tmdb.Response[tmdb.TVResult], error) {
	var out tmdb.Response[tmdb.TVResult]
	if err := c.get(ctx, "/api/tmdb/search/tv", searchQuery(query, language), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Movie(ctx context.Context, id int64, language string) (*tmdb.Movie, error) {
	var out tmdb.Movie
	if err := c.get(ctx, "/api/tmdb/movie/"+strconv.FormatInt(id, 10), searchQuery("", language), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TV(ctx context.Context, id int64, language string) (*tmdb.Series, error) {
	var out tmdb.Series
	if err := c.get(ctx, "/api/tmdb/tv/"+strconv.FormatInt(id, 10), searchQuery("", language), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamEvent is one job event as received by a client.
type StreamEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Progress decodes the payload of a <stage>_progress event.
func (e StreamEvent) Progress() (pipeline.ProgressPayload, bool) {
	var p pipeline.ProgressPayload
	if !strings.HasSuffix(e.Type, "_progress") || len(e.Payload) == 0 {
		return p, false
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, false
	}
	return p, true
}

// Failure decodes the payload of a <stage>_error event.
func (e StreamEvent) Failure() (pipeline.ErrorPayload, bool) {
	var p pipeline.ErrorPayload
	if !strings.HasSuffix(e.Type, "_error") {
		return p, false
	}
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &p)
	}
	return p, true
}

// JobError is returned by Rip when the job reported a stage failure.
type JobError struct {
	Stage   string
	Message string
	Kind    string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Message)
}

// Unwrap exposes the failure kind as the matching services marker.
func (e *JobError) Unwrap() error {
	return markerForKind(e.Kind)
}

// Rip starts a job and streams its events to onEvent until the daemon closes
// the connection. Cancelling ctx sends a cancel request and keeps reading so
// cleanup finishes before Rip returns.
func (c *Client) Rip(ctx context.Context, params pipeline.Params, onEvent func(StreamEvent)) error {
	target := *c.base
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}
	target.Path = strings.TrimRight(target.Path, "/") + "/api/makemkv/rip"
	target.RawQuery = params.Values().Encode()

	conn, resp, err := c.dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeError(resp)
		}
		return services.Wrap(services.ErrExternalService, "api", "rip", "connect to daemon", err)
	}
	defer conn.Close()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.TextMessage, []byte(pipeline.CancelMessage))
		case <-finished:
		}
	}()

	var jobErr *JobError
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if jobErr != nil {
				return jobErr
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || websocket.IsUnexpectedCloseError(err) {
				return nil
			}
			return services.Wrap(services.ErrExternalService, "api", "rip", "read event", err)
		}
		var ev StreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if failure, ok := ev.Failure(); ok && jobErr == nil {
			jobErr = &JobError{Stage: strings.TrimSuffix(ev.Type, "_error"), Message: failure.Message, Kind: failure.Kind}
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "api", "client", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "api", "client", "GET "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrMalformed, "api", "client", "decode "+path, err)
	}
	return nil
}

// decodeError turns an error response back into a classified error.
func decodeError(resp *http.Response) error {
	var body errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		message = body.Error
	}
	if message == "" {
		message = resp.Status
	}
	return fmt.Errorf("%w: daemon: %s", markerForStatus(resp.StatusCode), message)
}

func markerForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusBadRequest, http.StatusForbidden, http.StatusMethodNotAllowed:
		return services.ErrValidation
	case http.StatusServiceUnavailable:
		return services.ErrConfiguration
	case http.StatusGatewayTimeout:
		return services.ErrTimeout
	default:
		return services.ErrExternalService
	}
}

func markerForKind(kind string) error {
	switch kind {
	case services.KindNotFound:
		return services.ErrNotFound
	case services.KindMalformed:
		return services.ErrMalformed
	case services.KindValidation:
		return services.ErrValidation
	case services.KindConfiguration:
		return services.ErrConfiguration
	case services.KindTimeout:
		return services.ErrTimeout
	case services.KindExternalTool:
		return services.ErrExternalTool
	case services.KindExternalService:
		return services.ErrExternalService
	default:
		return nil
	}
}

func searchQuery(query, language string) url.Values {
	q := url.Values{}
	if query != "" {
		q.Set("query", query)
	}
	if language != "" {
		q.Set("lang", language)
	}
	return q
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
