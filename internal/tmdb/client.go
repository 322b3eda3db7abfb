package tmdb

import (
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

const stageName = "tmdb"

// Searcher is the subset of the client used by the API layer.
type Searcher interface {
	SearchMovie(ctx context.Context, query, language string) (*Response[MovieResult], error)
	SearchTV(ctx context.Context, query, language string) (*Response[TVResult], error)
	Movie(ctx context.Context, id int64, language string) (*Movie, error)
	TV(ctx context.Context, id int64, language string) (*Series, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a TMDB client. language is the default for requests that do
// not specify their own.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "tmdb api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "tmdb base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, stageName)
	return client, nil
}

// SearchMovie searches TMDB movies for query.
func (c *Client) SearchMovie(ctx context.Context, query, language string) (*Response[MovieResult], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "search movie", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	var payload Response[MovieResult]
	if err := c.get(ctx, "search movie", "/search/movie", language, params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchTV searches TMDB TV shows for query.
func (c *Client) SearchTV(ctx context.Context, query, language string) (*Response[TVResult], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "search tv", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	var payload Response[TVResult]
	if err := c.get(ctx, "search tv", "/search/tv", language, params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Movie fetches movie details by TMDB ID.
func (c *Client) Movie(ctx context.Context, id int64, language string) (*Movie, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "movie details", "movie id must be positive", nil)
	}
	var payload Movie
	if err := c.get(ctx, "movie details", "/movie/"+strconv.FormatInt(id, 10), language, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Season fetches one season of a TV show, including its episodes.
func (c *Client) Season(ctx context.Context, showID int64, number int, language string) (*Season, error) {
	if showID <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "season details", "show id must be positive", nil)
	}
	if number < 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "season details", "season number must not be negative", nil)
	}
	var payload Season
	path := fmt.Sprintf("/tv/%d/season/%d", showID, number)
	if err := c.get(ctx, "season details", path, language, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// TV fetches show details and replaces the season summaries with full
// payloads for seasons 1 through the season of the last aired episode.
func (c *Client) TV(ctx context.Context, id int64, language string) (*Series, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "tv details", "show id must be positive", nil)
	}
	params := url.Values{}
	params.Set("append_to_response", "external_ids")
	var payload Series
	if err := c.get(ctx, "tv details", "/tv/"+strconv.FormatInt(id, 10), language, params, &payload); err != nil {
		return nil, err
	}
	last := 0
	if payload.LastEpisodeToAir != nil {
		last = payload.LastEpisodeToAir.SeasonNumber
	}
	seasons := make([]Season, 0, last)
	for n := 1; n <= last; n++ {
		season, err := c.Season(ctx, id, n, language)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, *season)
	}
	payload.Seasons = seasons
	return &payload, nil
}

func (c *Client) get(ctx context.Context, operation, path, language string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, operation, "parse tmdb url", err)
	}
	if params == nil {
		params = url.Values{}
	}
	if lang := c.requestLanguage(language); lang != "" {
		params.Set("language", lang)
	}
	if !c.bearer() {
		params.Set("api_key", c.apiKey)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return services.Wrap(services.ErrExternalService, stageName, operation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.bearer() {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrExternalService, stageName, operation,
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	c.logger.Debug("tmdb request",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, stageName, operation, path, nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrExternalService, stageName, operation,
			fmt.Sprintf("returned %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(body))), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalService, stageName, operation, "decode response", err)
	}
	return nil
}

func (c *Client) requestLanguage(language string) string {
	if language = strings.TrimSpace(language); language != "" {
		return language
	}
	return c.language
}

// v4 read access tokens are JWTs; anything else is a v3 api key.
func (c *Client) bearer() bool {
	return strings.HasPrefix(c.apiKey, "eyJ") && strings.Count(c.apiKey, ".") == 2
}
