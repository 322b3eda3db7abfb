package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ripline/internal/disc"
	"ripline/internal/history"
	"ripline/internal/logging"
	"ripline/internal/pipeline"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/makemkv"
	"ripline/internal/services/servarr"
	"ripline/internal/tmdb"
)

// Drives enumerates optical drives and probes discs.
type Drives interface {
	Devices(ctx context.Context) ([]makemkv.Device, error)
	Probe(ctx context.Context, device string) (*disc.Disc, error)
}

// Library lists the registration targets of a Radarr or Sonarr instance.
type Library interface {
	QualityProfiles(ctx context.Context) ([]servarr.QualityProfile, error)
	RootFolders(ctx context.Context) ([]servarr.RootFolder, error)
}

// Jobs runs one rip job over a client connection.
type Jobs interface {
	Run(ctx context.Context, conn pipeline.Conn, params pipeline.Params) error
}

// JobHistory lists recorded jobs.
type JobHistory interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
}

// Dependencies wires the server to its backends. Nil Movies, Series or
// History make their routes answer with a configuration error.
type Dependencies struct {
	TMDB     tmdb.Searcher
	Drives   Drives
	Profiles func() ([]handbrake.Profile, error)
	Movies   Library
	Series   Library
	History  JobHistory
	Jobs     Jobs
}

// Options tunes request handling.
type Options struct {
	// Origin is the allowed CORS origin. Empty disables CORS headers and
	// lets the websocket accept any origin.
	Origin string
	// Languages is the default audio allow-list for title filtering.
	Languages []string
}

// Server holds the HTTP handlers.
type Server struct {
	deps     Dependencies
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer constructs a Server.
func NewServer(deps Dependencies, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)
	r.Use(s.cors)
	r.Use(metricsMiddleware(defaultSkipPaths))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	tmdbRoutes := api.PathPrefix("/tmdb").Subrouter()
	tmdbRoutes.HandleFunc("/search/movie", s.handleSearchMovie).Methods(http.MethodGet)
	tmdbRoutes.HandleFunc("/search/tv", s.handleSearchTV).Methods(http.MethodGet)
	tmdbRoutes.HandleFunc("/movie/{id:[0-9]+}", s.handleMovieDetails).Methods(http.MethodGet)
	tmdbRoutes.HandleFunc("/tv/{id:[0-9]+}", s.handleTVDetails).Methods(http.MethodGet)

	api.HandleFunc("/handbrake/encoding-presets", s.handleEncodingPresets).Methods(http.MethodGet)

	makemkvRoutes := api.PathPrefix("/makemkv").Subrouter()
	makemkvRoutes.HandleFunc("/devices", s.handleDevices).Methods(http.MethodGet)
	makemkvRoutes.HandleFunc("/titles/movie", s.handleMovieTitles).Methods(http.MethodGet)
	makemkvRoutes.HandleFunc("/titles/tv", s.handleTVTitles).Methods(http.MethodGet)
	makemkvRoutes.HandleFunc("/rip", s.handleRip).Methods(http.MethodGet)

	management := api.PathPrefix("/management").Subrouter()
	management.HandleFunc("/quality-profiles", s.handleQualityProfiles).Methods(http.MethodGet)
	management.HandleFunc("/root-folders", s.handleRootFolders).Methods(http.MethodGet)

	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)

	// Preflight requests are answered by the cors middleware; the route only
	// has to exist so mux does not reply 405.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if s.opts.Origin == "" || s.opts.Origin == "*" || origin == "" {
		return true
	}
	return origin == s.opts.Origin
}
