package api

import (
	"net/http"

	"ripline/internal/logging"
	"ripline/internal/pipeline"
)

// handleRip validates the job parameters, upgrades to a websocket and hands
// the connection to the job runner until the job ends.
func (s *Server) handleRip(w http.ResponseWriter, r *http.Request) {
	params, err := pipeline.ParseParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, "rip", err)
		return
	}
	if s.deps.Jobs == nil {
		s.fail(w, r, "rip", unconfigured("rip", "job runner unavailable"))
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		logging.WithContext(r.Context(), s.logger).Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	logger := logging.WithContext(r.Context(), s.logger)
	logger.Info("rip job requested",
		logging.String("device", params.Device),
		logging.Any("titles", params.Titles),
		logging.String("media_type", string(params.MediaType)),
	)
	if err := s.deps.Jobs.Run(r.Context(), conn, params); err != nil {
		logger.Debug("rip job ended with error", logging.Error(err))
	}
}
