package api

import (
	"encoding/json"
	"net/http"

	"ripline/internal/logging"
	"ripline/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// fail logs err against the request and answers with the mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	logger := logging.WithContext(r.Context(), s.logger)
	attrs := []logging.Attr{
		logging.String("operation", operation),
		logging.String("error_kind", services.Kind(err)),
		logging.Int("status", status),
		logging.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logger, "request failed", "api_request_failed", attrs...)
	} else {
		logger.Debug("request rejected", logging.Args(attrs...)...)
	}
	s.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch services.Kind(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindConfiguration:
		return http.StatusServiceUnavailable
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	case services.KindExternalTool, services.KindExternalService, services.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func invalid(operation, message string) error {
	return services.Wrap(services.ErrValidation, "api", operation, message, nil)
}

func unconfigured(operation, message string) error {
	return services.Wrap(services.ErrConfiguration, "api", operation, message, nil)
}
