package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mixdown/internal/logging"
	"mixdown/internal/services"
)

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
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the error taxonomy onto HTTP statuses: unknown ids
// are 404, uniqueness and busy conflicts are 409, caller mistakes are 400,
// and everything else is a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrDuplicatePath),
		errors.Is(err, services.ErrDuplicateModule),
		errors.Is(err, services.ErrDispatchBusy):
		status = http.StatusConflict
	case errors.Is(err, services.ErrMultiplicity),
		errors.Is(err, services.ErrIndexOutOfRange),
		errors.Is(err, services.ErrInvalidParams),
		errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func decodeBody(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "decode request", "malformed JSON body", err)
	}
	return nil
}
