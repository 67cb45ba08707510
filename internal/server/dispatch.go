package server

import (
	"net/http"
	"strings"

	"mixdown/internal/services"
)

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var req dispatchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	moduleID := strings.TrimSpace(req.ModuleID)
	if moduleID == "" {
		s.writeServiceError(w, services.Wrap(services.ErrValidation, "api", "dispatch",
			`field "module_id" is required`, nil))
		return
	}

	ctx := services.WithModule(services.WithSessionID(r.Context(), sc.ID()), moduleID)
	result, err := sc.Dispatch(ctx, moduleID, req.TargetIDs, req.Params)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
