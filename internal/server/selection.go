package server

import (
	"net/http"
	"strings"

	"mixdown/internal/module"
	"mixdown/internal/selection"
)

func panelFor(r *http.Request) string {
	if panel := strings.TrimSpace(r.URL.Query().Get("panel")); panel != "" {
		return panel
	}
	return selection.DefaultPanel
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	panel := panelFor(r)
	s.writeJSON(w, http.StatusOK, SelectionView{Panel: panel, IDs: sc.Selection(panel)})
}

// handlePutSelection replaces a panel's selection. When the request names a
// module, the selection is validated against that module's multiplicity;
// otherwise any number of files may be picked.
func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var req selectionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	multiplicity := module.Multiple
	if id := strings.TrimSpace(req.ModuleID); id != "" {
		mod, err := s.registry.Get(id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		multiplicity = mod.Multiplicity
	}

	panel := panelFor(r)
	if err := sc.Select(r.Context(), panel, req.IDs, multiplicity); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SelectionView{Panel: panel, IDs: sc.Selection(panel)})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	panel := panelFor(r)
	sc.ClearSelection(panel)
	s.writeJSON(w, http.StatusOK, SelectionView{Panel: panel, IDs: nil})
}
