package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"mixdown/internal/catalog"
	"mixdown/internal/logging"
	"mixdown/internal/session"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "untitled"
	}
	sc, err := s.manager.Create(r.Context(), name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	view, err := s.sessionView(r, sc)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	records, err := s.manager.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]SessionView, 0, len(records))
	for _, record := range records {
		view, err := s.recordView(r, record)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		views = append(views, view)
	}
	s.writeJSON(w, http.StatusOK, map[string][]SessionView{"sessions": views})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	view, err := s.sessionView(r, sc)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sid"]
	if err := s.manager.Teardown(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.logger.Info("session deleted via api", logging.String(logging.FieldSessionID, id))
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) sessionFor(r *http.Request) (*session.Context, error) {
	return s.manager.Get(r.Context(), mux.Vars(r)["sid"])
}

func (s *Server) sessionView(r *http.Request, sc *session.Context) (SessionView, error) {
	record, err := sc.Record(r.Context())
	if err != nil {
		return SessionView{}, err
	}
	files, err := sc.Files(r.Context())
	if err != nil {
		return SessionView{}, err
	}
	usage, err := sc.Usage()
	if err != nil {
		usage = 0
	}
	return SessionView{
		ID:           record.ID,
		Name:         record.Name,
		CreatedAt:    record.CreatedAt,
		LastActiveAt: record.LastActiveAt,
		FileCount:    len(files),
		UsageBytes:   usage,
		Dispatching:  sc.Dispatching(),
	}, nil
}

func (s *Server) recordView(r *http.Request, record *catalog.Session) (SessionView, error) {
	count, err := s.store.CountEntries(r.Context(), record.ID)
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{
		ID:           record.ID,
		Name:         record.Name,
		CreatedAt:    record.CreatedAt,
		LastActiveAt: record.LastActiveAt,
		FileCount:    count,
	}, nil
}
