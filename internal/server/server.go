package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"mixdown/internal/catalog"
	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/media"
	"mixdown/internal/module"
	"mixdown/internal/preflight"
	"mixdown/internal/preset"
	"mixdown/internal/session"
)

// Options carries the collaborators the server works through.
type Options struct {
	Config   *config.Config
	Store    *catalog.Store
	Manager  *session.Manager
	Registry *module.Registry
	Media    *media.Client
	Presets  *preset.Catalog
	Logger   *slog.Logger

	// PreflightFn supplies environment check results for the status
	// endpoint. Nil falls back to running the standard checks.
	PreflightFn func() []preflight.Result
}

// Server handles the HTTP API.
type Server struct {
	cfg       *config.Config
	store     *catalog.Store
	manager   *session.Manager
	registry  *module.Registry
	media     *media.Client
	presets   *preset.Catalog
	logger    *slog.Logger
	preflight func() []preflight.Result
	started   time.Time
}

// New validates the collaborators and builds a server.
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Store == nil || opts.Manager == nil || opts.Registry == nil {
		return nil, errors.New("server requires config, store, manager, and registry")
	}
	preflightFn := opts.PreflightFn
	if preflightFn == nil {
		cfg := opts.Config
		preflightFn = func() []preflight.Result { return preflight.RunAll(cfg) }
	}
	return &Server{
		cfg:       opts.Config,
		store:     opts.Store,
		manager:   opts.Manager,
		registry:  opts.Registry,
		media:     opts.Media,
		presets:   opts.Presets,
		logger:    logging.NewComponentLogger(opts.Logger, "api-server"),
		preflight: preflightFn,
		started:   time.Now(),
	}, nil
}

// Handler builds the route table. Every /api route passes through the bearer
// token check; /healthz stays open so orchestration probes work without
// credentials.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware(s.cfg.Paths.APIToken))

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/modules", s.handleModules).Methods(http.MethodGet)
	api.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}", s.handleDeleteSession).Methods(http.MethodDelete)

	api.HandleFunc("/sessions/{sid}/files", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/files", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/files", s.handleClearFiles).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{sid}/files/{fid}", s.handleGetFile).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/files/{fid}", s.handleRemoveFile).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{sid}/files/{fid}/download", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/files/{fid}/name", s.handleRename).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{sid}/files/{fid}/position", s.handleReorder).Methods(http.MethodPut)

	api.HandleFunc("/sessions/{sid}/selection", s.handleGetSelection).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/selection", s.handlePutSelection).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{sid}/selection", s.handleClearSelection).Methods(http.MethodDelete)

	api.HandleFunc("/sessions/{sid}/dispatch", s.handleDispatch).Methods(http.MethodPost)

	return router
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authMiddleware validates bearer tokens. An empty token disables
// authentication and all requests pass through.
func authMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix || auth[len(prefix):] != token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
