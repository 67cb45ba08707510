package server

import (
	"net/http"
	"os"
	"time"

	"mixdown/internal/logging"
	"mixdown/internal/preset"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Warn("failed to read catalog stats", logging.Error(err))
	}
	view := StatusView{
		Running:       true,
		PID:           os.Getpid(),
		DatabasePath:  s.store.Path(),
		LibraryDir:    s.cfg.Paths.LibraryDir,
		Sessions:      stats.Sessions,
		Entries:       stats.Entries,
		Derived:       stats.Derived,
		Modules:       len(s.registry.List()),
		UptimeSeconds: time.Since(s.started).Seconds(),
		Preflight:     s.preflight(),
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	modules := s.registry.List()
	views := make([]ModuleView, 0, len(modules))
	for _, mod := range modules {
		views = append(views, moduleView(mod))
	}
	s.writeJSON(w, http.StatusOK, map[string][]ModuleView{"modules": views})
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	var presets []preset.Preset
	if s.presets != nil {
		presets = s.presets.List()
	}
	s.writeJSON(w, http.StatusOK, map[string][]preset.Preset{"presets": presets})
}
