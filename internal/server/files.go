package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"mixdown/internal/services"
)

// multipartMemoryLimit bounds how much of a parsed form stays in memory;
// larger uploads spill to temporary files.
const multipartMemoryLimit = 8 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds the %d MiB limit", s.cfg.Uploads.MaxUploadMiB))
			return
		}
		s.writeError(w, http.StatusBadRequest, "malformed multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	displayName := strings.TrimSpace(r.FormValue("name"))
	if displayName == "" {
		displayName = filepath.Base(header.Filename)
	}
	if !s.cfg.ExtensionAllowed(filepath.Ext(displayName)) {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("file extension of %q is not allowed", displayName))
		return
	}

	entry, err := sc.AddUpload(r.Context(), displayName, file)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, fileView(entry))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	entries, err := sc.Files(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]FileView{"files": fileViews(entries)})
}

func (s *Server) handleClearFiles(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	removed, err := sc.ClearFiles(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleGetFile returns one entry. Probe metadata rides along when ffprobe
// can describe the file; a probe failure only omits the media block.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	entry, err := sc.File(r.Context(), mux.Vars(r)["fid"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := fileView(entry)
	if s.media != nil {
		if info, err := s.media.Info(r.Context(), entry.StoragePath); err == nil {
			view.Media = &info
		}
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	id := mux.Vars(r)["fid"]
	if err := sc.RemoveFile(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"removed": id})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	entry, err := sc.File(r.Context(), mux.Vars(r)["fid"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", url.PathEscape(entry.DisplayName)))
	http.ServeFile(w, r, entry.StoragePath)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var req renameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	entry, err := sc.RenameFile(r.Context(), mux.Vars(r)["fid"], req.DisplayName)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fileView(entry))
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	sc, err := s.sessionFor(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var req positionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if req.Index == nil {
		s.writeServiceError(w, services.Wrap(services.ErrValidation, "api", "reorder",
			`field "index" is required`, nil))
		return
	}
	entry, err := sc.ReorderFile(r.Context(), mux.Vars(r)["fid"], *req.Index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fileView(entry))
}
