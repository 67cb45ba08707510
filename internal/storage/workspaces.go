package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mixdown/internal/config"
	"mixdown/internal/fileutil"
	"mixdown/internal/logging"
	"mixdown/internal/services"
	"mixdown/internal/textutil"
)

const (
	uploadsDirName = "uploads"
	outputsDirName = "outputs"

	// maxNameAttempts bounds the collision counter when deriving a free
	// filename inside a workspace directory.
	maxNameAttempts = 1000
)

// Workspaces manages per-session directories under the library root.
type Workspaces struct {
	root   string
	logger *slog.Logger
}

// NewWorkspaces returns a manager rooted at the configured library directory.
func NewWorkspaces(cfg *config.Config, logger *slog.Logger) *Workspaces {
	return &Workspaces{
		root:   cfg.Paths.LibraryDir,
		logger: logging.NewComponentLogger(logger, "storage"),
	}
}

// Root returns the library directory all workspaces live under.
func (w *Workspaces) Root() string {
	return w.root
}

// SessionDir returns the workspace directory for the given session.
func (w *Workspaces) SessionDir(sessionID string) (string, error) {
	if err := validateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(w.root, sessionID), nil
}

// UploadsDir returns the directory ingested files are stored in.
func (w *Workspaces) UploadsDir(sessionID string) (string, error) {
	dir, err := w.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, uploadsDirName), nil
}

// OutputsDir returns the directory processed results are written to.
func (w *Workspaces) OutputsDir(sessionID string) (string, error) {
	dir, err := w.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, outputsDirName), nil
}

// Ensure creates the workspace directory tree for the session.
func (w *Workspaces) Ensure(sessionID string) error {
	dir, err := w.SessionDir(sessionID)
	if err != nil {
		return err
	}
	for _, sub := range []string{uploadsDirName, outputsDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "storage", "ensure workspace", fmt.Sprintf("create %s directory", sub), err)
		}
	}
	return nil
}

// Remove deletes the session's workspace and everything in it. Removing a
// workspace that does not exist is not an error.
func (w *Workspaces) Remove(sessionID string) error {
	dir, err := w.SessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return services.Wrap(services.ErrConfiguration, "storage", "remove workspace", "delete workspace directory", err)
	}
	w.logger.Debug("workspace removed", logging.String("session_id", sessionID))
	return nil
}

// StoreUpload streams r into the session's uploads directory under a
// collision-safe variant of fileName and returns the absolute path along
// with the number of bytes written.
func (w *Workspaces) StoreUpload(sessionID, fileName string, r io.Reader) (string, int64, error) {
	if err := w.Ensure(sessionID); err != nil {
		return "", 0, err
	}
	dir, err := w.UploadsDir(sessionID)
	if err != nil {
		return "", 0, err
	}
	path, err := FreePath(dir, fileName)
	if err != nil {
		return "", 0, err
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, services.Wrap(services.ErrConfiguration, "storage", "store upload", "create upload file", err)
	}
	written, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, services.Wrap(services.ErrConfiguration, "storage", "store upload", "write upload payload", err)
	}

	w.logger.Debug("upload stored",
		logging.String("session_id", sessionID),
		logging.String("path", path),
		logging.Int64("bytes", written))
	return path, written, nil
}

// ImportFile copies an external file into the session's uploads directory
// and returns the destination path. The copy is hash-verified so a file
// still being written by its producer fails loudly instead of landing
// truncated in the workspace.
func (w *Workspaces) ImportFile(sessionID, src string) (string, error) {
	if err := w.Ensure(sessionID); err != nil {
		return "", err
	}
	dir, err := w.UploadsDir(sessionID)
	if err != nil {
		return "", err
	}
	path, err := FreePath(dir, filepath.Base(src))
	if err != nil {
		return "", err
	}
	if err := fileutil.CopyFileVerified(src, path); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "storage", "import file", "copy into workspace", err)
	}
	w.logger.Debug("file imported",
		logging.String("session_id", sessionID),
		logging.String("source", src),
		logging.String("path", path))
	return path, nil
}

// ReleaseFile deletes a single file from a workspace. Paths outside the
// library root are refused so a corrupt catalog row can never delete
// unrelated files. Missing files are ignored.
func (w *Workspaces) ReleaseFile(path string) error {
	if !w.contains(path) {
		return services.Wrap(services.ErrValidation, "storage", "release file", fmt.Sprintf("path %q is outside the library root", path), nil)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrConfiguration, "storage", "release file", "delete file", err)
	}
	return nil
}

// Usage returns the total size in bytes of the session's workspace.
func (w *Workspaces) Usage(sessionID string) (int64, error) {
	dir, err := w.SessionDir(sessionID)
	if err != nil {
		return 0, err
	}
	var size int64
	err = filepath.WalkDir(dir, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		size += info.Size()
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, services.Wrap(services.ErrConfiguration, "storage", "usage", "walk workspace", err)
	}
	return size, nil
}

func (w *Workspaces) contains(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func validateSessionID(sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return services.Wrap(services.ErrValidation, "storage", "resolve workspace", "session id is empty", nil)
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return services.Wrap(services.ErrValidation, "storage", "resolve workspace", fmt.Sprintf("session id %q is not a valid directory name", sessionID), nil)
	}
	return nil
}

// FreePath returns dir joined with a sanitized fileName, appending a numeric
// suffix to the stem until the name is unused. Module handlers use it to
// place results in a session's outputs directory without clobbering earlier
// runs.
func FreePath(dir, fileName string) (string, error) {
	name := textutil.SanitizeFileName(fileName)
	if name == "" || textutil.Stem(name) == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "derive path", fmt.Sprintf("file name %q has no usable characters", fileName), nil)
	}

	stem := textutil.Stem(name)
	ext := filepath.Ext(name)
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		candidate := name
		if attempt > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}
		target := filepath.Join(dir, candidate)
		if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
			return target, nil
		} else if err != nil {
			return "", services.Wrap(services.ErrConfiguration, "storage", "derive path", "probe target path", err)
		}
	}
	return "", services.Wrap(services.ErrConfiguration, "storage", "derive path", fmt.Sprintf("no free name for %q after %d attempts", name, maxNameAttempts), nil)
}
