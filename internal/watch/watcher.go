package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/session"
	"mixdown/internal/textutil"
)

// pollInterval is how often pending files are re-checked for a stable size.
const pollInterval = 500 * time.Millisecond

type pendingFile struct {
	size   int64
	seenAt time.Time
}

// Watcher observes the watch folder and imports settled files.
type Watcher struct {
	cfg     *config.Config
	manager *session.Manager
	logger  *slog.Logger
}

// New builds a watcher over the configured ingest folder.
func New(cfg *config.Config, manager *session.Manager, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:     cfg,
		manager: manager,
		logger:  logging.NewComponentLogger(logger, "watch"),
	}
}

// Run watches the folder until ctx is cancelled. Files already present at
// startup are picked up too, so drops made while the daemon was down are not
// lost.
func (w *Watcher) Run(ctx context.Context) error {
	dir := w.cfg.Paths.WatchDir
	if dir == "" {
		return errors.New("watch folder is not configured")
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer notifier.Close()

	if err := notifier.Add(dir); err != nil {
		return err
	}
	w.logger.Info("watching for new files", logging.String("dir", dir))

	pending := make(map[string]*pendingFile)
	w.scanExisting(dir, pending)

	settle := time.Duration(w.cfg.Watch.SettleSeconds) * time.Second
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.track(event.Name, pending)
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		case now := <-ticker.C:
			w.sweep(ctx, pending, settle, now)
		}
	}
}

// scanExisting seeds the pending set with files already in the folder.
func (w *Watcher) scanExisting(dir string, pending map[string]*pendingFile) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("failed to scan watch folder", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.track(filepath.Join(dir, entry.Name()), pending)
	}
}

func (w *Watcher) track(path string, pending map[string]*pendingFile) {
	if !w.cfg.ExtensionAllowed(filepath.Ext(path)) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if existing, ok := pending[path]; ok {
		if existing.size != info.Size() {
			existing.size = info.Size()
			existing.seenAt = time.Now()
		}
		return
	}
	pending[path] = &pendingFile{size: info.Size(), seenAt: time.Now()}
	w.logger.Debug("tracking new file", logging.String("path", path))
}

// sweep imports every pending file whose size has stayed stable long enough.
func (w *Watcher) sweep(ctx context.Context, pending map[string]*pendingFile, settle time.Duration, now time.Time) {
	for path, state := range pending {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			delete(pending, path)
			continue
		}
		if err != nil {
			continue
		}
		if info.Size() != state.size {
			state.size = info.Size()
			state.seenAt = now
			continue
		}
		if now.Sub(state.seenAt) < settle {
			continue
		}
		delete(pending, path)
		w.ingest(ctx, path)
	}
}

// ingest copies the file into the inbox session and removes the original on
// success. The source is kept when anything fails so the drop is retried on
// the next daemon start.
func (w *Watcher) ingest(ctx context.Context, path string) {
	sc, err := w.manager.EnsureNamed(ctx, session.InboxName)
	if err != nil {
		w.logger.Warn("failed to resolve inbox session", logging.Error(err))
		return
	}
	entry, err := sc.ImportFile(ctx, path, displayNameFor(path))
	if err != nil {
		w.logger.Warn("failed to import dropped file",
			logging.String("path", path),
			logging.Error(err))
		return
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn("failed to remove ingested file",
			logging.String("path", path),
			logging.Error(err))
	}
	w.logger.Info("file ingested from watch folder",
		logging.String("path", path),
		logging.String(logging.FieldSessionID, sc.ID()),
		logging.String(logging.FieldFileID, entry.ID))
}

// displayNameFor turns a dropped machine filename into a readable display
// name, keeping the extension so module accept patterns still match.
func displayNameFor(path string) string {
	base := filepath.Base(path)
	return textutil.Title(base) + strings.ToLower(filepath.Ext(base))
}
