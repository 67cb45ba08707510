package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mixdown/internal/catalog"
	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/session"
	"mixdown/internal/watch"
)

// LockFileName is the single-instance lock under the state directory.
const LockFileName = "mixdownd.lock"

const shutdownGrace = 5 * time.Second

// Daemon coordinates the API server, the idle-session sweeper, and the
// watch-folder ingest, and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *catalog.Store
	manager *session.Manager
	watcher *watch.Watcher
	handler http.Handler

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	cancel   context.CancelFunc
	listener net.Listener
	server   *http.Server
	wg       sync.WaitGroup
}

// New constructs a daemon. The watcher may be nil when ingest is disabled.
func New(cfg *config.Config, store *catalog.Store, manager *session.Manager, handler http.Handler, watcher *watch.Watcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil || handler == nil {
		return nil, errors.New("daemon requires config, store, manager, and handler")
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		manager:  manager,
		watcher:  watcher,
		handler:  handler,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, binds the API listener, and launches the
// background loops. It returns once the daemon is serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mixdown daemon instance is already running")
	}

	listener, err := net.Listen("tcp", d.cfg.Paths.APIBind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	srv := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute, // dispatches block until the batch completes
		IdleTimeout:       60 * time.Second,
	}
	d.listener = listener
	d.server = srv

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("api server error", logging.Error(err))
		}
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.manager.RunSweeper(runCtx)
	}()

	if d.watcher != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("watch folder ingest stopped", logging.Error(err))
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", d.lockPath))
	return nil
}

// Addr returns the bound API address, or empty when not serving. Tests bind
// port 0 and read the effective address from here.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Stop shuts down the API server, stops the background loops, and releases
// the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		_ = d.server.Shutdown(shutdownCtx)
		cancel()
	}
	if d.listener != nil {
		_ = d.listener.Close()
	}
	// The Serve goroutine still holds references; clear them only after
	// every background loop has exited.
	d.wg.Wait()
	d.server = nil
	d.listener = nil

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the catalog store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the daemon is serving.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
