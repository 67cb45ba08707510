package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mixdown/internal/catalog"
	"mixdown/internal/config"
	"mixdown/internal/dispatch"
	"mixdown/internal/logging"
	"mixdown/internal/module"
	"mixdown/internal/storage"
)

// InboxName is the session the watch-folder ingest files into.
const InboxName = "inbox"

// Manager creates sessions and hands out their Contexts. A session's
// Context is built once and reused so selection state and the dispatch
// guard survive across requests.
type Manager struct {
	cfg        *config.Config
	store      *catalog.Store
	registry   *module.Registry
	controller *dispatch.Controller
	workspaces *storage.Workspaces
	logger     *slog.Logger

	mu       sync.Mutex
	contexts map[string]*Context
}

// NewManager wires a manager over the shared components.
func NewManager(cfg *config.Config, store *catalog.Store, registry *module.Registry, controller *dispatch.Controller, workspaces *storage.Workspaces, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		controller: controller,
		workspaces: workspaces,
		logger:     logging.NewComponentLogger(logger, "session"),
		contexts:   make(map[string]*Context),
	}
}

// Create starts a new named session with an empty workspace.
func (m *Manager) Create(ctx context.Context, name string) (*Context, error) {
	record, err := m.store.CreateSession(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := m.workspaces.Ensure(record.ID); err != nil {
		return nil, err
	}
	m.logger.Info("session created",
		logging.String("session_id", record.ID),
		logging.String("name", record.Name))
	return m.contextFor(record.ID), nil
}

// Get returns the Context for an existing session.
func (m *Manager) Get(ctx context.Context, id string) (*Context, error) {
	if _, err := m.store.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return m.contextFor(id), nil
}

// EnsureNamed returns the oldest session with the given name, creating it
// when none exists. The watch-folder ingest uses this to keep one stable
// inbox session.
func (m *Manager) EnsureNamed(ctx context.Context, name string) (*Context, error) {
	record, err := m.store.FindSessionByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return m.Create(ctx, name)
	}
	return m.contextFor(record.ID), nil
}

// List returns every session record.
func (m *Manager) List(ctx context.Context) ([]*catalog.Session, error) {
	return m.store.ListSessions(ctx)
}

// Teardown destroys a session: selections, catalog rows, and workspace.
func (m *Manager) Teardown(ctx context.Context, id string) error {
	sc, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := sc.teardown(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.contexts, id)
	m.mu.Unlock()
	return nil
}

// SweepIdle tears down sessions whose last activity predates the configured
// idle timeout. A timeout of zero disables sweeping.
func (m *Manager) SweepIdle(ctx context.Context) (int, error) {
	idle := time.Duration(m.cfg.Sessions.IdleTimeoutMinutes) * time.Minute
	if idle <= 0 {
		return 0, nil
	}
	return m.SweepIdleBefore(ctx, time.Now().UTC().Add(-idle))
}

// SweepIdleBefore tears down every session whose last activity predates
// cutoff. Sessions with a dispatch in flight are skipped.
func (m *Manager) SweepIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := m.store.ListSessionsIdleSince(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, record := range stale {
		sc := m.contextFor(record.ID)
		if sc.Dispatching() {
			m.logger.Debug("skipping busy session during sweep",
				logging.String("session_id", record.ID))
			continue
		}
		if err := sc.teardown(ctx); err != nil {
			m.logger.Warn("failed to sweep idle session",
				logging.String("session_id", record.ID),
				logging.Error(err))
			continue
		}
		m.mu.Lock()
		delete(m.contexts, record.ID)
		m.mu.Unlock()
		m.logger.Info("idle session swept",
			logging.String("session_id", record.ID),
			logging.String("name", record.Name),
			logging.Duration("idle", time.Since(record.LastActiveAt)))
		swept++
	}
	return swept, nil
}

// RunSweeper periodically sweeps idle sessions until ctx is cancelled. It
// returns immediately when sweeping is disabled.
func (m *Manager) RunSweeper(ctx context.Context) {
	if m.cfg.Sessions.IdleTimeoutMinutes <= 0 {
		return
	}
	interval := time.Duration(m.cfg.Sessions.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.SweepIdle(ctx); err != nil {
				m.logger.Warn("idle sweep failed", logging.Error(err))
			}
		}
	}
}

func (m *Manager) contextFor(id string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sc, ok := m.contexts[id]; ok {
		return sc
	}
	sc := newContext(id, m.store, m.registry, m.controller, m.workspaces, m.logger)
	m.contexts[id] = sc
	return sc
}
