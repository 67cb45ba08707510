package session

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"mixdown/internal/catalog"
	"mixdown/internal/dispatch"
	"mixdown/internal/logging"
	"mixdown/internal/module"
	"mixdown/internal/selection"
	"mixdown/internal/services"
	"mixdown/internal/storage"
)

// Context is the per-session handle the API layer works through. All file,
// selection, and dispatch operations for one session flow through a single
// Context instance so the in-memory selection state and the dispatch guard
// stay coherent.
type Context struct {
	id         string
	store      *catalog.Store
	tracker    *selection.Tracker
	registry   *module.Registry
	controller *dispatch.Controller
	workspaces *storage.Workspaces
	logger     *slog.Logger

	dispatching atomic.Bool
}

func newContext(id string, store *catalog.Store, registry *module.Registry, controller *dispatch.Controller, workspaces *storage.Workspaces, logger *slog.Logger) *Context {
	return &Context{
		id:         id,
		store:      store,
		tracker:    selection.NewTracker(store, id),
		registry:   registry,
		controller: controller,
		workspaces: workspaces,
		logger:     logging.NewComponentLogger(logger, "session"),
	}
}

// ID returns the session identifier.
func (c *Context) ID() string {
	return c.id
}

// Registry exposes the module registry bound to this session.
func (c *Context) Registry() *module.Registry {
	return c.registry
}

// Record fetches the session's catalog row.
func (c *Context) Record(ctx context.Context) (*catalog.Session, error) {
	return c.store.GetSession(ctx, c.id)
}

// AddUpload stores an uploaded payload in the session workspace and
// registers it. The stored file is removed again when registration fails.
func (c *Context) AddUpload(ctx context.Context, displayName string, r io.Reader) (*catalog.FileEntry, error) {
	path, size, err := c.workspaces.StoreUpload(c.id, displayName, r)
	if err != nil {
		return nil, err
	}
	entry, err := c.store.AddEntry(ctx, c.id, catalog.NewEntry{
		DisplayName: displayName,
		StoragePath: path,
		Origin:      catalog.OriginUploaded,
	})
	if err != nil {
		_ = c.workspaces.ReleaseFile(path)
		return nil, err
	}
	c.logger.Info("file uploaded",
		logging.String("session_id", c.id),
		logging.String("file_id", entry.ID),
		logging.String("name", entry.DisplayName),
		logging.Int64("bytes", size))
	return entry, nil
}

// ImportFile copies a file from outside the library into the session and
// registers it under the given display name.
func (c *Context) ImportFile(ctx context.Context, src, displayName string) (*catalog.FileEntry, error) {
	path, err := c.workspaces.ImportFile(c.id, src)
	if err != nil {
		return nil, err
	}
	entry, err := c.store.AddEntry(ctx, c.id, catalog.NewEntry{
		DisplayName: displayName,
		StoragePath: path,
		Origin:      catalog.OriginUploaded,
	})
	if err != nil {
		_ = c.workspaces.ReleaseFile(path)
		return nil, err
	}
	c.logger.Info("file imported",
		logging.String("session_id", c.id),
		logging.String("file_id", entry.ID),
		logging.String("name", entry.DisplayName),
		logging.String("source", src))
	return entry, nil
}

// Files lists the session's entries in display order.
func (c *Context) Files(ctx context.Context) ([]*catalog.FileEntry, error) {
	return c.store.ListEntries(ctx, c.id)
}

// File fetches one entry; ids that belong to another session read as
// missing.
func (c *Context) File(ctx context.Context, id string) (*catalog.FileEntry, error) {
	return c.store.GetEntry(ctx, c.id, id)
}

// RemoveFile deletes an entry, releases its bytes, and purges it from every
// selection panel.
func (c *Context) RemoveFile(ctx context.Context, id string) error {
	removed, err := c.store.RemoveEntry(ctx, c.id, id)
	if err != nil {
		return err
	}
	if err := c.workspaces.ReleaseFile(removed.StoragePath); err != nil {
		c.logger.Warn("failed to release file bytes",
			logging.String("file_id", id),
			logging.String("path", removed.StoragePath),
			logging.Error(err))
	}
	c.tracker.Purge(id)
	return nil
}

// RenameFile updates an entry's display name.
func (c *Context) RenameFile(ctx context.Context, id, name string) (*catalog.FileEntry, error) {
	return c.store.RenameEntry(ctx, c.id, id, name)
}

// ReorderFile moves an entry to a new position.
func (c *Context) ReorderFile(ctx context.Context, id string, newIndex int) (*catalog.FileEntry, error) {
	return c.store.ReorderEntry(ctx, c.id, id, newIndex)
}

// ClearFiles removes every entry, releases all backing bytes, and clears
// every selection panel.
func (c *Context) ClearFiles(ctx context.Context) (int, error) {
	removed, err := c.store.ClearEntries(ctx, c.id)
	if err != nil {
		return 0, err
	}
	for _, entry := range removed {
		if err := c.workspaces.ReleaseFile(entry.StoragePath); err != nil {
			c.logger.Warn("failed to release file bytes",
				logging.String("file_id", entry.ID),
				logging.String("path", entry.StoragePath),
				logging.Error(err))
		}
	}
	c.tracker.ClearAll()
	return len(removed), nil
}

// Select replaces a panel's selection.
func (c *Context) Select(ctx context.Context, panel string, ids []string, multiplicity module.Multiplicity) error {
	if err := c.tracker.Select(ctx, panel, ids, multiplicity); err != nil {
		return err
	}
	return c.store.TouchSession(ctx, c.id)
}

// Selection returns the ids currently selected in a panel.
func (c *Context) Selection(panel string) []string {
	return c.tracker.Current(panel)
}

// ClearSelection empties one panel.
func (c *Context) ClearSelection(panel string) {
	c.tracker.Clear(panel)
}

// Panels lists the panels holding a selection.
func (c *Context) Panels() []string {
	return c.tracker.Panels()
}

// Dispatch runs a module over the given targets, or over the main panel's
// selection when no explicit targets are passed. Only one dispatch may be
// in flight per session; overlapping calls fail with ErrDispatchBusy.
func (c *Context) Dispatch(ctx context.Context, moduleID string, targetIDs []string, params module.Params) (*dispatch.Result, error) {
	if !c.dispatching.CompareAndSwap(false, true) {
		return nil, services.Wrap(services.ErrDispatchBusy, "session", "dispatch",
			"a module run is already in flight for this session", nil)
	}
	defer c.dispatching.Store(false)

	if len(targetIDs) == 0 {
		targetIDs = c.tracker.Current(selection.DefaultPanel)
	}

	result, err := c.controller.Run(ctx, c.id, moduleID, targetIDs, params)
	if err != nil {
		return nil, err
	}
	if err := c.store.TouchSession(ctx, c.id); err != nil {
		c.logger.Warn("failed to touch session after dispatch", logging.Error(err))
	}
	return result, nil
}

// Dispatching reports whether a module run is currently in flight.
func (c *Context) Dispatching() bool {
	return c.dispatching.Load()
}

// Usage returns the session workspace size in bytes.
func (c *Context) Usage() (int64, error) {
	return c.workspaces.Usage(c.id)
}

// teardown releases everything the session owns: selections, catalog rows,
// and the workspace directory. Refused while a dispatch is in flight.
func (c *Context) teardown(ctx context.Context) error {
	if c.dispatching.Load() {
		return services.Wrap(services.ErrDispatchBusy, "session", "teardown",
			"cannot tear down while a module run is in flight", nil)
	}
	c.tracker.ClearAll()
	if _, err := c.store.DeleteSession(ctx, c.id); err != nil {
		return err
	}
	if err := c.workspaces.Remove(c.id); err != nil {
		return err
	}
	c.logger.Info("session torn down", logging.String("session_id", c.id))
	return nil
}
