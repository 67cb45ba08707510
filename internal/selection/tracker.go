package selection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mixdown/internal/catalog"
	"mixdown/internal/module"
	"mixdown/internal/services"
)

// DefaultPanel is the panel used when callers do not name one.
const DefaultPanel = "main"

// Tracker holds the active selection for each panel of one session.
type Tracker struct {
	store     *catalog.Store
	sessionID string

	mu     sync.Mutex
	panels map[string][]string
}

// NewTracker returns a tracker backed by the given catalog session.
func NewTracker(store *catalog.Store, sessionID string) *Tracker {
	return &Tracker{
		store:     store,
		sessionID: sessionID,
		panels:    make(map[string][]string),
	}
}

func normalizePanel(panel string) string {
	panel = strings.TrimSpace(panel)
	if panel == "" {
		return DefaultPanel
	}
	return panel
}

// Select replaces the panel's active selection. Duplicate ids collapse to
// their first occurrence. Selecting more than one id for a single-target
// module fails, as does referencing an id the catalog does not hold.
func (t *Tracker) Select(ctx context.Context, panel string, ids []string, multiplicity module.Multiplicity) error {
	panel = normalizePanel(panel)

	deduped := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	if multiplicity == module.Single && len(deduped) > 1 {
		return services.Wrap(services.ErrMultiplicity, "selection", "select",
			fmt.Sprintf("panel %s: single-target module cannot select %d files", panel, len(deduped)), nil)
	}

	if len(deduped) > 0 {
		entries, err := t.store.ListEntries(ctx, t.sessionID)
		if err != nil {
			return fmt.Errorf("validate selection: %w", err)
		}
		known := make(map[string]struct{}, len(entries))
		for _, entry := range entries {
			known[entry.ID] = struct{}{}
		}
		for _, id := range deduped {
			if _, ok := known[id]; !ok {
				return services.Wrap(services.ErrNotFound, "selection", "select",
					fmt.Sprintf("file %s", id), nil)
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(deduped) == 0 {
		delete(t.panels, panel)
		return nil
	}
	t.panels[panel] = deduped
	return nil
}

// Clear empties one panel's selection.
func (t *Tracker) Clear(panel string) {
	panel = normalizePanel(panel)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.panels, panel)
}

// ClearAll empties every panel.
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.panels = make(map[string][]string)
}

// Current returns the panel's selection in selection order.
func (t *Tracker) Current(panel string) []string {
	panel = normalizePanel(panel)
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := t.panels[panel]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Panels returns the names of panels holding a non-empty selection, sorted
// for deterministic output.
func (t *Tracker) Panels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.panels))
	for name := range t.panels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Purge drops the given ids from every panel. Called when entries leave the
// catalog so selections stay a subset of existing files.
func (t *Tracker) Purge(ids ...string) {
	if len(ids) == 0 {
		return
	}
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		doomed[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for panel, selected := range t.panels {
		kept := selected[:0]
		for _, id := range selected {
			if _, gone := doomed[id]; !gone {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(t.panels, panel)
			continue
		}
		t.panels[panel] = kept
	}
}
