package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mixdown/internal/catalog"
	"mixdown/internal/services"
	"mixdown/internal/testsupport"
)

func addUploads(t *testing.T, store *catalog.Store, sessionID string, names ...string) []*catalog.FileEntry {
	t.Helper()
	entries := make([]*catalog.FileEntry, 0, len(names))
	for _, name := range names {
		entry, err := store.AddEntry(context.Background(), sessionID, catalog.NewEntry{
			DisplayName: name,
			StoragePath: filepath.Join("/library", sessionID, name),
			Origin:      catalog.OriginUploaded,
		})
		if err != nil {
			t.Fatalf("AddEntry %s: %v", name, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func assertOrder(t *testing.T, store *catalog.Store, sessionID string, want ...string) {
	t.Helper()
	entries, err := store.ListEntries(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, entry := range entries {
		if entry.DisplayName != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], entry.DisplayName)
		}
		if entry.OrderIndex != i {
			t.Fatalf("%s: expected order index %d, got %d", entry.DisplayName, i, entry.OrderIndex)
		}
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	session, err := store.CreateSession(ctx, "workbench")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected session ID to be assigned")
	}

	entry, err := store.AddEntry(ctx, session.ID, catalog.NewEntry{
		DisplayName: "take-one.wav",
		StoragePath: "/library/take-one.wav",
		Origin:      catalog.OriginUploaded,
	})
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	if entry.OrderIndex != 0 {
		t.Fatalf("expected first entry at index 0, got %d", entry.OrderIndex)
	}

	fetched, err := store.GetEntry(ctx, session.ID, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if fetched.DisplayName != "take-one.wav" || fetched.StoragePath != "/library/take-one.wav" {
		t.Fatalf("unexpected fetched entry: %#v", fetched)
	}
	if fetched.Origin != catalog.OriginUploaded {
		t.Fatalf("expected uploaded origin, got %s", fetched.Origin)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp to round-trip")
	}
}

func TestAddAssignsContiguousIndexes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "ordering")

	addUploads(t, store, session.ID, "a.wav", "b.wav", "c.wav")
	assertOrder(t, store, session.ID, "a.wav", "b.wav", "c.wav")
}

func TestAddRejectsDuplicateStoragePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "dupes")

	ctx := context.Background()
	req := catalog.NewEntry{
		DisplayName: "loop.wav",
		StoragePath: "/library/loop.wav",
		Origin:      catalog.OriginUploaded,
	}
	if _, err := store.AddEntry(ctx, session.ID, req); err != nil {
		t.Fatalf("first AddEntry failed: %v", err)
	}
	_, err := store.AddEntry(ctx, session.ID, req)
	if !errors.Is(err, services.ErrDuplicatePath) {
		t.Fatalf("expected duplicate path error, got %v", err)
	}

	// The path namespace spans sessions.
	other := testsupport.NewSession(t, store, "second")
	_, err = store.AddEntry(ctx, other.ID, req)
	if !errors.Is(err, services.ErrDuplicatePath) {
		t.Fatalf("expected duplicate path error across sessions, got %v", err)
	}
}

func TestAddRequiresKnownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.AddEntry(context.Background(), "no-such-session", catalog.NewEntry{
		DisplayName: "x.wav",
		StoragePath: "/library/x.wav",
		Origin:      catalog.OriginUploaded,
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRemoveRenormalizesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "remove")

	entries := addUploads(t, store, session.ID, "a.wav", "b.wav", "c.wav")

	ctx := context.Background()
	removed, err := store.RemoveEntry(ctx, session.ID, entries[1].ID)
	if err != nil {
		t.Fatalf("RemoveEntry failed: %v", err)
	}
	if removed.StoragePath != entries[1].StoragePath {
		t.Fatalf("expected removed entry to carry storage path, got %q", removed.StoragePath)
	}
	assertOrder(t, store, session.ID, "a.wav", "c.wav")

	if _, err := store.RemoveEntry(ctx, session.ID, entries[1].ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for repeated removal, got %v", err)
	}

	// A freed path may be registered again.
	if _, err := store.AddEntry(ctx, session.ID, catalog.NewEntry{
		DisplayName: "b.wav",
		StoragePath: entries[1].StoragePath,
		Origin:      catalog.OriginUploaded,
	}); err != nil {
		t.Fatalf("re-adding freed path failed: %v", err)
	}
	assertOrder(t, store, session.ID, "a.wav", "c.wav", "b.wav")
}

func TestReorderMovesEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "reorder")

	entries := addUploads(t, store, session.ID, "a.wav", "b.wav", "c.wav")
	ctx := context.Background()

	moved, err := store.ReorderEntry(ctx, session.ID, entries[2].ID, 0)
	if err != nil {
		t.Fatalf("ReorderEntry to front failed: %v", err)
	}
	if moved.OrderIndex != 0 {
		t.Fatalf("expected moved entry at index 0, got %d", moved.OrderIndex)
	}
	assertOrder(t, store, session.ID, "c.wav", "a.wav", "b.wav")

	if _, err := store.ReorderEntry(ctx, session.ID, entries[0].ID, 2); err != nil {
		t.Fatalf("ReorderEntry to back failed: %v", err)
	}
	assertOrder(t, store, session.ID, "c.wav", "b.wav", "a.wav")

	// Moving an entry onto its own index is a no-op.
	if _, err := store.ReorderEntry(ctx, session.ID, entries[1].ID, 1); err != nil {
		t.Fatalf("ReorderEntry no-op failed: %v", err)
	}
	assertOrder(t, store, session.ID, "c.wav", "b.wav", "a.wav")
}

func TestReorderRejectsOutOfRangeIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "bounds")

	entries := addUploads(t, store, session.ID, "a.wav", "b.wav")
	ctx := context.Background()

	for _, index := range []int{-1, 2, 99} {
		if _, err := store.ReorderEntry(ctx, session.ID, entries[0].ID, index); !errors.Is(err, services.ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected out of range error, got %v", index, err)
		}
	}
	assertOrder(t, store, session.ID, "a.wav", "b.wav")
}

func TestClearEntriesReturnsRemoved(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "clear")

	addUploads(t, store, session.ID, "a.wav", "b.wav")
	ctx := context.Background()

	cleared, err := store.ClearEntries(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClearEntries failed: %v", err)
	}
	if len(cleared) != 2 {
		t.Fatalf("expected 2 cleared entries, got %d", len(cleared))
	}
	assertOrder(t, store, session.ID)

	// Clearing an empty session succeeds.
	again, err := store.ClearEntries(ctx, session.ID)
	if err != nil {
		t.Fatalf("ClearEntries on empty session failed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no entries cleared, got %d", len(again))
	}
}

func TestRenameEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "rename")

	entries := addUploads(t, store, session.ID, "draft.wav")
	ctx := context.Background()

	renamed, err := store.RenameEntry(ctx, session.ID, entries[0].ID, "final mix.wav")
	if err != nil {
		t.Fatalf("RenameEntry failed: %v", err)
	}
	if renamed.DisplayName != "final mix.wav" {
		t.Fatalf("expected renamed display name, got %q", renamed.DisplayName)
	}

	if _, err := store.RenameEntry(ctx, session.ID, entries[0].ID, "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestDerivedEntriesCarryProvenance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "provenance")

	sources := addUploads(t, store, session.ID, "voice.wav")
	ctx := context.Background()

	derived, err := store.AddEntry(ctx, session.ID, catalog.NewEntry{
		DisplayName:       "trimmed_voice.wav",
		StoragePath:       "/library/outputs/trimmed_voice.wav",
		Origin:            catalog.OriginDerived,
		SourceID:          sources[0].ID,
		ProducingModuleID: "trim",
	})
	if err != nil {
		t.Fatalf("AddEntry derived failed: %v", err)
	}
	if !derived.Derived() {
		t.Fatal("expected entry to report derived origin")
	}
	if derived.SourceID != sources[0].ID || derived.ProducingModuleID != "trim" {
		t.Fatalf("unexpected provenance: %#v", derived)
	}
	if derived.OrderIndex != 1 {
		t.Fatalf("expected derived entry appended at index 1, got %d", derived.OrderIndex)
	}

	_, err = store.AddEntry(ctx, session.ID, catalog.NewEntry{
		DisplayName: "bad.wav",
		StoragePath: "/library/outputs/bad.wav",
		Origin:      catalog.OriginDerived,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for derived without provenance, got %v", err)
	}

	_, err = store.AddEntry(ctx, session.ID, catalog.NewEntry{
		DisplayName: "odd.wav",
		StoragePath: "/library/outputs/odd.wav",
		Origin:      catalog.OriginUploaded,
		SourceID:    sources[0].ID,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for uploaded with provenance, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.CreateSession(ctx, "inbox")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.CreateSession(ctx, "scratch"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	found, err := store.FindSessionByName(ctx, "inbox")
	if err != nil {
		t.Fatalf("FindSessionByName failed: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Fatalf("expected to find inbox session, got %#v", found)
	}

	missing, err := store.FindSessionByName(ctx, "ghost")
	if err != nil {
		t.Fatalf("FindSessionByName failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown name, got %#v", missing)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	addUploads(t, store, first.ID, "a.wav")
	deleted, err := store.DeleteSession(ctx, first.ID)
	if err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion to report a removed session")
	}
	if _, err := store.GetSession(ctx, first.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	entries, err := store.ListEntries(ctx, first.ID)
	if err != nil {
		t.Fatalf("ListEntries after delete failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected cascade to remove entries, got %d", len(entries))
	}
}

func TestTouchSessionMarksActivity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "touchy")

	ctx := context.Background()
	if err := store.TouchSession(ctx, session.ID); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}

	refreshed, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if refreshed.LastActiveAt.Before(session.LastActiveAt) {
		t.Fatalf("expected activity stamp to advance, before %v after %v", session.LastActiveAt, refreshed.LastActiveAt)
	}

	idle, err := store.ListSessionsIdleSince(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListSessionsIdleSince failed: %v", err)
	}
	if len(idle) != 1 {
		t.Fatalf("expected 1 idle session against future cutoff, got %d", len(idle))
	}
	idle, err = store.ListSessionsIdleSince(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListSessionsIdleSince failed: %v", err)
	}
	if len(idle) != 0 {
		t.Fatalf("expected no idle sessions against past cutoff, got %d", len(idle))
	}
}

func TestStatsCountsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session := testsupport.NewSession(t, store, "stats")

	uploads := addUploads(t, store, session.ID, "a.wav", "b.wav")
	ctx := context.Background()
	for i, src := range uploads {
		if _, err := store.AddEntry(ctx, session.ID, catalog.NewEntry{
			DisplayName:       fmt.Sprintf("out-%d.mp3", i),
			StoragePath:       fmt.Sprintf("/library/outputs/out-%d.mp3", i),
			Origin:            catalog.OriginDerived,
			SourceID:          src.ID,
			ProducingModuleID: "convert",
		}); err != nil {
			t.Fatalf("AddEntry derived failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Sessions != 1 || stats.Entries != 4 || stats.Derived != 2 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
