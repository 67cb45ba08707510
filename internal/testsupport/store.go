package testsupport

import (
	"context"
	"testing"

	"mixdown/internal/catalog"
	"mixdown/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession creates a session for tests using the provided store.
func NewSession(t testing.TB, store *catalog.Store, name string) *catalog.Session {
	t.Helper()

	session, err := store.CreateSession(context.Background(), name)
	if err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return session
}

// AddUpload registers an uploaded file entry for tests.
func AddUpload(t testing.TB, store *catalog.Store, sessionID, displayName, storagePath string) *catalog.FileEntry {
	t.Helper()

	entry, err := store.AddEntry(context.Background(), sessionID, catalog.NewEntry{
		DisplayName: displayName,
		StoragePath: storagePath,
		Origin:      catalog.OriginUploaded,
	})
	if err != nil {
		t.Fatalf("store.AddEntry: %v", err)
	}
	return entry
}
