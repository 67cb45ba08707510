package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mixdown/internal/catalog"
	"mixdown/internal/config"
	"mixdown/internal/dispatch"
	"mixdown/internal/module"
	"mixdown/internal/selection"
	"mixdown/internal/services"
	"mixdown/internal/session"
	"mixdown/internal/storage"
	"mixdown/internal/testsupport"
)

type fixture struct {
	cfg        *config.Config
	store      *catalog.Store
	workspaces *storage.Workspaces
	registry   *module.Registry
	manager    *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	workspaces := storage.NewWorkspaces(cfg, nil)
	registry := module.NewRegistry()
	controller := dispatch.NewController(store, registry, workspaces, nil)
	return &fixture{
		cfg:        cfg,
		store:      store,
		workspaces: workspaces,
		registry:   registry,
		manager:    session.NewManager(cfg, store, registry, controller, workspaces, nil),
	}
}

func (f *fixture) create(t *testing.T, name string) *session.Context {
	t.Helper()
	sc, err := f.manager.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return sc
}

func upload(t *testing.T, sc *session.Context, name string) *catalog.FileEntry {
	t.Helper()
	entry, err := sc.AddUpload(context.Background(), name, strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("AddUpload: %v", err)
	}
	return entry
}

// echoModule copies each target name into a prefixed output file.
func echoModule(id string) module.Descriptor {
	return module.Descriptor{
		ID:           id,
		DisplayName:  "Echo",
		Multiplicity: module.Multiple,
		Handler: module.HandlerFunc(func(_ context.Context, req module.Request) (*module.Output, error) {
			name := "echo_" + req.Target().DisplayName
			path := filepath.Join(req.OutputDir, name)
			if err := os.WriteFile(path, []byte("out"), 0o644); err != nil {
				return nil, err
			}
			return &module.Output{Path: path, DisplayName: name}, nil
		}),
	}
}

// gateModule parks inside the handler until release is closed so tests can
// observe an in-flight dispatch.
func gateModule(id string, started chan struct{}, release chan struct{}) module.Descriptor {
	return module.Descriptor{
		ID:           id,
		DisplayName:  "Gate",
		Multiplicity: module.Multiple,
		Handler: module.HandlerFunc(func(ctx context.Context, req module.Request) (*module.Output, error) {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			name := "gated_" + req.Target().DisplayName
			path := filepath.Join(req.OutputDir, name)
			if err := os.WriteFile(path, []byte("out"), 0o644); err != nil {
				return nil, err
			}
			return &module.Output{Path: path, DisplayName: name}, nil
		}),
	}
}

func TestAddUploadRegistersAndStores(t *testing.T) {
	f := newFixture(t)
	sc := f.create(t, "studio")

	entry := upload(t, sc, "take.wav")
	if entry.Origin != catalog.OriginUploaded {
		t.Fatalf("origin = %q, want %q", entry.Origin, catalog.OriginUploaded)
	}
	if entry.OrderIndex != 0 {
		t.Fatalf("order index = %d, want 0", entry.OrderIndex)
	}
	if _, err := os.Stat(entry.StoragePath); err != nil {
		t.Fatalf("uploaded bytes missing: %v", err)
	}

	files, err := sc.Files(context.Background())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].ID != entry.ID {
		t.Fatalf("unexpected listing: %+v", files)
	}

	usage, err := sc.Usage()
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage != int64(len("audio-bytes")) {
		t.Fatalf("usage = %d bytes, want %d", usage, len("audio-bytes"))
	}
}

func TestAddUploadKeepsCollidingNamesApart(t *testing.T) {
	f := newFixture(t)
	sc := f.create(t, "studio")

	first := upload(t, sc, "take.wav")
	second := upload(t, sc, "take.wav")

	if first.DisplayName != second.DisplayName {
		t.Fatalf("display names should match: %q vs %q", first.DisplayName, second.DisplayName)
	}
	if first.StoragePath == second.StoragePath {
		t.Fatalf("storage paths should differ, both %q", first.StoragePath)
	}
	if base := filepath.Base(second.StoragePath); base != "take_2.wav" {
		t.Fatalf("second upload stored as %q, want take_2.wav", base)
	}
}

func TestRemoveFilePurgesSelectionAndBytes(t *testing.T) {
	f := newFixture(t)
	sc := f.create(t, "studio")
	ctx := context.Background()

	a := upload(t, sc, "a.wav")
	b := upload(t, sc, "b.wav")
	if err := sc.Select(ctx, "", []string{a.ID, b.ID}, module.Multiple); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if err := sc.RemoveFile(ctx, a.ID); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}

	if _, err := sc.File(ctx, a.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("removed entry still readable: %v", err)
	}
	if _, err := os.Stat(a.StoragePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("removed bytes still on disk: %v", err)
	}

	current := sc.Selection(selection.DefaultPanel)
	if len(current) != 1 || current[0] != b.ID {
		t.Fatalf("selection not purged: %v", current)
	}

	files, err := sc.Files(ctx)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].OrderIndex != 0 {
		t.Fatalf("remaining entry not reindexed: %+v", files)
	}
}

func TestClearFilesReleasesEverything(t *testing.T) {
	f := newFixture(t)
	sc := f.create(t, "studio")
	ctx := context.Background()

	a := upload(t, sc, "a.wav")
	b := upload(t, sc, "b.wav")
	if err := sc.Select(ctx, "", []string{a.ID, b.ID}, module.Multiple); err != nil {
		t.Fatalf("Select: %v", err)
	}

	removed, err := sc.ClearFiles(ctx)
	if err != nil {
		t.Fatalf("ClearFiles: %v", err)
	}
	if removed != 2 {
		t.Fatalf("cleared %d entries, want 2", removed)
	}

	files, err := sc.Files(ctx)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("entries survived clear: %+v", files)
	}
	if panels := sc.Panels(); len(panels) != 0 {
		t.Fatalf("selections survived clear: %v", panels)
	}

	usage, err := sc.Usage()
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage != 0 {
		t.Fatalf("usage = %d bytes after clear, want 0", usage)
	}
}

func TestDispatchRejectsOverlappingRuns(t *testing.T) {
	f := newFixture(t)
	sc := f.create(t, "studio")
	ctx := context.Background()

	first := upload(t, sc, "a.wav")
	second := upload(t, sc, "b.wav")

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	if err := f.registry.Register(gateModule("gate", started, release)); err != nil {
		t.Fatalf("register: %v", err)
	}

	type dispatchReturn struct {
		result *dispatch.Result
		err    error
	}
	done := make(chan dispatchReturn, 1)
	go func() {
		result, err := sc.Dispatch(ctx, "gate", []string{first.ID}, nil)
		done <- dispatchReturn{result, err}
	}()

	<-started
	if !sc.Dispatching() {
		t.Fatal("Dispatching should report the in-flight run")
	}
	if _, err := sc.Dispatch(ctx, "gate", []string{first.ID}, nil); !errors.Is(err, services.ErrDispatchBusy) {
		t.Fatalf("overlapping dispatch error = %v, want ErrDispatchBusy", err)
	}
	if err := f.manager.Teardown(ctx, sc.ID()); !errors.Is(err, services.ErrDispatchBusy) {
		t.Fatalf("teardown during dispatch error = %v, want ErrDispatchBusy", err)
	}

	close(release)
	ret := <-done
	if ret.err != nil {
		t.Fatalf("gated dispatch failed: %v", ret.err)
	}
	if ret.result.Succeeded() != 1 {
		t.Fatalf("gated dispatch outcomes: %+v", ret.result.Outcomes)
	}
	if sc.Dispatching() {
		t.Fatal("guard should clear once the run finishes")
	}

	result, err := sc.Dispatch(ctx, "gate", []string{second.ID}, nil)
	if err != nil {
		t.Fatalf("follow-up dispatch failed: %v", err)
	}
	if result.Succeeded() != 1 {
		t.Fatalf("follow-up outcomes: %+v", result.Outcomes)
	}
}

func TestDispatchFallsBackToMainSelection(t *testing.T) {
	f := newFixture(t)
	sc := f.create(t, "studio")
	ctx := context.Background()

	a := upload(t, sc, "a.wav")
	b := upload(t, sc, "b.wav")
	if err := f.registry.Register(echoModule("echo")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := sc.Select(ctx, "", []string{b.ID, a.ID}, module.Multiple); err != nil {
		t.Fatalf("Select: %v", err)
	}

	result, err := sc.Dispatch(ctx, "echo", nil, nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(result.Outcomes))
	}
	if result.Outcomes[0].TargetID != b.ID || result.Outcomes[1].TargetID != a.ID {
		t.Fatalf("outcomes should follow selection order: %+v", result.Outcomes)
	}
}

func TestDispatchWithoutTargetsOrSelectionFails(t *testing.T) {
	f := newFixture(t)
	sc := f.create(t, "studio")

	if err := f.registry.Register(echoModule("echo")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := sc.Dispatch(context.Background(), "echo", nil, nil); !errors.Is(err, services.ErrMultiplicity) {
		t.Fatalf("empty dispatch error = %v, want ErrMultiplicity", err)
	}
}
