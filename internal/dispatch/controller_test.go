package dispatch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/catalog"
	"mixdown/internal/dispatch"
	"mixdown/internal/module"
	"mixdown/internal/services"
	"mixdown/internal/storage"
	"mixdown/internal/testsupport"
)

type fixture struct {
	store      *catalog.Store
	workspaces *storage.Workspaces
	registry   *module.Registry
	controller *dispatch.Controller
	session    *catalog.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	workspaces := storage.NewWorkspaces(cfg, nil)
	registry := module.NewRegistry()
	return &fixture{
		store:      store,
		workspaces: workspaces,
		registry:   registry,
		controller: dispatch.NewController(store, registry, workspaces, nil),
		session:    testsupport.NewSession(t, store, "studio"),
	}
}

func (f *fixture) addUploads(t *testing.T, names ...string) []*catalog.FileEntry {
	t.Helper()
	entries := make([]*catalog.FileEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, testsupport.AddUpload(t, f.store, f.session.ID, name, "/library/"+f.session.ID+"/uploads/"+name))
	}
	return entries
}

// echoModule copies each target name into a prefixed output; targets whose
// display name matches failName fail with a tool error.
func echoModule(id, failName string) module.Descriptor {
	return module.Descriptor{
		ID:           id,
		DisplayName:  "Echo",
		Multiplicity: module.Multiple,
		Handler: module.HandlerFunc(func(_ context.Context, req module.Request) (*module.Output, error) {
			target := req.Target()
			if target.DisplayName == failName {
				return nil, services.Wrap(services.ErrExternalTool, "media", "echo", "simulated tool failure", nil)
			}
			name := "echo_" + target.DisplayName
			path := filepath.Join(req.OutputDir, name)
			if err := os.WriteFile(path, []byte("out"), 0o644); err != nil {
				return nil, err
			}
			return &module.Output{Path: path, DisplayName: name}, nil
		}),
	}
}

func TestRunYieldsOneOutcomePerTarget(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav", "c.wav")
	if err := f.registry.Register(echoModule("echo", "b.wav")); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := f.controller.Run(context.Background(), f.session.ID, "echo",
		[]string{entries[0].ID, entries[1].ID, entries[2].ID}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(result.Outcomes))
	}
	if result.Succeeded() != 2 || result.Failed() != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", result.Succeeded(), result.Failed())
	}

	failed := result.Outcomes[1]
	if failed.TargetID != entries[1].ID || failed.Succeeded() {
		t.Fatalf("expected second outcome to fail, got %+v", failed)
	}
	if failed.Reason == "" || failed.NewFileID != "" {
		t.Fatalf("failure outcome malformed: %+v", failed)
	}

	for _, i := range []int{0, 2} {
		outcome := result.Outcomes[i]
		if !outcome.Succeeded() {
			t.Fatalf("outcome %d should succeed: %+v", i, outcome)
		}
		derived, err := f.store.GetEntry(context.Background(), f.session.ID, outcome.NewFileID)
		if err != nil {
			t.Fatalf("derived entry missing: %v", err)
		}
		if derived.Origin != catalog.OriginDerived {
			t.Errorf("derived entry origin = %q", derived.Origin)
		}
		if derived.SourceID != entries[i].ID {
			t.Errorf("derived entry source = %q, want %q", derived.SourceID, entries[i].ID)
		}
		if derived.ProducingModuleID != "echo" {
			t.Errorf("derived entry module = %q", derived.ProducingModuleID)
		}
		if _, err := os.Stat(derived.StoragePath); err != nil {
			t.Errorf("derived file missing on disk: %v", err)
		}
	}

	all, err := f.store.ListEntries(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 3 uploads + 2 derived entries, got %d", len(all))
	}
}

func TestRunDedupesTargets(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav")
	if err := f.registry.Register(echoModule("echo", "")); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := f.controller.Run(context.Background(), f.session.ID, "echo",
		[]string{entries[0].ID, entries[0].ID, entries[1].ID}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 outcomes, got %d", len(result.Outcomes))
	}
}

func TestRunUnknownModuleFails(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav")

	_, err := f.controller.Run(context.Background(), f.session.ID, "reverb", []string{entries[0].ID}, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunUnknownTargetFails(t *testing.T) {
	f := newFixture(t)
	f.addUploads(t, "a.wav")
	if err := f.registry.Register(echoModule("echo", "")); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := f.controller.Run(context.Background(), f.session.ID, "echo", []string{"no-such-id"}, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// No outcome list and no derived entries on structural failure.
	all, err := f.store.ListEntries(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected only the upload, got %d entries", len(all))
	}
}

func TestRunRejectsForeignSessionTarget(t *testing.T) {
	f := newFixture(t)
	if err := f.registry.Register(echoModule("echo", "")); err != nil {
		t.Fatalf("register: %v", err)
	}

	other := testsupport.NewSession(t, f.store, "other")
	foreign := testsupport.AddUpload(t, f.store, other.ID, "x.wav", "/library/"+other.ID+"/uploads/x.wav")

	_, err := f.controller.Run(context.Background(), f.session.ID, "echo", []string{foreign.ID}, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunEnforcesMultiplicity(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav")

	single := echoModule("mono", "")
	single.Multiplicity = module.Single
	if err := f.registry.Register(single); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.controller.Run(context.Background(), f.session.ID, "mono",
		[]string{entries[0].ID, entries[1].ID}, nil); !errors.Is(err, services.ErrMultiplicity) {
		t.Fatalf("two targets on single module: expected multiplicity error, got %v", err)
	}
	if _, err := f.controller.Run(context.Background(), f.session.ID, "mono",
		nil, nil); !errors.Is(err, services.ErrMultiplicity) {
		t.Fatalf("zero targets: expected multiplicity error, got %v", err)
	}
}

func TestRunCombinedSharesOneDerivedEntry(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav", "c.wav")

	fold := module.Descriptor{
		ID:           "fold",
		DisplayName:  "Fold",
		Multiplicity: module.Multiple,
		Combines:     true,
		Handler: module.HandlerFunc(func(_ context.Context, req module.Request) (*module.Output, error) {
			path := filepath.Join(req.OutputDir, "folded.wav")
			if err := os.WriteFile(path, []byte("out"), 0o644); err != nil {
				return nil, err
			}
			return &module.Output{Path: path, DisplayName: "folded.wav"}, nil
		}),
	}
	if err := f.registry.Register(fold); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := f.controller.Run(context.Background(), f.session.ID, "fold",
		[]string{entries[0].ID, entries[1].ID, entries[2].ID}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(result.Outcomes))
	}
	newID := result.Outcomes[0].NewFileID
	if newID == "" {
		t.Fatal("expected a derived file id")
	}
	for _, outcome := range result.Outcomes {
		if !outcome.Succeeded() || outcome.NewFileID != newID {
			t.Fatalf("combined outcomes should share one id: %+v", result.Outcomes)
		}
	}

	derived, err := f.store.GetEntry(context.Background(), f.session.ID, newID)
	if err != nil {
		t.Fatalf("derived entry missing: %v", err)
	}
	if derived.SourceID != entries[0].ID {
		t.Errorf("combined entry source = %q, want first target %q", derived.SourceID, entries[0].ID)
	}

	all, err := f.store.ListEntries(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 3 uploads + 1 derived entry, got %d", len(all))
	}
}

func TestRunCombinedFailureMarksEveryTarget(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav")

	fold := module.Descriptor{
		ID:           "fold",
		DisplayName:  "Fold",
		Multiplicity: module.Multiple,
		Combines:     true,
		Handler: module.HandlerFunc(func(_ context.Context, _ module.Request) (*module.Output, error) {
			return nil, services.Wrap(services.ErrExternalTool, "media", "fold", "simulated tool failure", nil)
		}),
	}
	if err := f.registry.Register(fold); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := f.controller.Run(context.Background(), f.session.ID, "fold",
		[]string{entries[0].ID, entries[1].ID}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed() != 2 {
		t.Fatalf("expected both targets to fail, got %+v", result.Outcomes)
	}
	for _, outcome := range result.Outcomes {
		if outcome.Reason == "" {
			t.Fatalf("failure outcome missing reason: %+v", outcome)
		}
	}
}

func TestRunAbortsOnInvalidParams(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav")

	strict := module.Descriptor{
		ID:           "strict",
		DisplayName:  "Strict",
		Multiplicity: module.Multiple,
		Handler: module.HandlerFunc(func(_ context.Context, req module.Request) (*module.Output, error) {
			return nil, services.Wrap(services.ErrInvalidParams, "modules", "strict", "level out of range", nil)
		}),
	}
	if err := f.registry.Register(strict); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := f.controller.Run(context.Background(), f.session.ID, "strict",
		[]string{entries[0].ID, entries[1].ID}, module.Params{"level": -1})
	if !errors.Is(err, services.ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}

	all, err := f.store.ListEntries(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected no derived entries, got %d total", len(all))
	}
}

func TestRunAbortsOnStructuralHandlerError(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav")

	// A handler reporting an unknown reference is a caller bug, not a
	// per-target tool failure, so the whole run aborts.
	broken := module.Descriptor{
		ID:           "broken",
		DisplayName:  "Broken",
		Multiplicity: module.Multiple,
		Handler: module.HandlerFunc(func(_ context.Context, req module.Request) (*module.Output, error) {
			return nil, services.Wrap(services.ErrNotFound, "modules", "broken", "preset missing", nil)
		}),
	}
	if err := f.registry.Register(broken); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := f.controller.Run(context.Background(), f.session.ID, "broken",
		[]string{entries[0].ID, entries[1].ID}, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	all, err := f.store.ListEntries(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected no derived entries, got %d total", len(all))
	}
}

func TestRunReleasesOutputWhenRegistrationFails(t *testing.T) {
	f := newFixture(t)
	entries := f.addUploads(t, "a.wav", "b.wav")

	// Both targets produce the same output path, so the second registration
	// violates storage-path uniqueness.
	var fixed string
	clash := module.Descriptor{
		ID:           "clash",
		DisplayName:  "Clash",
		Multiplicity: module.Multiple,
		Handler: module.HandlerFunc(func(_ context.Context, req module.Request) (*module.Output, error) {
			fixed = filepath.Join(req.OutputDir, "same.wav")
			if err := os.WriteFile(fixed, []byte("out"), 0o644); err != nil {
				return nil, err
			}
			return &module.Output{Path: fixed, DisplayName: "same.wav"}, nil
		}),
	}
	if err := f.registry.Register(clash); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := f.controller.Run(context.Background(), f.session.ID, "clash",
		[]string{entries[0].ID, entries[1].ID}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded() != 1 || result.Failed() != 1 {
		t.Fatalf("expected one success and one duplicate-path failure, got %+v", result.Outcomes)
	}
	if result.Outcomes[1].Reason == "" {
		t.Fatalf("second outcome should carry the registration failure: %+v", result.Outcomes[1])
	}
	if _, err := os.Stat(fixed); !os.IsNotExist(err) {
		t.Fatal("expected clashing output file to be released")
	}
}
