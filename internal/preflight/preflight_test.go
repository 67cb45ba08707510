package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/preflight"
	"mixdown/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDirectoryAccess("Scratch", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s, got detail %q", dir, result.Detail)
	}

	missing := preflight.CheckDirectoryAccess("Scratch", filepath.Join(dir, "absent"))
	if missing.Passed {
		t.Fatal("expected failure for missing directory")
	}

	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	notDir := preflight.CheckDirectoryAccess("Scratch", file)
	if notDir.Passed {
		t.Fatal("expected failure for non-directory path")
	}
}

func TestCheckBinary(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("fakeprobe"))

	found := preflight.CheckBinary("FakeProbe", "fakeprobe")
	if !found.Passed {
		t.Fatalf("expected stubbed binary to resolve, got detail %q", found.Detail)
	}

	absent := preflight.CheckBinary("Ghost", "mixdown-no-such-binary")
	if absent.Passed {
		t.Fatal("expected failure for unresolvable binary")
	}

	unset := preflight.CheckBinary("Empty", "  ")
	if unset.Passed || unset.Detail != "command not configured" {
		t.Fatalf("unexpected result for empty command: %+v", unset)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Watch.Enabled = true
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := preflight.RunAll(cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 checks, got %d: %+v", len(results), results)
	}
	if !preflight.AllPassed(results) {
		t.Fatalf("expected all checks to pass: %+v", preflight.Failures(results))
	}

	cfg.Tools.FFmpegPath = "mixdown-no-such-binary"
	results = preflight.RunAll(cfg)
	if preflight.AllPassed(results) {
		t.Fatal("expected ffmpeg check to fail")
	}
	failures := preflight.Failures(results)
	if len(failures) != 1 || failures[0].Name != "FFmpeg" {
		t.Fatalf("unexpected failures: %+v", failures)
	}
}
