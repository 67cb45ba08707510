package services_test

import (
	"errors"
	"strings"
	"testing"

	"mixdown/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "media", "trim", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"media", "trim", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "catalog", "get", "no such entry", nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "catalog: get: no such entry") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStructuralClassification(t *testing.T) {
	structural := []error{
		services.ErrNotFound,
		services.ErrDuplicatePath,
		services.ErrDuplicateModule,
		services.ErrMultiplicity,
		services.ErrIndexOutOfRange,
		services.ErrDispatchBusy,
		services.ErrInvalidParams,
	}
	for _, marker := range structural {
		err := services.Wrap(marker, "catalog", "op", "detail", nil)
		if !services.Structural(err) {
			t.Fatalf("expected %v to classify as structural", marker)
		}
	}

	toolErr := services.Wrap(services.ErrExternalTool, "media", "convert", "exit 1", errors.New("ffmpeg"))
	if services.Structural(toolErr) {
		t.Fatalf("tool failure should not classify as structural: %v", toolErr)
	}
	if services.Structural(nil) {
		t.Fatal("nil error should not classify as structural")
	}
}
