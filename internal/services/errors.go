package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicatePath   = errors.New("duplicate storage path")
	ErrDuplicateModule = errors.New("duplicate module")
	ErrMultiplicity    = errors.New("multiplicity violation")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDispatchBusy    = errors.New("dispatch already in flight")
	ErrInvalidParams   = errors.New("invalid parameters")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrExternalTool    = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Structural reports whether the error carries one of the markers that abort
// the single triggering operation: caller bugs rather than per-target tool
// failures.
func Structural(err error) bool {
	for _, marker := range []error{
		ErrNotFound,
		ErrDuplicatePath,
		ErrDuplicateModule,
		ErrMultiplicity,
		ErrIndexOutOfRange,
		ErrDispatchBusy,
		ErrInvalidParams,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
