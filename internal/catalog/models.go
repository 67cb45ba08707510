package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Origin identifies how a file entry came to exist.
type Origin string

const (
	OriginUploaded Origin = "uploaded"
	OriginDerived  Origin = "derived"
)

var originSet = map[Origin]struct{}{
	OriginUploaded: {},
	OriginDerived:  {},
}

// ParseOrigin converts a raw string into a known Origin.
func ParseOrigin(value string) (Origin, error) {
	origin := Origin(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := originSet[origin]; !ok {
		return "", fmt.Errorf("unknown origin %q", value)
	}
	return origin, nil
}

// FileEntry describes one registered file within a session.
//
// ID is assigned at registration and immutable. StoragePath is owned by the
// store; callers read it for downloads and processing but never rebind it.
// OrderIndex is the user-visible position, contiguous from 0 within the
// owning session.
type FileEntry struct {
	ID                string
	SessionID         string
	DisplayName       string
	StoragePath       string
	OrderIndex        int
	Origin            Origin
	SourceID          string
	ProducingModuleID string
	CreatedAt         time.Time
}

// Derived reports whether the entry was produced by a module run.
func (e *FileEntry) Derived() bool {
	return e.Origin == OriginDerived
}

// Session is one user's isolated registry scope.
type Session struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// NewEntry carries the caller-supplied fields for registering a file entry.
type NewEntry struct {
	DisplayName       string
	StoragePath       string
	Origin            Origin
	SourceID          string
	ProducingModuleID string
}

// Stats summarizes catalog contents for diagnostics.
type Stats struct {
	Sessions int
	Entries  int
	Derived  int
}
