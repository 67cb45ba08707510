package module

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"mixdown/internal/catalog"
	"mixdown/internal/services"
)

// Multiplicity declares how many files a module accepts per dispatch.
type Multiplicity string

const (
	// Single modules take exactly one target per dispatch.
	Single Multiplicity = "single"
	// Multiple modules take one or more targets per dispatch.
	Multiple Multiplicity = "multiple"
)

func (m Multiplicity) valid() bool {
	return m == Single || m == Multiple
}

// Request carries everything a handler needs to process one invocation.
// Per-file modules receive a single target; combining modules receive the
// whole batch at once.
type Request struct {
	SessionID string
	Targets   []*catalog.FileEntry
	Params    Params
	OutputDir string
}

// Target returns the first target. Handlers for single-target modules use it
// as a convenience.
func (r Request) Target() *catalog.FileEntry {
	if len(r.Targets) == 0 {
		return nil
	}
	return r.Targets[0]
}

// Output describes the file a handler produced.
type Output struct {
	Path        string
	DisplayName string
}

// Handler is a module's processing entry point. Implementations validate
// their parameters before touching any target and return services-wrapped
// errors so dispatch can classify failures.
type Handler interface {
	Process(ctx context.Context, req Request) (*Output, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) (*Output, error)

// Process implements Handler.
func (f HandlerFunc) Process(ctx context.Context, req Request) (*Output, error) {
	return f(ctx, req)
}

// Descriptor declares a processing module.
type Descriptor struct {
	ID          string
	DisplayName string
	Description string
	Icon        string

	// Accepts lists glob patterns matched against lowercased file names,
	// for example "*.wav". Empty means the module accepts any file.
	Accepts []string

	Multiplicity Multiplicity

	// Combines marks a multiple-target module that folds the whole batch
	// into one output instead of producing one output per target.
	Combines bool

	Handler Handler
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return services.Wrap(services.ErrValidation, "module", "register", "module id must not be empty", nil)
	}
	if !d.Multiplicity.valid() {
		return services.Wrap(services.ErrValidation, "module", "register",
			fmt.Sprintf("module %s: unknown multiplicity %q", d.ID, d.Multiplicity), nil)
	}
	if d.Combines && d.Multiplicity != Multiple {
		return services.Wrap(services.ErrValidation, "module", "register",
			fmt.Sprintf("module %s: combining modules must accept multiple targets", d.ID), nil)
	}
	if d.Handler == nil {
		return services.Wrap(services.ErrValidation, "module", "register",
			fmt.Sprintf("module %s: handler must not be nil", d.ID), nil)
	}
	return nil
}

// Module is a registered descriptor with its accept patterns compiled.
type Module struct {
	Descriptor

	matchers []glob.Glob
}

func newModule(desc Descriptor) (*Module, error) {
	if err := desc.validate(); err != nil {
		return nil, err
	}

	matchers := make([]glob.Glob, 0, len(desc.Accepts))
	for _, pattern := range desc.Accepts {
		matcher, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "module", "register",
				fmt.Sprintf("module %s: invalid accept pattern %q", desc.ID, pattern), err)
		}
		matchers = append(matchers, matcher)
	}
	return &Module{Descriptor: desc, matchers: matchers}, nil
}

// AcceptsFile reports whether the module operates on files with the given
// name. Matching is case-insensitive over the base name.
func (m *Module) AcceptsFile(name string) bool {
	if len(m.matchers) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(name))
	for _, matcher := range m.matchers {
		if matcher.Match(base) {
			return true
		}
	}
	return false
}

// ValidateTargetCount checks a prospective batch size against the module's
// declared multiplicity.
func (m *Module) ValidateTargetCount(n int) error {
	switch {
	case n < 1:
		return services.Wrap(services.ErrMultiplicity, "module", "validate targets",
			fmt.Sprintf("module %s requires at least one target", m.ID), nil)
	case m.Multiplicity == Single && n > 1:
		return services.Wrap(services.ErrMultiplicity, "module", "validate targets",
			fmt.Sprintf("module %s accepts a single target, got %d", m.ID, n), nil)
	case m.Combines && n < 2:
		return services.Wrap(services.ErrMultiplicity, "module", "validate targets",
			fmt.Sprintf("module %s combines targets and needs at least two, got %d", m.ID, n), nil)
	}
	return nil
}
