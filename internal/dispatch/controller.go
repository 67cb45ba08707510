package dispatch

import (
	"context"
	"log/slog"
	"time"

	"mixdown/internal/catalog"
	"mixdown/internal/logging"
	"mixdown/internal/module"
	"mixdown/internal/services"
	"mixdown/internal/storage"
)

// Outcome is the result for a single target within a batch.
type Outcome struct {
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
	NewFileID  string `json:"new_file_id,omitempty"`
	OutputName string `json:"output_name,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Succeeded reports whether the target produced a registered output.
func (o Outcome) Succeeded() bool {
	return o.Reason == ""
}

// Result aggregates the per-target outcomes of one run.
type Result struct {
	SessionID string    `json:"session_id"`
	ModuleID  string    `json:"module_id"`
	Outcomes  []Outcome `json:"outcomes"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   float64   `json:"elapsed_seconds"`
}

// Succeeded counts the targets that produced an output.
func (r *Result) Succeeded() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Succeeded() {
			count++
		}
	}
	return count
}

// Failed counts the targets that did not produce an output.
func (r *Result) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Controller resolves dispatch requests and turns module outputs into
// derived catalog entries.
type Controller struct {
	store      *catalog.Store
	registry   *module.Registry
	workspaces *storage.Workspaces
	logger     *slog.Logger
}

// NewController wires a controller over the catalog, registry, and
// workspace layout.
func NewController(store *catalog.Store, registry *module.Registry, workspaces *storage.Workspaces, logger *slog.Logger) *Controller {
	return &Controller{
		store:      store,
		registry:   registry,
		workspaces: workspaces,
		logger:     logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Run executes moduleID over the given targets. Structural problems (unknown
// module, unknown target, multiplicity or parameter violations) abort the
// whole run with an error; per-target tool failures land in the result
// instead.
func (c *Controller) Run(ctx context.Context, sessionID, moduleID string, targetIDs []string, params module.Params) (*Result, error) {
	mod, err := c.registry.Get(moduleID)
	if err != nil {
		return nil, err
	}

	ids := dedupe(targetIDs)
	if err := mod.ValidateTargetCount(len(ids)); err != nil {
		return nil, err
	}

	targets := make([]*catalog.FileEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := c.store.GetEntry(ctx, sessionID, id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, entry)
	}

	if err := c.workspaces.Ensure(sessionID); err != nil {
		return nil, err
	}
	outputDir, err := c.workspaces.OutputsDir(sessionID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result := &Result{
		SessionID: sessionID,
		ModuleID:  moduleID,
		StartedAt: started.UTC(),
	}

	c.logger.Info("dispatch started",
		logging.String("session_id", sessionID),
		logging.String("module", moduleID),
		logging.Int("targets", len(targets)))

	if mod.Combines {
		outcomes, err := c.runCombined(ctx, mod, sessionID, targets, params, outputDir)
		if err != nil {
			return nil, err
		}
		result.Outcomes = outcomes
	} else {
		for _, target := range targets {
			outcome, err := c.runSingle(ctx, mod, sessionID, target, params, outputDir)
			if err != nil {
				return nil, err
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
	}

	result.Elapsed = time.Since(started).Seconds()
	c.logger.Info("dispatch finished",
		logging.String("session_id", sessionID),
		logging.String("module", moduleID),
		logging.Int("succeeded", result.Succeeded()),
		logging.Int("failed", result.Failed()),
		logging.Duration("elapsed", time.Since(started)))
	return result, nil
}

// runSingle invokes the module for one target. Structural errors (bad
// parameters, unknown references) are caller bugs and abort the run; anything
// else becomes the target's failure reason.
func (c *Controller) runSingle(ctx context.Context, mod *module.Module, sessionID string, target *catalog.FileEntry, params module.Params, outputDir string) (Outcome, error) {
	outcome := Outcome{TargetID: target.ID, TargetName: target.DisplayName}

	output, err := mod.Handler.Process(ctx, module.Request{
		SessionID: sessionID,
		Targets:   []*catalog.FileEntry{target},
		Params:    params,
		OutputDir: outputDir,
	})
	if err != nil {
		if services.Structural(err) {
			return Outcome{}, err
		}
		c.logger.Warn("target failed",
			logging.String("module", mod.ID),
			logging.String("file_id", target.ID),
			logging.Error(err))
		outcome.Reason = err.Error()
		return outcome, nil
	}

	entry, err := c.register(ctx, sessionID, mod.ID, target.ID, output)
	if err != nil {
		outcome.Reason = err.Error()
		return outcome, nil
	}
	outcome.NewFileID = entry.ID
	outcome.OutputName = entry.DisplayName
	return outcome, nil
}

// runCombined invokes the module once for the whole batch. Every target
// shares the single outcome: one derived entry attributed to the first
// target, or one failure reason.
func (c *Controller) runCombined(ctx context.Context, mod *module.Module, sessionID string, targets []*catalog.FileEntry, params module.Params, outputDir string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(targets))
	for i, target := range targets {
		outcomes[i] = Outcome{TargetID: target.ID, TargetName: target.DisplayName}
	}

	output, err := mod.Handler.Process(ctx, module.Request{
		SessionID: sessionID,
		Targets:   targets,
		Params:    params,
		OutputDir: outputDir,
	})
	if err != nil {
		if services.Structural(err) {
			return nil, err
		}
		c.logger.Warn("batch failed",
			logging.String("module", mod.ID),
			logging.Int("targets", len(targets)),
			logging.Error(err))
		for i := range outcomes {
			outcomes[i].Reason = err.Error()
		}
		return outcomes, nil
	}

	entry, err := c.register(ctx, sessionID, mod.ID, targets[0].ID, output)
	if err != nil {
		for i := range outcomes {
			outcomes[i].Reason = err.Error()
		}
		return outcomes, nil
	}
	for i := range outcomes {
		outcomes[i].NewFileID = entry.ID
		outcomes[i].OutputName = entry.DisplayName
	}
	return outcomes, nil
}

// register records a module output as a derived catalog entry. The output
// file is released again when registration fails so the workspace does not
// accumulate orphans.
func (c *Controller) register(ctx context.Context, sessionID, moduleID, sourceID string, output *module.Output) (*catalog.FileEntry, error) {
	if output == nil || output.Path == "" {
		return nil, services.Wrap(services.ErrExternalTool, "dispatch", "register output",
			"module returned no output", nil)
	}
	entry, err := c.store.AddEntry(ctx, sessionID, catalog.NewEntry{
		DisplayName:       output.DisplayName,
		StoragePath:       output.Path,
		Origin:            catalog.OriginDerived,
		SourceID:          sourceID,
		ProducingModuleID: moduleID,
	})
	if err != nil {
		_ = c.workspaces.ReleaseFile(output.Path)
		return nil, err
	}
	return entry, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
