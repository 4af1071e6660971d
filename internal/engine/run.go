package engine

// run.go - Build orchestration across sources

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapgraph/internal/graph"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Build runs every configured source, merges the results in declared source
// order, exports the merged graph and records the build. The result is
// returned even when the build failed; the error then joins every source and
// export failure.
func (e *Engine) Build(ctx context.Context) (*core.BuildResult, error) {
	start := time.Now()
	sources := e.reg.Sources()
	e.logger.Info("starting build", "sources", len(sources), "parallelism", e.parallelism)

	result := &core.BuildResult{
		RunID:     uuid.New().String(),
		OutputDir: e.outputDir,
	}
	if e.store != nil {
		b, err := e.store.CreateBuild(e.schemaPath, e.outputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create build: %w", err)
		}
		result.RunID = b.ID
	}
	e.logger.Debug("created build", "run_id", result.RunID)

	// Phase 1: process sources, each into its own accumulator
	outcomes := e.runSources(ctx, sources)

	// Phase 2: merge in declared order
	merged, errs := e.mergeOutcomes(ctx, outcomes)

	result.Sources = make([]core.SourceReport, len(outcomes))
	for i, o := range outcomes {
		result.Sources[i] = o.report
	}

	// Phase 3: export
	cancelled := ctx.Err() != nil
	if cancelled {
		errs = append(errs, ctx.Err())
	} else {
		snap := merged.Snapshot()
		manifest, err := e.exporter.Write(snap, e.outputDir)
		if err != nil {
			e.logger.Error("export failed", "run_id", result.RunID, "error", err)
			errs = append(errs, fmt.Errorf("export failed: %w", err))
		} else {
			result.NodeCounts = manifest.NodeCounts()
			result.EdgeCounts = manifest.EdgeCounts()
			for _, f := range manifest.Files() {
				result.Files = append(result.Files, filepath.Join(e.outputDir, f))
			}
		}
	}

	buildErr := errors.Join(errs...)
	switch {
	case cancelled:
		result.Status = core.BuildStatusCancelled
	case buildErr != nil:
		result.Status = core.BuildStatusFailed
	default:
		result.Status = core.BuildStatusCompleted
	}
	if buildErr != nil {
		result.Error = buildErr.Error()
	}
	result.Duration = time.Since(start)

	e.record(result)

	if buildErr != nil {
		e.logger.Info("build failed", "run_id", result.RunID, "status", result.Status, "error", buildErr.Error())
	} else {
		e.logger.Info("build completed", "run_id", result.RunID, "duration", result.Duration,
			"files", len(result.Files))
	}
	return result, buildErr
}

// runSources processes sources with at most e.parallelism running at once.
// Outcomes are returned in declared source order.
func (e *Engine) runSources(ctx context.Context, sources []*core.SourceConfig) []*sourceOutcome {
	outcomes := make([]*sourceOutcome, len(sources))

	// A failing source must not stop the others, so workers never return
	// an error and the group carries no derived context.
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, src := range sources {
		g.Go(func() error {
			outcomes[i] = e.runSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// mergeOutcomes folds successful source accumulators into a fresh run
// accumulator. A source whose merge conflicts is marked failed and
// contributes nothing.
func (e *Engine) mergeOutcomes(ctx context.Context, outcomes []*sourceOutcome) (*graph.Accumulator, []error) {
	merged := graph.New(e.reg)
	var errs []error

	for _, o := range outcomes {
		if o.acc == nil {
			if o.err != nil && o.report.Status == core.SourceStatusFailed {
				errs = append(errs, fmt.Errorf("source %s: %w", o.report.Name, o.err))
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			o.fail(core.SourceStatusCancelled, err)
			continue
		}
		if err := merged.Merge(o.acc); err != nil {
			e.logger.Warn("source excluded from merge", "source", o.report.Name, "error", err)
			o.fail(core.SourceStatusFailed, err)
			errs = append(errs, fmt.Errorf("source %s: %w", o.report.Name, err))
			continue
		}
		o.acc = nil
	}
	return merged, errs
}

// record persists the build outcome. History failures are logged, not
// returned.
func (e *Engine) record(result *core.BuildResult) {
	if e.store == nil {
		return
	}
	if err := e.store.RecordSourceReports(result.RunID, result.Sources); err != nil {
		e.logger.Warn("failed to record source reports", "run_id", result.RunID, "error", err)
	}
	if result.NodeCounts != nil || result.EdgeCounts != nil {
		if err := e.store.RecordLabelCounts(result.RunID, result.NodeCounts, result.EdgeCounts); err != nil {
			e.logger.Warn("failed to record label counts", "run_id", result.RunID, "error", err)
		}
	}
	if err := e.store.CompleteBuild(result.RunID, result.Status, result.Error); err != nil {
		e.logger.Warn("failed to complete build", "run_id", result.RunID, "error", err)
	}
}
