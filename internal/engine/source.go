package engine

// source.go - single-source pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leapgraph/internal/bridge"
	"github.com/leapstack-labs/leapgraph/internal/graph"
	"github.com/leapstack-labs/leapgraph/internal/reader"
	"github.com/leapstack-labs/leapgraph/internal/resolver"
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// cancelCheckInterval is how many records are processed between
// cancellation checks.
const cancelCheckInterval = 1024

// sourceOutcome is the result of one source pipeline.
type sourceOutcome struct {
	report core.SourceReport
	acc    *graph.Accumulator
	err    error
}

func (o *sourceOutcome) fail(status core.SourceStatus, err error) *sourceOutcome {
	o.report.Status = status
	o.report.Error = err.Error()
	o.err = err
	o.acc = nil
	return o
}

// runSource processes one source into a fresh accumulator. The returned
// outcome always carries a report, even when the source failed.
func (e *Engine) runSource(ctx context.Context, src *core.SourceConfig) *sourceOutcome {
	start := time.Now()
	out := &sourceOutcome{report: core.SourceReport{Name: src.Name}}
	defer func() { out.report.DurationMS = time.Since(start).Milliseconds() }()

	if err := ctx.Err(); err != nil {
		return out.fail(core.SourceStatusCancelled, err)
	}

	log := e.logger.With("source", src.Name)
	log.Debug("processing source", "path", src.Path, "format", src.Format)

	res, err := resolver.New(e.reg, src)
	if err != nil {
		return out.fail(core.SourceStatusFailed, &core.SourceError{Source: src.Name, Err: err})
	}
	synth := bridge.New(src)
	acc := graph.New(e.reg)

	var procErr error
	n := 0
	for rec, err := range reader.Open(src, e.input).Records() {
		if err != nil {
			procErr = err
			break
		}
		n++
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				procErr = err
				break
			}
		}
		if err := e.apply(acc, synth, res.Resolve(rec), src.Name, rec.Row); err != nil {
			procErr = err
			break
		}
	}

	stats := res.Stats()
	out.report.Rows = stats.Rows
	out.report.SkippedRows = stats.SkippedRows
	out.report.EdgesSkipped = stats.EdgesSkipped
	out.report.InvalidValues = stats.InvalidValues
	if len(stats.MissingBindings) > 0 {
		out.report.MissingBindings = stats.MissingBindings
	}

	if procErr != nil {
		status := core.SourceStatusFailed
		if errors.Is(procErr, context.Canceled) || errors.Is(procErr, context.DeadlineExceeded) {
			status = core.SourceStatusCancelled
		}
		log.Warn("source failed", "rows", stats.Rows, "error", procErr)
		return out.fail(status, procErr)
	}

	accStats := acc.Stats()
	out.report.Status = core.SourceStatusSuccess
	out.report.Nodes = accStats.Nodes
	out.report.Edges = accStats.Edges
	out.report.DerivedEdges = accStats.DerivedEdges
	out.acc = acc

	log.Info("source processed",
		"rows", stats.Rows,
		"skipped_rows", stats.SkippedRows,
		"nodes", accStats.Nodes,
		"edges", accStats.Edges,
		"derived_edges", accStats.DerivedEdges,
	)
	return out
}

// apply upserts everything one record resolved to.
func (e *Engine) apply(acc *graph.Accumulator, synth *bridge.Synthesizer, r *resolver.Resolution, source string, row int) error {
	for _, n := range r.Nodes {
		if err := acc.UpsertNode(n); err != nil {
			return wrapRowError(err, source, row)
		}
	}
	for _, edge := range r.Edges {
		if err := acc.UpsertEdge(edge); err != nil {
			return wrapRowError(err, source, row)
		}
	}
	if synth.Empty() {
		return nil
	}
	for _, edge := range synth.Synthesize(r.Bindings, core.Origin{Source: source, Row: row}) {
		if err := acc.UpsertEdge(edge); err != nil {
			return wrapRowError(err, source, row)
		}
	}
	return nil
}

// wrapRowError keeps identity conflicts as they are and wraps anything else
// with its source location.
func wrapRowError(err error, source string, row int) error {
	var conflict *core.IdentityConflictError
	if errors.As(err, &conflict) {
		return err
	}
	return &core.SourceError{Source: source, Row: row, Err: err}
}
