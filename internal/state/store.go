// Package state persists build history in SQLite: one row per build, plus
// per-source reports and per-label row counts.
package state

import (
	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// Type aliases for the persisted types defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Build is an alias for core.Build.
	Build = core.Build

	// BuildStatus is an alias for core.BuildStatus.
	BuildStatus = core.BuildStatus

	// SourceReport is an alias for core.SourceReport.
	SourceReport = core.SourceReport
)

// Re-exported status constants.
const (
	BuildStatusRunning   = core.BuildStatusRunning
	BuildStatusCompleted = core.BuildStatusCompleted
	BuildStatusFailed    = core.BuildStatusFailed
	BuildStatusCancelled = core.BuildStatusCancelled
)

var _ Store = (*SQLiteStore)(nil)
