package core

import "time"

// Store defines the interface for build history persistence.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Build operations
	CreateBuild(schemaPath, outputDir string) (*Build, error)
	GetBuild(id string) (*Build, error)
	CompleteBuild(id string, status BuildStatus, errMsg string) error
	GetLatestBuild() (*Build, error)
	ListBuilds(limit int) ([]*Build, error)

	// Per-build details
	RecordSourceReports(buildID string, reports []SourceReport) error
	GetSourceReports(buildID string) ([]SourceReport, error)
	RecordLabelCounts(buildID string, nodes, edges map[string]int) error
	GetLabelCounts(buildID string) (nodes, edges map[string]int, err error)
}

// BuildStatus represents the status of a build run.
type BuildStatus string

// Build status constants.
const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusCompleted BuildStatus = "completed"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// Build represents one persisted build run.
type Build struct {
	ID          string      `json:"id"`
	SchemaPath  string      `json:"schema_path"`
	OutputDir   string      `json:"output_dir"`
	Status      BuildStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// SourceStatus represents the outcome of one source within a build.
type SourceStatus string

// Source status constants.
const (
	SourceStatusSuccess   SourceStatus = "success"
	SourceStatusFailed    SourceStatus = "failed"
	SourceStatusCancelled SourceStatus = "cancelled"
)

// SourceReport is the per-source bookkeeping reported after a build.
type SourceReport struct {
	Name   string       `json:"name"`
	Status SourceStatus `json:"status"`
	// Rows is the number of records read
	Rows int `json:"rows"`
	// SkippedRows counts records that resolved no entity at all
	SkippedRows int `json:"skipped_rows"`
	// MissingBindings counts, per binding, rows where it could not be resolved
	MissingBindings map[string]int `json:"missing_bindings,omitempty"`
	// EdgesSkipped counts explicit edges with an unresolved endpoint binding
	EdgesSkipped int `json:"edges_skipped"`
	// InvalidValues counts typed property values that failed to parse
	InvalidValues int    `json:"invalid_values"`
	Nodes         int    `json:"nodes"`
	Edges         int    `json:"edges"`
	DerivedEdges  int    `json:"derived_edges"`
	Error         string `json:"error,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
}

// BuildResult is what a completed build exposes to the orchestration layer.
type BuildResult struct {
	RunID      string         `json:"run_id"`
	OutputDir  string         `json:"output_dir"`
	Status     BuildStatus    `json:"status"`
	NodeCounts map[string]int `json:"node_counts"`
	EdgeCounts map[string]int `json:"edge_counts"`
	Sources    []SourceReport `json:"sources"`
	Files      []string       `json:"files"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"-"`
}

// Failed reports whether any part of the build failed.
func (r *BuildResult) Failed() bool {
	return r.Status != BuildStatusCompleted
}
