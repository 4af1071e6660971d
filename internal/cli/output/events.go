package output

// BuildEvent is one JSON line emitted by "leapgraph build --json".
type BuildEvent struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	Source    string `json:"source,omitempty"`
	Status    string `json:"status,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Skipped   int    `json:"skipped_rows,omitempty"`
	Nodes     int    `json:"nodes,omitempty"`
	Edges     int    `json:"edges,omitempty"`
	Error     string `json:"error,omitempty"`

	// Set on build_start
	Sources []string `json:"sources,omitempty"`

	// Set on build_complete
	Files   []string `json:"files,omitempty"`
	TotalMS int64    `json:"total_ms,omitempty"`
}
