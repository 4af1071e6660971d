package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/leapgraph/pkg/core"
)

// RecordSourceReports stores the per-source outcome of a build.
func (s *SQLiteStore) RecordSourceReports(buildID string, reports []core.SourceReport) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, r := range reports {
		var missing *string
		if len(r.MissingBindings) > 0 {
			data, err := json.Marshal(r.MissingBindings)
			if err != nil {
				return fmt.Errorf("failed to encode missing bindings: %w", err)
			}
			m := string(data)
			missing = &m
		}
		var errMsg *string
		if r.Error != "" {
			errMsg = &r.Error
		}
		_, err := tx.ExecContext(ctx(),
			`INSERT INTO build_sources (build_id, position, name, status, row_count, skipped_rows,
			 missing_bindings, edges_skipped, invalid_values, nodes, edges, derived_edges, error, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			buildID, i, r.Name, string(r.Status), r.Rows, r.SkippedRows,
			missing, r.EdgesSkipped, r.InvalidValues, r.Nodes, r.Edges, r.DerivedEdges, errMsg, r.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("failed to record source %s: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

// GetSourceReports returns the per-source outcome of a build in source order.
func (s *SQLiteStore) GetSourceReports(buildID string) ([]core.SourceReport, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT name, status, row_count, skipped_rows, missing_bindings, edges_skipped, invalid_values,
		 nodes, edges, derived_edges, error, duration_ms
		 FROM build_sources WHERE build_id = ? ORDER BY position`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get source reports: %w", err)
	}
	defer rows.Close()

	var reports []core.SourceReport
	for rows.Next() {
		var (
			r       core.SourceReport
			status  string
			missing sql.NullString
			errMsg  sql.NullString
		)
		if err := rows.Scan(&r.Name, &status, &r.Rows, &r.SkippedRows, &missing, &r.EdgesSkipped,
			&r.InvalidValues, &r.Nodes, &r.Edges, &r.DerivedEdges, &errMsg, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan source report: %w", err)
		}
		r.Status = core.SourceStatus(status)
		if missing.Valid {
			if err := json.Unmarshal([]byte(missing.String), &r.MissingBindings); err != nil {
				return nil, fmt.Errorf("failed to decode missing bindings of %s: %w", r.Name, err)
			}
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// RecordLabelCounts stores the exported row count per node and edge label.
func (s *SQLiteStore) RecordLabelCounts(buildID string, nodes, edges map[string]int) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for kind, counts := range map[string]map[string]int{"node": nodes, "edge": edges} {
		for label, n := range counts {
			if _, err := tx.ExecContext(ctx(),
				`INSERT INTO build_labels (build_id, kind, label, count) VALUES (?, ?, ?, ?)`,
				buildID, kind, label, n,
			); err != nil {
				return fmt.Errorf("failed to record %s count for %s: %w", kind, label, err)
			}
		}
	}
	return tx.Commit()
}

// GetLabelCounts returns the recorded row counts of a build.
func (s *SQLiteStore) GetLabelCounts(buildID string) (nodes, edges map[string]int, err error) {
	if s.db == nil {
		return nil, nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT kind, label, count FROM build_labels WHERE build_id = ?`, buildID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get label counts: %w", err)
	}
	defer rows.Close()

	nodes, edges = make(map[string]int), make(map[string]int)
	for rows.Next() {
		var (
			kind, label string
			n           int
		)
		if err := rows.Scan(&kind, &label, &n); err != nil {
			return nil, nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		if kind == "node" {
			nodes[label] = n
		} else {
			edges[label] = n
		}
	}
	return nodes, edges, rows.Err()
}
