package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-hap/internal/apply"
)

// WriteEdits batch-inserts the edits of one run using the Appender API.
// Rows keep the order of edits through the ordinal column.
func (s *Store) WriteEdits(runID string, edits []apply.Edit) error {
	if len(edits) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "edits")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, e := range edits {
		if err := appender.AppendRow(
			runID, int64(i), int32(e.Haplotype), e.Chrom, int64(e.Pos),
			e.Kind, string(e.Phase), e.OriginChrom, int64(e.OriginStart),
			int64(e.OriginLength), int64(e.DestLength), int64(e.NetChange),
			int64(e.Line), e.Reason,
		); err != nil {
			return fmt.Errorf("append edit: %w", err)
		}
	}

	return appender.Flush()
}

// ClearRun removes all edits of a run.
func (s *Store) ClearRun(runID string) error {
	_, err := s.db.Exec("DELETE FROM edits WHERE run_id=?", runID)
	return err
}

// Runs returns the distinct run IDs in the ledger.
func (s *Store) Runs() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT run_id FROM edits ORDER BY run_id")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// EditsAt returns the edits of a run on one haplotype and chromosome, in the
// order they were logged.
func (s *Store) EditsAt(runID string, haplotype int, chrom string) ([]apply.Edit, error) {
	rows, err := s.db.Query(`SELECT
		haplotype, chrom, pos, kind, phase,
		origin_chrom, origin_start, origin_length, dest_length,
		net_change, source_line, reason
		FROM edits
		WHERE run_id=? AND haplotype=? AND chrom=?
		ORDER BY ordinal`, runID, haplotype, chrom)
	if err != nil {
		return nil, fmt.Errorf("query edits: %w", err)
	}
	defer rows.Close()

	var edits []apply.Edit
	for rows.Next() {
		var (
			e     apply.Edit
			phase string
		)
		if err := rows.Scan(
			&e.Haplotype, &e.Chrom, &e.Pos, &e.Kind, &phase,
			&e.OriginChrom, &e.OriginStart, &e.OriginLength, &e.DestLength,
			&e.NetChange, &e.Line, &e.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		e.Phase = apply.Phase(phase)
		edits = append(edits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edits: %w", err)
	}
	return edits, nil
}

// PhaseSummary aggregates a run's edits by haplotype, chromosome and phase.
type PhaseSummary struct {
	Haplotype int
	Chrom     string
	Phase     apply.Phase
	Count     int64
	NetChange int64
}

// Summary returns per haplotype, chromosome and phase counts and net length
// change for a run.
func (s *Store) Summary(runID string) ([]PhaseSummary, error) {
	rows, err := s.db.Query(`SELECT
		haplotype, chrom, phase, COUNT(*), CAST(SUM(net_change) AS BIGINT)
		FROM edits
		WHERE run_id=?
		GROUP BY haplotype, chrom, phase
		ORDER BY haplotype, chrom, phase`, runID)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []PhaseSummary
	for rows.Next() {
		var (
			ps    PhaseSummary
			phase string
		)
		if err := rows.Scan(&ps.Haplotype, &ps.Chrom, &phase, &ps.Count, &ps.NetChange); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		ps.Phase = apply.Phase(phase)
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return out, nil
}
