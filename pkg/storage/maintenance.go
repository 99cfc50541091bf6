package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// searchIndexes are the FTS5 tables kept in sync with threads and replies.
var searchIndexes = []string{"threads_fts", "replies_fts"}

// OptimizeSearchIndex merges the FTS5 index segments. With rebuild it
// regenerates both indexes from the primary tables instead, which repairs an
// index that drifted or was corrupted.
func (s *Store) OptimizeSearchIndex(ctx context.Context, rebuild bool) error {
	command := "optimize"
	if rebuild {
		command = "rebuild"
	}
	for _, table := range searchIndexes {
		query := fmt.Sprintf("INSERT INTO %s(%s) VALUES (?)", table, table)
		if _, err := s.db.ExecContext(ctx, query, command); err != nil {
			return persistErr(fmt.Sprintf("%s search index %s", command, table), err)
		}
		logger.Debugf("%s %s done", command, table)
	}
	return nil
}

// CheckIntegrity runs SQLite's integrity check and the FTS5 integrity check
// of both search indexes. It returns the problems found, none when healthy.
func (s *Store) CheckIntegrity(ctx context.Context) ([]string, error) {
	var problems []string

	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, persistErr("checking integrity", err)
	}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			closeRows(rows)
			return nil, persistErr("reading integrity check", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, persistErr("checking integrity", err)
	}

	for _, table := range searchIndexes {
		query := fmt.Sprintf("INSERT INTO %s(%s, rank) VALUES ('integrity-check', 1)", table, table)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", table, err))
		}
	}

	return problems, nil
}

func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return persistErr("optimizing database", err)
	}
	return nil
}

func (s *Store) Analyze(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return persistErr("analyzing database", err)
	}
	return nil
}

func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return persistErr("vacuuming database", err)
	}
	return nil
}

func (s *Store) WALCheckpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return persistErr("checkpointing WAL", err)
	}
	return nil
}

// MaintenanceStep is one named maintenance operation.
type MaintenanceStep struct {
	Name string
	Run  func(context.Context) error
}

// MaintenanceSteps lists the full maintenance run in order.
func (s *Store) MaintenanceSteps(rebuild bool) []MaintenanceStep {
	return []MaintenanceStep{
		{"search index", func(ctx context.Context) error { return s.OptimizeSearchIndex(ctx, rebuild) }},
		{"optimize", s.Optimize},
		{"analyze", s.Analyze},
		{"wal checkpoint", s.WALCheckpoint},
		{"vacuum", s.Vacuum},
	}
}

// RoutineMaintenanceSteps are the steps cheap enough to run while serving:
// search index merge, PRAGMA optimize and a WAL checkpoint.
func (s *Store) RoutineMaintenanceSteps() []MaintenanceStep {
	return []MaintenanceStep{
		{"search index", func(ctx context.Context) error { return s.OptimizeSearchIndex(ctx, false) }},
		{"optimize", s.Optimize},
		{"wal checkpoint", s.WALCheckpoint},
	}
}

// RunMaintenance runs the full maintenance sequence.
func (s *Store) RunMaintenance(ctx context.Context, rebuild bool) error {
	return RunSteps(ctx, s.MaintenanceSteps(rebuild))
}

// RunSteps runs every step, continuing past failures, and reports the
// failures together.
func RunSteps(ctx context.Context, steps []MaintenanceStep) error {
	var errs []error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := step.Run(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		logger.Infof("%s completed in %v", step.Name, time.Since(start).Round(time.Millisecond))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during maintenance: %w", errors.Join(errs...))
	}
	return nil
}
