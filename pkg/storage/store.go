// Package storage is the textboard entity repository: users, threads and
// replies in SQLite.
//
// A Store wraps a *sql.DB opened by pkg/db; it never opens or owns a
// connection itself, so tests and commands can hand it any database. The
// full-text indexes are kept in sync by triggers installed by the
// migrations, so writes here only touch the primary tables.
//
// Every storage failure wraps ErrPersistence. Lookups that find nothing
// return (nil, nil) for GetThreadWithReplies and ErrNotFound for admin
// operations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rubiojr/textboard/pkg/log"
)

var (
	// ErrPersistence wraps every failure reported by the database.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned by admin operations on missing rows.
	ErrNotFound = errors.New("not found")
)

var logger = log.ForService("storage")

// TimeLayout is how timestamps are written: fixed width UTC so text order
// matches time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the board's entity repository over a migrated database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a Store using db. The caller owns and closes db.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) timestamp() (time.Time, string) {
	t := s.now().UTC()
	return t, t.Format(TimeLayout)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.Warnf("failed to close rows: %v", err)
	}
}

// withTx runs fn in a transaction, committing when fn succeeds.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr(op, fmt.Errorf("beginning transaction: %w", err))
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistErr(op, fmt.Errorf("committing transaction: %w", err))
	}
	committed = true
	return nil
}
