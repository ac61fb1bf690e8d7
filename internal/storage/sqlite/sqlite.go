// Package sqlite provides the reporting archive: a SQLite database that
// report exports dump consistent snapshots into, so downstream reporting
// tools can query institute data with SQL without ever touching the live
// snapshot files.
//
// The archive is strictly a sink. The stores own their flat-file
// snapshots exclusively; nothing in the application reads state back out
// of the archive.
//
// The blank import below registers the sqlite3 driver with database/sql:
// the driver's init() does this as a side effect when the package loads.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/institutehq/institute-api/internal/types"
)

// Archive wraps the export database. A single *sql.DB is a connection
// pool and safe for concurrent use.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at path and ensures the
// schema exists. Every table is keyed by the export run id, so repeated
// exports accumulate rather than overwrite.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}

	// Idempotent schema setup, safe on every startup.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS export_runs (
			run_id      TEXT PRIMARY KEY,
			exported_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS students (
			run_id     TEXT    NOT NULL,
			student_id INTEGER NOT NULL,
			name       TEXT    NOT NULL,
			email      TEXT    NOT NULL,
			course_id  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS payments (
			run_id     TEXT    NOT NULL,
			payment_id INTEGER NOT NULL,
			student_id INTEGER NOT NULL,
			course_id  INTEGER NOT NULL,
			amount     TEXT    NOT NULL,
			mode       TEXT    NOT NULL,
			status     TEXT    NOT NULL,
			paid_at    TEXT    NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pending_fees (
			run_id      TEXT    NOT NULL,
			student_id  INTEGER NOT NULL,
			outstanding TEXT    NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: create schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// StoreSnapshot writes one export run in a single SQL transaction:
// either the whole snapshot lands in the archive or none of it does.
//
// Amounts are stored as their plain decimal strings, keeping the exact
// values the ledger holds.
func (a *Archive) StoreSnapshot(runID string, exportedAt time.Time,
	students []types.Student, payments []types.Payment, pending map[int]decimal.Decimal) error {

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("StoreSnapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO export_runs (run_id, exported_at) VALUES (?, ?)",
		runID, exportedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("StoreSnapshot: run row: %w", err)
	}

	for _, s := range students {
		if _, err := tx.Exec(
			"INSERT INTO students (run_id, student_id, name, email, course_id) VALUES (?, ?, ?, ?, ?)",
			runID, s.ID, s.Name, s.Email, s.CourseID,
		); err != nil {
			return fmt.Errorf("StoreSnapshot: student %d: %w", s.ID, err)
		}
	}

	for _, p := range payments {
		if _, err := tx.Exec(
			"INSERT INTO payments (run_id, payment_id, student_id, course_id, amount, mode, status, paid_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			runID, p.ID, p.StudentID, p.CourseID, p.Amount.String(), string(p.Mode), string(p.Status), p.PaidAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("StoreSnapshot: payment %d: %w", p.ID, err)
		}
	}

	for studentID, outstanding := range pending {
		if _, err := tx.Exec(
			"INSERT INTO pending_fees (run_id, student_id, outstanding) VALUES (?, ?, ?)",
			runID, studentID, outstanding.String(),
		); err != nil {
			return fmt.Errorf("StoreSnapshot: pending fees for %d: %w", studentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("StoreSnapshot: commit: %w", err)
	}
	return nil
}
