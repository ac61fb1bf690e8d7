// Package storage defines the error taxonomy shared by every store and
// ledger in the application.
//
// WHY SENTINEL ERRORS?
// ────────────────────
// Callers need to branch on WHAT went wrong (missing record vs duplicate
// vs blocked delete), not on error message text. Each failure class below
// is a sentinel value; concrete errors wrap a sentinel with context:
//
//	fmt.Errorf("student %d: %w", id, storage.ErrNotFound)
//
// and callers test with errors.Is:
//
//	if errors.Is(err, storage.ErrNotFound) { ... }
//
// Stores and ledgers raise these synchronously and never log-and-continue
// on a correctness-relevant failure.
package storage

import "errors"

var (
	// ErrNotFound: the requested id does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate: an id or unique-constraint collision (existing id,
	// taken username, linked user id already in use, obligation already
	// open for a (student, course) pair).
	ErrDuplicate = errors.New("already exists")

	// ErrIDMismatch: an update whose replacement value carries a
	// different id than the one being updated.
	ErrIDMismatch = errors.New("id mismatch")

	// ErrValidation: malformed or missing required fields, invalid
	// email, non-positive amounts.
	ErrValidation = errors.New("validation failed")

	// ErrStateConflict: the operation is valid in form but the current
	// state forbids it: a delete blocked by dependent records, a second
	// attendance mark for the same day, a payment with no open
	// obligation to settle.
	ErrStateConflict = errors.New("state conflict")
)
