// Package filestore implements the generic snapshot store: a
// concurrency-safe in-memory keyed map of entities backed by a durable
// flat CSV file.
//
// PERSISTENCE MODEL (full rewrite per mutation):
// ───────────────────────────────────────────────
// Every successful mutation serializes the entire store back to its file
// (header line + one row per record). Deliberate trade-off: no append log
// means no compaction and no tombstones for deletes, and the durable
// state is always exactly the in-memory state at the end of a successful
// call. Fine for modest data volumes; a larger deployment would swap this
// for an embedded key-value store behind the same method set.
//
// CONCURRENCY DISCIPLINE:
// ───────────────────────
// All mutations for one store instance are serialized under a single
// mutex, and the in-memory change plus the snapshot rewrite form one
// logical transaction: if the rewrite fails, the in-memory change is
// rolled back, so memory and disk never diverge. Readers take an RLock
// and observe either the pre- or post-mutation state, never a torn one.
package filestore

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/idgen"
)

// Codec teaches a Store how to lay one entity type out as a CSV row.
// One implementation exists per entity, next to the code that owns it.
type Codec[T any] interface {
	// Header is the column header written as the snapshot's first line.
	Header() []string
	// ID extracts the integer key of a record.
	ID(T) int
	// Encode renders a record as one CSV row, matching Header's layout.
	Encode(T) []string
	// Decode parses one CSV row back into a record. An error marks the
	// row malformed; the loader skips it and keeps going.
	Decode([]string) (T, error)
}

// Store is a generic concurrent map-backed store for one entity type.
// The zero value is not usable; construct with Open.
type Store[T any] struct {
	mu    sync.RWMutex
	path  string
	codec Codec[T]
	gen   *idgen.Generator
	log   *slog.Logger

	recs  map[int]T
	order []int // ids in insertion order; GetAll and the snapshot follow it
}

// Open loads the snapshot at path (if present) and returns a ready store.
// Malformed rows are logged and skipped rather than failing the whole
// load. After loading, the id generator is seeded with the maximum id
// seen, so newly generated ids never collide with persisted entities.
func Open[T any](path string, codec Codec[T], gen *idgen.Generator, log *slog.Logger) (*Store[T], error) {
	s := &Store[T]{
		path:  path,
		codec: codec,
		gen:   gen,
		log:   log,
		recs:  make(map[int]T),
	}

	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}

	maxID := 0
	for _, row := range rows {
		rec, err := codec.Decode(row)
		if err != nil {
			log.Warn("skipping malformed snapshot row",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		id := codec.ID(rec)
		if _, dup := s.recs[id]; dup {
			log.Warn("skipping duplicate id in snapshot",
				slog.String("path", path),
				slog.Int("id", id))
			continue
		}
		s.recs[id] = rec
		s.order = append(s.order, id)
		if id > maxID {
			maxID = id
		}
	}
	if maxID > 0 {
		gen.Seed(maxID)
	}
	return s, nil
}

// NextID hands out a fresh identifier from the store's generator.
func (s *Store[T]) NextID() int {
	return s.gen.Next()
}

// Add inserts a new record and persists. Fails with storage.ErrDuplicate
// if the id already exists.
func (s *Store[T]) Add(rec T) error {
	return s.Batch(func(tx *Tx[T]) error {
		return tx.Add(rec)
	})
}

// GetByID returns a copy of the record with the given id, or
// storage.ErrNotFound.
func (s *Store[T]) GetByID(id int) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recs[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	return rec, nil
}

// Update replaces the whole record under id and persists. Fails with
// storage.ErrNotFound if absent and storage.ErrIDMismatch if the
// replacement carries a different id.
func (s *Store[T]) Update(id int, rec T) error {
	return s.Batch(func(tx *Tx[T]) error {
		return tx.Update(id, rec)
	})
}

// Delete removes the record under id and persists. Fails with
// storage.ErrNotFound if absent. Referential checks ("no students still
// enrolled") are the caller's job; the store enforces no foreign keys.
func (s *Store[T]) Delete(id int) error {
	return s.Batch(func(tx *Tx[T]) error {
		return tx.Delete(id)
	})
}

// GetAll returns a copy of every current record in insertion order. The
// live backing map is never exposed.
func (s *Store[T]) GetAll() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.recs[id])
	}
	return out
}

// Len reports the number of records currently held.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// Batch runs fn as one linearized transaction: every staged mutation
// lands together with a single snapshot rewrite, or none of them land.
// If fn returns an error, or the rewrite fails, the in-memory state is
// restored to what it was before the call.
//
// This is what makes compound mutations (shrink the obligation AND
// append the transaction row) atomic for the payment ledger.
func (s *Store[T]) Batch(fn func(tx *Tx[T]) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevRecs := maps.Clone(s.recs)
	prevOrder := slices.Clone(s.order)

	if err := fn(&Tx[T]{s: s}); err != nil {
		s.recs, s.order = prevRecs, prevOrder
		return err
	}
	if err := s.persistLocked(); err != nil {
		s.recs, s.order = prevRecs, prevOrder
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

// persistLocked rewrites the whole snapshot file. Caller holds the write
// lock.
func (s *Store[T]) persistLocked() error {
	rows := make([][]string, 0, len(s.order))
	for _, id := range s.order {
		rows = append(rows, s.codec.Encode(s.recs[id]))
	}
	return WriteSnapshot(s.path, s.codec.Header(), rows)
}

// Tx is the view handed to a Batch function. It mutates the store
// directly under the already-held lock; Batch's snapshot/rollback makes
// the whole set of calls atomic.
type Tx[T any] struct {
	s *Store[T]
}

// Add stages an insert. Fails with storage.ErrDuplicate on an existing id.
func (tx *Tx[T]) Add(rec T) error {
	id := tx.s.codec.ID(rec)
	if _, ok := tx.s.recs[id]; ok {
		return fmt.Errorf("id %d: %w", id, storage.ErrDuplicate)
	}
	tx.s.recs[id] = rec
	tx.s.order = append(tx.s.order, id)
	return nil
}

// Update stages a full-record replacement.
func (tx *Tx[T]) Update(id int, rec T) error {
	if tx.s.codec.ID(rec) != id {
		return fmt.Errorf("record id %d under key %d: %w", tx.s.codec.ID(rec), id, storage.ErrIDMismatch)
	}
	if _, ok := tx.s.recs[id]; !ok {
		return fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	tx.s.recs[id] = rec
	return nil
}

// Delete stages a removal.
func (tx *Tx[T]) Delete(id int) error {
	if _, ok := tx.s.recs[id]; !ok {
		return fmt.Errorf("id %d: %w", id, storage.ErrNotFound)
	}
	delete(tx.s.recs, id)
	tx.s.order = slices.DeleteFunc(tx.s.order, func(v int) bool { return v == id })
	return nil
}

// Find returns a copy of the first record (in insertion order) matching
// the predicate.
func (tx *Tx[T]) Find(match func(T) bool) (T, bool) {
	for _, id := range tx.s.order {
		if rec := tx.s.recs[id]; match(rec) {
			return rec, true
		}
	}
	var zero T
	return zero, false
}
