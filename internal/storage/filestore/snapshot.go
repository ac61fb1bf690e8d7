package filestore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadRows reads every data row of a snapshot file, skipping the header
// line. A missing file is not an error; it simply means the store has
// never persisted, so an empty slice comes back.
//
// Rows are returned raw; field-count and value validation belong to the
// caller, which skips malformed rows rather than failing the whole load.
func ReadRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Snapshot rows legitimately differ in length (optional trailing
	// fields), and a hand-edited file must not abort the load.
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if len(rows) <= 1 {
		return nil, nil // empty, or header only
	}
	return rows[1:], nil
}

// WriteSnapshot rewrites a snapshot file in full: header line first, then
// every current record, replacing prior contents.
//
// The write lands in a temp file in the same directory which is then
// renamed over the target, so a crash mid-write leaves either the old
// full snapshot or the new one on disk, never a partial file.
func WriteSnapshot(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	tmpName := tmp.Name()
	// On any failure below the temp file is dead weight; remove it.
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write snapshot %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}
