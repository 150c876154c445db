// Package record provides atomic one-file-per-record JSON storage.
//
// Records live as individual files in a flat directory so that several
// independent processes can share the directory (locally or over a mounted
// volume) without a server in between. Writes go to a temp file in the same
// directory followed by a rename, so concurrent readers always observe either
// the old or the new content, never a torn write.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the filename extension for record files. Temp files never carry it,
// so half-written data is invisible to List.
const Ext = ".json"

// ErrNotFound indicates that no record exists for the requested id.
var ErrNotFound = errors.New("record not found")

// CorruptError indicates a record file whose content could not be parsed.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt record %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err wraps a CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// Path returns the file path a record id maps to. Filenames derive from the
// id so lookup by id never scans the directory.
func Path(dir, id string) string {
	return filepath.Join(dir, id+Ext)
}

func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid record id %q", id)
	}
	return nil
}

// Write serializes v and atomically replaces the record file for id,
// creating dir on first use. Readers racing with Write see either the
// previous record or the new one in full.
func Write(dir, id string, v any) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Rename within one filesystem is atomic.
	if err := os.Rename(tmpName, Path(dir, id)); err != nil {
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

// Read parses the record for id. Returns ErrNotFound if no file exists and a
// CorruptError if the file cannot be parsed; malformed data is never
// partially trusted.
func Read[T any](dir, id string) (T, error) {
	var rec T
	if err := checkID(id); err != nil {
		return rec, err
	}
	path := Path(dir, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("read record: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, &CorruptError{Path: path, Err: err}
	}
	return rec, nil
}

// List parses every record in dir, sorted by filename for deterministic
// order. A single corrupt file never aborts the listing: it is skipped and
// reported through onCorrupt (which may be nil). A missing directory lists
// as empty.
func List[T any](dir string, onCorrupt func(path string, err error)) ([]T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var recs []T
	for _, name := range names {
		id := strings.TrimSuffix(name, Ext)
		rec, err := Read[T](dir, id)
		if err != nil {
			// Another process may delete a record between ReadDir and Read.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if onCorrupt != nil {
				onCorrupt(filepath.Join(dir, name), err)
			}
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Delete removes the record file for id. Returns ErrNotFound if it does not
// exist.
func Delete(dir, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := os.Remove(Path(dir, id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Move relocates the record file for id from dir to destDir, creating
// destDir as needed. Used by archival to take records off the active board
// without destroying them.
func Move(dir, destDir, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.Rename(Path(dir, id), Path(destDir, id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("move record: %w", err)
	}
	return nil
}
