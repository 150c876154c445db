package audit

import (
	"path/filepath"
	"testing"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestRecordAndRecent(t *testing.T) {
	w := newTestWriter(t)

	entry, err := w.Record("task.add", map[string]string{"description": "x"}, "ok", "task-1", "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if entry.ID == "" || entry.InputsHash == "" {
		t.Errorf("Expected id and inputs hash, got %+v", entry)
	}
	if entry.Timestamp.IsZero() {
		t.Error("Expected timestamp set")
	}

	entries, err := w.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Action != "task.add" || entries[0].TaskID != "task-1" {
		t.Errorf("Unexpected entry %+v", entries[0])
	}
}

func TestRecentLimit(t *testing.T) {
	w := newTestWriter(t)

	for i := 0; i < 5; i++ {
		if _, err := w.Record("lock.refresh", i, "ok", "task-1", ""); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := w.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(entries))
	}
}

func TestForTask(t *testing.T) {
	w := newTestWriter(t)

	if _, err := w.Record("task.add", nil, "ok", "task-1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Record("task.complete", nil, "ok", "task-1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Record("task.add", nil, "ok", "task-2", ""); err != nil {
		t.Fatal(err)
	}

	entries, err := w.ForTask("task-1")
	if err != nil {
		t.Fatalf("ForTask failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries for task-1, got %d", len(entries))
	}
	if entries[0].Action != "task.add" || entries[1].Action != "task.complete" {
		t.Errorf("Expected oldest-first order, got %+v", entries)
	}
}

func TestInputsHashStable(t *testing.T) {
	w := newTestWriter(t)

	a, err := w.Record("task.fail", map[string]string{"reason": "timeout"}, "ok", "t1", "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := w.Record("task.fail", map[string]string{"reason": "timeout"}, "ok", "t2", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.InputsHash != b.InputsHash {
		t.Error("Expected identical inputs to hash identically")
	}

	c, err := w.Record("task.fail", map[string]string{"reason": "oom"}, "ok", "t3", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.InputsHash == c.InputsHash {
		t.Error("Expected different inputs to hash differently")
	}
}
