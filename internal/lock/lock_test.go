package lock

import (
	"errors"
	"testing"
	"time"

	"github.com/fentz26/fleetboard/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return New(t.TempDir(), DefaultStaleness, nil)
}

func TestAcquireFresh(t *testing.T) {
	m := newTestManager(t)

	lk, err := m.Acquire("task-1", "agent-a")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if lk.TaskID != "task-1" || lk.AgentID != "agent-a" {
		t.Errorf("Unexpected lock %+v", lk)
	}
	if lk.AcquiredAt.IsZero() || lk.LastHeartbeat.IsZero() {
		t.Error("Expected timestamps to be set")
	}
}

func TestAcquireRejectsEmptyIDs(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("", "agent-a"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
	if _, err := m.Acquire("task-1", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}

func TestAcquireHeldByOther(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("task-1", "agent-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	_, err := m.Acquire("task-1", "agent-b")
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("Expected ErrHeld, got %v", err)
	}

	// The original holder is untouched by the failed attempt.
	lk, err := m.Get("task-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if lk.AgentID != "agent-a" {
		t.Errorf("Expected owner agent-a, got %s", lk.AgentID)
	}
}

func TestAcquireIdempotentForOwner(t *testing.T) {
	m := newTestManager(t)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	first, err := m.Acquire("task-1", "agent-a")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	clock = clock.Add(30 * time.Minute)
	second, err := m.Acquire("task-1", "agent-a")
	if err != nil {
		t.Fatalf("Re-acquire by owner failed: %v", err)
	}
	if !second.AcquiredAt.Equal(first.AcquiredAt) {
		t.Errorf("Expected AcquiredAt preserved, got %v", second.AcquiredAt)
	}
	if !second.LastHeartbeat.After(first.LastHeartbeat) {
		t.Error("Expected heartbeat to advance on re-acquire")
	}
}

func TestAcquireStaleTakeover(t *testing.T) {
	m := newTestManager(t)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	if _, err := m.Acquire("task-1", "agent-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Just inside the threshold the lock is still live.
	clock = clock.Add(DefaultStaleness)
	if _, err := m.Acquire("task-1", "agent-b"); !errors.Is(err, ErrHeld) {
		t.Fatalf("Expected ErrHeld at threshold, got %v", err)
	}

	clock = clock.Add(time.Second)
	lk, err := m.Acquire("task-1", "agent-b")
	if err != nil {
		t.Fatalf("Takeover of stale lock failed: %v", err)
	}
	if lk.AgentID != "agent-b" {
		t.Errorf("Expected new owner agent-b, got %s", lk.AgentID)
	}
	if !lk.AcquiredAt.Equal(clock) {
		t.Errorf("Expected fresh AcquiredAt, got %v", lk.AcquiredAt)
	}
}

func TestRelease(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("task-1", "agent-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := m.Release("task-1", "agent-b"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
	if err := m.Release("task-1", "agent-a"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := m.Release("task-1", "agent-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after release, got %v", err)
	}
}

func TestForceRelease(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Acquire("task-1", "agent-a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := m.ForceRelease("task-1"); err != nil {
		t.Fatalf("ForceRelease failed: %v", err)
	}
	if err := m.ForceRelease("task-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	m := newTestManager(t)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	lk, err := m.Acquire("task-1", "agent-a")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	clock = clock.Add(5 * time.Minute)
	refreshed, err := m.Refresh("task-1", "agent-a")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !refreshed.LastHeartbeat.After(lk.LastHeartbeat) {
		t.Error("Expected heartbeat to advance")
	}

	if _, err := m.Refresh("task-1", "agent-b"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
	if _, err := m.Refresh("task-2", "agent-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestActiveExcludesStale(t *testing.T) {
	m := newTestManager(t)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	if _, err := m.Acquire("old", "agent-a"); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(3 * time.Hour)
	if _, err := m.Acquire("fresh", "agent-b"); err != nil {
		t.Fatal(err)
	}

	active, err := m.Active()
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("Expected 1 active lock, got %d", len(active))
	}
	if _, ok := active["fresh"]; !ok {
		t.Error("Expected fresh lock to be active")
	}
}

func TestListIncludesStale(t *testing.T) {
	m := newTestManager(t)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	if _, err := m.Acquire("old", "agent-a"); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(3 * time.Hour)

	locks, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(locks) != 1 {
		t.Errorf("Expected stale lock in list, got %d locks", len(locks))
	}
}

func TestCleanup(t *testing.T) {
	m := newTestManager(t)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	if _, err := m.Acquire("old-1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Acquire("old-2", "agent-a"); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(3 * time.Hour)
	if _, err := m.Acquire("fresh", "agent-b"); err != nil {
		t.Fatal(err)
	}

	cleaned, err := m.Cleanup(0)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if len(cleaned) != 2 {
		t.Fatalf("Expected 2 cleaned locks, got %d: %v", len(cleaned), cleaned)
	}

	locks, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(locks) != 1 || locks[0].TaskID != "fresh" {
		t.Errorf("Expected only fresh lock to survive, got %+v", locks)
	}
}

func TestCleanupCustomThreshold(t *testing.T) {
	m := newTestManager(t)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	if _, err := m.Acquire("task-1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(10 * time.Minute)

	cleaned, err := m.Cleanup(5 * time.Minute)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if len(cleaned) != 1 {
		t.Errorf("Expected tighter threshold to clean the lock, got %v", cleaned)
	}
}

func TestStaleBoundary(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	lk := models.Lock{LastHeartbeat: now.Add(-DefaultStaleness)}
	if lk.Stale(now, DefaultStaleness) {
		t.Error("Lock exactly at threshold must not be stale")
	}
	lk.LastHeartbeat = lk.LastHeartbeat.Add(-time.Nanosecond)
	if !lk.Stale(now, DefaultStaleness) {
		t.Error("Lock past threshold must be stale")
	}
}
