// Package lock enforces at-most-one active holder per task id over a shared
// lock directory, tolerant of crashed holders.
//
// A holder proves liveness purely by refreshing its lock's heartbeat
// timestamp; there is no process-level liveness check because holders may
// run in ephemeral containers that are not locally observable. A lock whose
// heartbeat exceeds the staleness threshold is treated as abandoned and may
// be taken over or cleaned up.
package lock

import (
	"errors"
	"fmt"
	"time"

	"github.com/fentz26/fleetboard/internal/logbook"
	"github.com/fentz26/fleetboard/internal/models"
	"github.com/fentz26/fleetboard/internal/record"
)

// DefaultStaleness is the heartbeat age beyond which a lock counts as
// abandoned.
const DefaultStaleness = 2 * time.Hour

// Sentinel errors for lock operations.
var (
	ErrHeld     = errors.New("lock held by another agent")
	ErrNotOwner = errors.New("lock not held by this agent")
	ErrNotFound = errors.New("lock not found")
	ErrInvalid  = errors.New("invalid lock request")
)

// Manager coordinates heartbeat-backed task locks in a directory.
type Manager struct {
	dir       string
	staleness time.Duration
	log       *logbook.Logbook

	now func() time.Time
}

// New creates a lock manager over dir. A non-positive staleness falls back
// to DefaultStaleness. log may be nil.
func New(dir string, staleness time.Duration, log *logbook.Logbook) *Manager {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Manager{
		dir:       dir,
		staleness: staleness,
		log:       log,
		now:       time.Now,
	}
}

// Staleness returns the configured staleness threshold.
func (m *Manager) Staleness() time.Duration {
	return m.staleness
}

// Acquire writes a lock record for taskID owned by agentID.
//
// Succeeds when no lock exists, when the existing lock is stale (abandoned
// by a dead holder), or when agentID already owns it: re-acquiring one's
// own lock is idempotent and refreshes the heartbeat, so a resumed session
// picks up where it left off. Fails with ErrHeld when a live lock belongs
// to a different agent.
func (m *Manager) Acquire(taskID, agentID string) (models.Lock, error) {
	if taskID == "" || agentID == "" {
		return models.Lock{}, fmt.Errorf("%w: task id and agent id are required", ErrInvalid)
	}

	now := m.now().UTC()
	existing, err := record.Read[models.Lock](m.dir, taskID)
	switch {
	case errors.Is(err, record.ErrNotFound):
		// No holder; fall through to a fresh acquisition.
	case err != nil:
		return models.Lock{}, err
	case existing.AgentID == agentID:
		existing.LastHeartbeat = now
		if err := record.Write(m.dir, taskID, existing); err != nil {
			return models.Lock{}, err
		}
		return existing, nil
	case !existing.Stale(now, m.staleness):
		return models.Lock{}, fmt.Errorf("%w: task %s held by %s", ErrHeld, taskID, existing.AgentID)
	default:
		m.log.Warnf("lock: taking over stale lock on %s from %s (heartbeat %s)",
			taskID, existing.AgentID, existing.LastHeartbeat.Format(time.RFC3339))
	}

	lk := models.Lock{
		TaskID:        taskID,
		AgentID:       agentID,
		AcquiredAt:    now,
		LastHeartbeat: now,
	}
	if err := record.Write(m.dir, taskID, lk); err != nil {
		return models.Lock{}, err
	}
	return lk, nil
}

// Release deletes the lock for taskID, but only if agentID owns it.
func (m *Manager) Release(taskID, agentID string) error {
	lk, err := record.Read[models.Lock](m.dir, taskID)
	if errors.Is(err, record.ErrNotFound) {
		return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if err != nil {
		return err
	}
	if lk.AgentID != agentID {
		return fmt.Errorf("%w: task %s is owned by %s", ErrNotOwner, taskID, lk.AgentID)
	}
	return record.Delete(m.dir, taskID)
}

// ForceRelease deletes the lock for taskID regardless of owner. Reserved
// for human-invoked recovery of wedged locks.
func (m *Manager) ForceRelease(taskID string) error {
	if err := record.Delete(m.dir, taskID); err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		return err
	}
	m.log.Infof("lock: force-released %s", taskID)
	return nil
}

// Refresh bumps the heartbeat on the lock for taskID. Only the owner may
// refresh.
func (m *Manager) Refresh(taskID, agentID string) (models.Lock, error) {
	lk, err := record.Read[models.Lock](m.dir, taskID)
	if errors.Is(err, record.ErrNotFound) {
		return models.Lock{}, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if err != nil {
		return models.Lock{}, err
	}
	if lk.AgentID != agentID {
		return models.Lock{}, fmt.Errorf("%w: task %s is owned by %s", ErrNotOwner, taskID, lk.AgentID)
	}
	lk.LastHeartbeat = m.now().UTC()
	if err := record.Write(m.dir, taskID, lk); err != nil {
		return models.Lock{}, err
	}
	return lk, nil
}

// Get returns the lock record for taskID, stale or not.
func (m *Manager) Get(taskID string) (models.Lock, error) {
	lk, err := record.Read[models.Lock](m.dir, taskID)
	if errors.Is(err, record.ErrNotFound) {
		return models.Lock{}, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	return lk, err
}

// List returns every lock record in the directory, including stale ones.
// Corrupt files are skipped and logged.
func (m *Manager) List() ([]models.Lock, error) {
	return record.List[models.Lock](m.dir, func(path string, err error) {
		m.log.Warnf("lock: skipping corrupt record %s: %v", path, err)
	})
}

// Active returns the non-stale locks keyed by task id. This is the view the
// board cross-references to derive the "locked" task status.
func (m *Manager) Active() (map[string]models.Lock, error) {
	locks, err := m.List()
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	active := make(map[string]models.Lock, len(locks))
	for _, lk := range locks {
		if !lk.Stale(now, m.staleness) {
			active[lk.TaskID] = lk
		}
	}
	return active, nil
}

// Cleanup deletes every lock whose heartbeat is older than threshold
// (the manager's staleness when threshold <= 0) and returns the affected
// task ids. Deleting an already-stale lock cannot race meaningfully with
// its dead owner, so running this concurrently with acquires is safe.
func (m *Manager) Cleanup(threshold time.Duration) ([]string, error) {
	if threshold <= 0 {
		threshold = m.staleness
	}
	locks, err := m.List()
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	var cleaned []string
	for _, lk := range locks {
		if !lk.Stale(now, threshold) {
			continue
		}
		if err := record.Delete(m.dir, lk.TaskID); err != nil {
			if errors.Is(err, record.ErrNotFound) {
				continue
			}
			return cleaned, err
		}
		m.log.Infof("lock: cleaned stale lock on %s (agent %s)", lk.TaskID, lk.AgentID)
		cleaned = append(cleaned, lk.TaskID)
	}
	return cleaned, nil
}
