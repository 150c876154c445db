// Package board provides the durable task queue and role messaging channel
// shared by a fleet of agent processes.
//
// Each task and message is an individual JSON file, so multiple agents can
// mutate the board concurrently without a server or merge conflicts. The
// board never enforces exclusivity itself: Claim is an advisory selection,
// and callers establish mutual exclusion by acquiring the task's lock
// afterwards. The two phases are deliberately separate so the selection
// policy and the exclusion mechanism can evolve independently.
package board

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/fleetboard/internal/logbook"
	"github.com/fentz26/fleetboard/internal/models"
	"github.com/fentz26/fleetboard/internal/record"
)

// roleNameRE constrains role names used as messaging addresses: lowercase
// alphanumeric plus hyphen, max 32 chars.
var roleNameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,31}$`)

// Board is a handle on the shared task and message directories. It holds no
// in-memory state: every operation is a short-lived read-modify-write
// against record files, so any number of processes may hold a Board over
// the same tree.
type Board struct {
	tasksDir    string
	messagesDir string
	archiveDir  string
	locksDir    string
	log         *logbook.Logbook

	now func() time.Time
}

// New creates a board over the given directories. locksDir is only used to
// warn when a task is completed without any lock record ever having
// existed; the board never acquires or releases locks itself. log may be
// nil.
func New(tasksDir, messagesDir, archiveDir, locksDir string, log *logbook.Logbook) *Board {
	return &Board{
		tasksDir:    tasksDir,
		messagesDir: messagesDir,
		archiveDir:  archiveDir,
		locksDir:    locksDir,
		log:         log,
		now:         time.Now,
	}
}

func newID() string {
	return uuid.New().String()
}

// Add creates a new open task and returns it.
func (b *Board) Add(description string, priority int) (models.Task, error) {
	if description == "" {
		return models.Task{}, fmt.Errorf("%w: description is required", ErrInvalidTask)
	}
	if priority < 1 {
		return models.Task{}, fmt.Errorf("%w: priority must be a positive integer, got %d", ErrInvalidTask, priority)
	}

	task := models.Task{
		ID:          newID(),
		Description: description,
		Priority:    priority,
		Status:      models.TaskStatusOpen,
		CreatedAt:   b.now().UTC(),
	}
	if err := record.Write(b.tasksDir, task.ID, task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// Get returns the stored task for taskID. The returned status is the stored
// one; callers needing the derived "locked" view should use List.
func (b *Board) Get(taskID string) (models.Task, error) {
	task, err := record.Read[models.Task](b.tasksDir, taskID)
	if errors.Is(err, record.ErrNotFound) {
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	return task, err
}

// List returns all tasks ordered by priority then creation time, optionally
// filtered to one status value. active is the lock manager's current
// non-stale lock set; an open task whose id appears there is reported with
// the derived status "locked". Corrupt task files are skipped and logged.
func (b *Board) List(statusFilter string, active map[string]models.Lock) ([]models.Task, error) {
	if statusFilter != "" && !models.ValidStatus(statusFilter) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, statusFilter)
	}

	tasks, err := record.List[models.Task](b.tasksDir, func(path string, err error) {
		b.log.Warnf("board: skipping corrupt task record %s: %v", path, err)
	})
	if err != nil {
		return nil, err
	}

	for i := range tasks {
		if tasks[i].Status == models.TaskStatusOpen {
			if _, locked := active[tasks[i].ID]; locked {
				tasks[i].Status = models.TaskStatusLocked
			}
		}
	}

	if statusFilter != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.Status == models.TaskStatus(statusFilter) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	sortTasks(tasks)
	return tasks, nil
}

// Claim selects the task an agent should work on next: the open, unlocked
// task with the lowest priority number, ties broken by earliest creation.
// Returns nil when nothing qualifies.
//
// Claim mutates nothing and guarantees nothing: two agents may claim the
// same task in the gap between selection and locking. Exclusivity comes
// from the caller's subsequent lock acquisition; when that fails the caller
// must claim again and will be handed a different task.
func (b *Board) Claim(agentID string, active map[string]models.Lock) (*models.Task, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrInvalidTask)
	}

	tasks, err := b.List(string(models.TaskStatusOpen), active)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	chosen := tasks[0]
	return &chosen, nil
}

// Complete marks a task done and records who finished it.
//
// Lock ownership is deliberately not verified: agents commonly release the
// lock before reporting completion. A completion with no lock record on
// disk at all is suspicious enough to warrant a logged warning, but not an
// error.
func (b *Board) Complete(taskID, agentID string) (models.Task, error) {
	return b.finish(taskID, agentID, models.TaskStatusDone, "")
}

// Fail marks a task failed with a reason. Same ownership semantics as
// Complete.
func (b *Board) Fail(taskID, agentID, reason string) (models.Task, error) {
	return b.finish(taskID, agentID, models.TaskStatusFailed, reason)
}

func (b *Board) finish(taskID, agentID string, status models.TaskStatus, reason string) (models.Task, error) {
	if agentID == "" {
		return models.Task{}, fmt.Errorf("%w: agent id is required", ErrInvalidTask)
	}
	task, err := b.Get(taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status.Terminal() {
		return models.Task{}, fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, taskID, task.Status)
	}

	if b.locksDir != "" {
		if _, err := os.Stat(record.Path(b.locksDir, taskID)); os.IsNotExist(err) {
			b.log.Warnf("board: %s marked %s by %s with no lock record on file", taskID, status, agentID)
		}
	}

	now := b.now().UTC()
	task.Status = status
	task.CompletedBy = agentID
	task.CompletedAt = &now
	task.FailureReason = reason
	if err := record.Write(b.tasksDir, task.ID, task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// Archive moves done and failed tasks whose completion predates the cutoff
// into the archive directory, and returns the moved ids. A maintenance
// action, not part of normal operation.
func (b *Board) Archive(olderThan time.Duration) ([]string, error) {
	tasks, err := record.List[models.Task](b.tasksDir, func(path string, err error) {
		b.log.Warnf("board: skipping corrupt task record %s: %v", path, err)
	})
	if err != nil {
		return nil, err
	}

	cutoff := b.now().UTC().Add(-olderThan)
	var moved []string
	for _, t := range tasks {
		if !t.Status.Terminal() || t.CompletedAt == nil {
			continue
		}
		if !t.CompletedAt.Before(cutoff) {
			continue
		}
		if err := record.Move(b.tasksDir, b.archiveDir, t.ID); err != nil {
			if errors.Is(err, record.ErrNotFound) {
				continue
			}
			return moved, err
		}
		moved = append(moved, t.ID)
	}
	return moved, nil
}

// sortTasks orders by priority (1 first), then creation time, then id so
// equal-priority ties resolve deterministically.
func sortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority < tasks[j].Priority
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
