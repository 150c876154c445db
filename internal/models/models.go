// Package models defines the core domain types for fleetboard.
package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusOpen   TaskStatus = "open"
	TaskStatusLocked TaskStatus = "locked"
	TaskStatusDone   TaskStatus = "done"
	TaskStatusFailed TaskStatus = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// ValidStatus reports whether s names a known task status.
func ValidStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusOpen, TaskStatusLocked, TaskStatusDone, TaskStatusFailed:
		return true
	}
	return false
}

// Task represents a unit of work on the shared board.
//
// Status "locked" is never stored: the board derives it at query time from
// the active lock set. On disk a task is open, done, or failed.
type Task struct {
	ID            string     `json:"id"`
	Description   string     `json:"description"`
	Priority      int        `json:"priority"` // 1 = highest
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedBy   string     `json:"completed_by,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// Lock binds one agent to one task with a heartbeat timestamp.
type Lock struct {
	TaskID        string    `json:"task_id"`
	AgentID       string    `json:"agent_id"`
	AcquiredAt    time.Time `json:"acquired_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Stale reports whether the lock's heartbeat is older than threshold at now.
func (l Lock) Stale(now time.Time, threshold time.Duration) bool {
	return now.Sub(l.LastHeartbeat) > threshold
}

// Message is a one-way note from one role to another.
type Message struct {
	ID        string    `json:"id"`
	FromRole  string    `json:"from"`
	ToRole    string    `json:"to"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}
