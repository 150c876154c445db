// Package runner implements the agent-side work loop: claim a task, lock
// it, hand it to a handler command, report the outcome, repeat.
//
// The board and lock manager expose only synchronous, non-blocking
// operations; all polling, backoff, and heartbeat timing lives here, on the
// caller side. Losing the claim race (another agent locked the task first)
// is an expected outcome and simply means claiming again.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/fleetboard/internal/audit"
	"github.com/fentz26/fleetboard/internal/board"
	"github.com/fentz26/fleetboard/internal/connectors"
	"github.com/fentz26/fleetboard/internal/lock"
	"github.com/fentz26/fleetboard/internal/logbook"
	"github.com/fentz26/fleetboard/internal/models"
)

// Config parameterizes a Runner.
type Config struct {
	AgentID string

	// Handler is the command run once per claimed task, with the task
	// record as JSON on stdin. Exit 0 completes the task; anything else
	// fails it.
	Handler     string
	HandlerArgs []string

	// PollInterval is the sleep between scans when no task is claimable.
	PollInterval time.Duration

	// HeartbeatInterval is how often the task lock is refreshed while the
	// handler runs.
	HeartbeatInterval time.Duration

	// MaxTasks stops the loop after that many handled tasks. Zero means
	// run until the context is canceled.
	MaxTasks int
}

// Runner drives one agent's claim-lock-execute cycle.
type Runner struct {
	board *board.Board
	locks *lock.Manager
	conn  connectors.Connector
	trail *audit.Writer
	log   *logbook.Logbook
	cfg   Config
}

// New creates a runner. trail and log may be nil.
func New(b *board.Board, locks *lock.Manager, conn connectors.Connector, trail *audit.Writer, log *logbook.Logbook, cfg Config) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = time.Minute
	}
	return &Runner{board: b, locks: locks, conn: conn, trail: trail, log: log, cfg: cfg}
}

// Outcome classifies one RunOnce pass.
type Outcome int

const (
	// OutcomeIdle means nothing was claimable; back off before rescanning.
	OutcomeIdle Outcome = iota
	// OutcomeRetry means the claim race was lost; claim again without
	// backoff. No task was handled.
	OutcomeRetry
	// OutcomeHandled means a handler ran and the task reached a terminal
	// state.
	OutcomeHandled
)

// Run loops until the context is canceled or MaxTasks is reached. Returns
// the number of tasks handled. A lost claim race does not count as handled:
// the loop claims again immediately.
func (r *Runner) Run(ctx context.Context) (int, error) {
	handled := 0
	for {
		if r.cfg.MaxTasks > 0 && handled >= r.cfg.MaxTasks {
			return handled, nil
		}

		out, err := r.RunOnce(ctx)
		if err != nil {
			return handled, err
		}
		switch out {
		case OutcomeHandled:
			handled++
			continue
		case OutcomeRetry:
			// The winner's lock is on disk now, so the next claim
			// picks a different task.
			select {
			case <-ctx.Done():
				return handled, ctx.Err()
			default:
			}
			continue
		}

		// Nothing claimable; back off before the next scan.
		select {
		case <-ctx.Done():
			return handled, ctx.Err()
		case <-time.After(r.cfg.PollInterval):
		}
	}
}

// RunOnce claims and handles at most one task.
func (r *Runner) RunOnce(ctx context.Context) (Outcome, error) {
	active, err := r.locks.Active()
	if err != nil {
		return OutcomeIdle, err
	}
	task, err := r.board.Claim(r.cfg.AgentID, active)
	if err != nil {
		return OutcomeIdle, err
	}
	if task == nil {
		return OutcomeIdle, nil
	}
	return r.dispatch(ctx, *task)
}

// dispatch locks a claimed task and runs the handler for it. When another
// agent locked the task first the claim is abandoned without touching the
// task.
func (r *Runner) dispatch(ctx context.Context, task models.Task) (Outcome, error) {
	_, err := r.locks.Acquire(task.ID, r.cfg.AgentID)
	if errors.Is(err, lock.ErrHeld) {
		r.log.Infof("runner: lost claim race for %s", task.ID)
		return OutcomeRetry, nil
	}
	if err != nil {
		return OutcomeIdle, err
	}

	r.record("task.dispatch", task.ID, "success", fmt.Sprintf("agent %s", r.cfg.AgentID))
	r.execute(ctx, task)
	return OutcomeHandled, nil
}

// execute runs the handler for a locked task, refreshing the heartbeat
// while it runs, then reports the terminal state and releases the lock.
func (r *Runner) execute(ctx context.Context, task models.Task) {
	payload, err := json.Marshal(task)
	if err != nil {
		r.fail(task.ID, fmt.Sprintf("marshal task: %v", err))
		r.release(task.ID)
		return
	}

	stop := r.keepAlive(ctx, task.ID)
	result, execErr := r.conn.Execute(ctx, r.cfg.Handler, r.cfg.HandlerArgs, payload)
	stop()

	switch {
	case execErr != nil:
		r.fail(task.ID, fmt.Sprintf("handler error: %v", execErr))
	case result.ExitCode != 0:
		r.fail(task.ID, fmt.Sprintf("handler exited %d: %s", result.ExitCode, tail(result.Stderr, 512)))
	default:
		if _, err := r.board.Complete(task.ID, r.cfg.AgentID); err != nil {
			r.log.Errorf("runner: complete %s: %v", task.ID, err)
			r.record("task.complete", task.ID, "error", err.Error())
		} else {
			r.record("task.complete", task.ID, "success", "")
		}
	}

	r.release(task.ID)
}

// keepAlive refreshes the lock heartbeat on a ticker until the returned
// stop function is called.
func (r *Runner) keepAlive(ctx context.Context, taskID string) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(r.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.locks.Refresh(taskID, r.cfg.AgentID); err != nil {
					r.log.Warnf("runner: heartbeat refresh for %s: %v", taskID, err)
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (r *Runner) fail(taskID, reason string) {
	if _, err := r.board.Fail(taskID, r.cfg.AgentID, reason); err != nil {
		r.log.Errorf("runner: fail %s: %v", taskID, err)
		r.record("task.fail", taskID, "error", err.Error())
		return
	}
	r.record("task.fail", taskID, "failed", reason)
}

func (r *Runner) release(taskID string) {
	if err := r.locks.Release(taskID, r.cfg.AgentID); err != nil {
		r.log.Warnf("runner: release %s: %v", taskID, err)
	}
}

// record writes an audit entry; auditing is best-effort and never blocks
// the loop.
func (r *Runner) record(action, taskID, outcome, details string) {
	if r.trail == nil {
		return
	}
	inputs := map[string]string{"task_id": taskID, "agent_id": r.cfg.AgentID}
	if _, err := r.trail.Record(action, inputs, outcome, taskID, details); err != nil {
		r.log.Warnf("runner: audit %s: %v", action, err)
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
