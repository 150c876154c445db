package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fentz26/fleetboard/internal/agent"
	"github.com/fentz26/fleetboard/internal/audit"
	"github.com/fentz26/fleetboard/internal/board"
	"github.com/fentz26/fleetboard/internal/config"
	"github.com/fentz26/fleetboard/internal/lock"
	"github.com/fentz26/fleetboard/internal/logbook"
	"github.com/fentz26/fleetboard/internal/models"
)

// app wires the configured directories into the board and lock manager for
// one CLI invocation.
type app struct {
	cfg   *config.Config
	log   *logbook.Logbook
	board *board.Board
	locks *lock.Manager
}

func newApp() (*app, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}

	log, err := logbook.New(cfg.LogPath())
	if err != nil {
		// A board without a logbook still works; warnings just vanish.
		log = nil
	}

	b := board.New(cfg.TasksDir(), cfg.MessagesDir(), cfg.ArchiveDir(), cfg.LocksDir(), log)
	locks := lock.New(cfg.LocksDir(), time.Duration(cfg.Staleness), log)
	return &app{cfg: cfg, log: log, board: b, locks: locks}, nil
}

// agentID resolves the identity for this invocation: --agent flag, then
// config, then environment, then user@hostname.
func (a *app) agentID() (string, error) {
	override := agentArg
	if override == "" {
		override = a.cfg.AgentID
	}
	return agent.ResolveID(override)
}

// active returns the current non-stale lock set for board queries.
func (a *app) active() (map[string]models.Lock, error) {
	return a.locks.Active()
}

// record appends to the local audit trail. Auditing is best-effort: any
// failure is logged and swallowed so it never fails the operation itself.
func (a *app) record(action string, inputs any, outcome, taskID, details string) {
	trail, err := audit.Open(a.cfg.AuditPath())
	if err != nil {
		a.log.Warnf("audit: open: %v", err)
		return
	}
	defer trail.Close()
	if _, err := trail.Record(action, inputs, outcome, taskID, details); err != nil {
		a.log.Warnf("audit: record %s: %v", action, err)
	}
}

// printJSON emits v as a single JSON line on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}

// --- display helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatAge(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	default:
		return fmt.Sprintf("%.1fh", age.Hours())
	}
}
