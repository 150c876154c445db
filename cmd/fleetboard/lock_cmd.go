package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/fleetboard/internal/models"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage task locks",
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire [task-id]",
	Short: "Acquire the lock for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockAcquire,
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release [task-id]",
	Short: "Release a lock you own",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockRelease,
}

var lockRefreshCmd = &cobra.Command{
	Use:   "refresh [task-id]",
	Short: "Refresh the heartbeat on a lock you own",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockRefresh,
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all lock records",
	RunE:  runLockList,
}

var lockCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete locks whose heartbeat exceeds the staleness threshold",
	RunE:  runLockCleanup,
}

var (
	lockForce     bool
	cleanupMaxAge time.Duration
)

func init() {
	lockCmd.AddCommand(lockAcquireCmd, lockReleaseCmd, lockRefreshCmd, lockListCmd, lockCleanupCmd)

	lockReleaseCmd.Flags().BoolVar(&lockForce, "force", false, "Release regardless of owner (recovery only)")
	lockCleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", 0, "Staleness threshold (default from config, 2h)")
}

func runLockAcquire(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	agentID, err := a.agentID()
	if err != nil {
		return err
	}

	lk, err := a.locks.Acquire(args[0], agentID)
	if err != nil {
		a.record("lock.acquire", map[string]string{"task_id": args[0], "agent_id": agentID}, "error", args[0], err.Error())
		return err
	}
	a.record("lock.acquire", map[string]string{"task_id": args[0], "agent_id": agentID}, "success", args[0], "")

	if jsonOut {
		return printJSON(lk)
	}
	fmt.Printf("Locked %s for %s\n", truncateID(lk.TaskID), lk.AgentID)
	return nil
}

func runLockRelease(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if lockForce {
		if err := a.locks.ForceRelease(args[0]); err != nil {
			return err
		}
		a.record("lock.force_release", map[string]string{"task_id": args[0]}, "success", args[0], "")
	} else {
		agentID, err := a.agentID()
		if err != nil {
			return err
		}
		if err := a.locks.Release(args[0], agentID); err != nil {
			a.record("lock.release", map[string]string{"task_id": args[0], "agent_id": agentID}, "error", args[0], err.Error())
			return err
		}
		a.record("lock.release", map[string]string{"task_id": args[0], "agent_id": agentID}, "success", args[0], "")
	}

	if jsonOut {
		return printJSON(map[string]any{"released": args[0]})
	}
	fmt.Printf("Released lock on %s\n", truncateID(args[0]))
	return nil
}

func runLockRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	agentID, err := a.agentID()
	if err != nil {
		return err
	}

	lk, err := a.locks.Refresh(args[0], agentID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(lk)
	}
	fmt.Printf("Heartbeat on %s refreshed\n", truncateID(lk.TaskID))
	return nil
}

func runLockList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	locks, err := a.locks.List()
	if err != nil {
		return err
	}

	if jsonOut {
		if locks == nil {
			locks = []models.Lock{}
		}
		return printJSON(locks)
	}

	if len(locks) == 0 {
		fmt.Println("No locks held")
		return nil
	}

	staleness := a.locks.Staleness()
	now := time.Now().UTC()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tAGENT\tACQUIRED\tHEARTBEAT\tSTATE")
	for _, lk := range locks {
		state := "live"
		if lk.Stale(now, staleness) {
			state = "stale"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s ago\t%s\n",
			truncateID(lk.TaskID), lk.AgentID, formatTime(lk.AcquiredAt), formatAge(lk.LastHeartbeat), state)
	}
	return w.Flush()
}

func runLockCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	cleaned, err := a.locks.Cleanup(cleanupMaxAge)
	if err != nil {
		return err
	}
	a.record("lock.cleanup", map[string]any{"max_age": cleanupMaxAge.String()}, "success", "", fmt.Sprintf("%d cleaned", len(cleaned)))

	if jsonOut {
		if cleaned == nil {
			cleaned = []string{}
		}
		return printJSON(map[string]any{"cleaned": cleaned})
	}
	fmt.Printf("Cleaned %d stale lock(s)\n", len(cleaned))
	return nil
}
