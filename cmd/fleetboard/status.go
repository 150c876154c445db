package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fentz26/fleetboard/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a fleet-wide board summary",
	Long: `Displays task counts per status and the current lock table, the
"where is everyone right now?" view across the whole fleet.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	active, err := a.active()
	if err != nil {
		return err
	}
	tasks, err := a.board.List("", active)
	if err != nil {
		return err
	}
	locks, err := a.locks.List()
	if err != nil {
		return err
	}

	counts := map[models.TaskStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}

	if jsonOut {
		return printJSON(map[string]any{
			"tasks": map[string]int{
				"open":   counts[models.TaskStatusOpen],
				"locked": counts[models.TaskStatusLocked],
				"done":   counts[models.TaskStatusDone],
				"failed": counts[models.TaskStatusFailed],
			},
			"locks": locks,
		})
	}

	fmt.Printf("Board %s\n\n", a.cfg.Root)
	fmt.Printf("  %s %d open\n", color.New(color.FgYellow).Sprint("●"), counts[models.TaskStatusOpen])
	fmt.Printf("  %s %d locked\n", color.New(color.FgBlue).Sprint("●"), counts[models.TaskStatusLocked])
	fmt.Printf("  %s %d done\n", color.New(color.FgGreen).Sprint("●"), counts[models.TaskStatusDone])
	fmt.Printf("  %s %d failed\n", color.New(color.FgRed).Sprint("●"), counts[models.TaskStatusFailed])

	if len(locks) == 0 {
		fmt.Println("\nNo locks held")
		return nil
	}

	fmt.Println("\nLocks:")
	staleness := a.locks.Staleness()
	now := time.Now().UTC()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, lk := range locks {
		state := color.New(color.FgGreen).Sprint("live ")
		if lk.Stale(now, staleness) {
			state = color.New(color.FgRed).Sprint("stale")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\theartbeat %s ago\n", state, truncateID(lk.TaskID), lk.AgentID, formatAge(lk.LastHeartbeat))
	}
	return w.Flush()
}
