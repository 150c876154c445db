package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/fleetboard/internal/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks on the board",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [description]",
	Short: "Add a new task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Select the next open unlocked task for this agent",
	Long: `Selects the highest-priority open task that is not currently locked.
The claim is advisory: lock the task with "fleetboard lock acquire" before
working on it, and claim again if that acquisition fails.`,
	RunE: runTaskClaim,
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete [task-id]",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskComplete,
}

var taskFailCmd = &cobra.Command{
	Use:   "fail [task-id]",
	Short: "Mark a task failed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskFail,
}

var taskArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move old done/failed tasks to the archive directory",
	RunE:  runTaskArchive,
}

var (
	taskPriority  int
	taskStatus    string
	failReason    string
	archiveOlder  time.Duration
	archiveAllAge bool
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskClaimCmd, taskCompleteCmd, taskFailCmd, taskArchiveCmd)

	taskAddCmd.Flags().IntVar(&taskPriority, "priority", 1, "Priority (1 = highest)")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (open, locked, done, failed)")

	taskFailCmd.Flags().StringVar(&failReason, "reason", "", "Why the task failed")

	taskArchiveCmd.Flags().DurationVar(&archiveOlder, "older-than", 0, "Retention window (default from config, 168h)")
	taskArchiveCmd.Flags().BoolVar(&archiveAllAge, "all", false, "Archive every terminal task regardless of age")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	task, err := a.board.Add(args[0], taskPriority)
	if err != nil {
		return err
	}
	a.record("task.add", map[string]any{"description": args[0], "priority": taskPriority}, "success", task.ID, "")

	if jsonOut {
		return printJSON(task)
	}
	fmt.Printf("Created task: %s\n", task.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	active, err := a.active()
	if err != nil {
		return err
	}
	tasks, err := a.board.List(taskStatus, active)
	if err != nil {
		return err
	}

	if jsonOut {
		if tasks == nil {
			tasks = []models.Task{}
		}
		return printJSON(tasks)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRI\tSTATUS\tDESCRIPTION\tCREATED")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			truncateID(t.ID), t.Priority, t.Status, truncate(t.Description, 48), formatTime(t.CreatedAt))
	}
	return w.Flush()
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	task, err := a.board.Get(args[0])
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(task)
	}

	fmt.Printf("ID:          %s\n", task.ID)
	fmt.Printf("Description: %s\n", task.Description)
	fmt.Printf("Priority:    %d\n", task.Priority)
	fmt.Printf("Status:      %s\n", task.Status)
	fmt.Printf("Created:     %s\n", formatTime(task.CreatedAt))
	if task.CompletedBy != "" {
		fmt.Printf("Finished by: %s\n", task.CompletedBy)
	}
	if task.CompletedAt != nil {
		fmt.Printf("Finished:    %s\n", formatTime(*task.CompletedAt))
	}
	if task.FailureReason != "" {
		fmt.Printf("Reason:      %s\n", task.FailureReason)
	}
	return nil
}

func runTaskClaim(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	agentID, err := a.agentID()
	if err != nil {
		return err
	}

	active, err := a.active()
	if err != nil {
		return err
	}
	task, err := a.board.Claim(agentID, active)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{"task": task})
	}
	if task == nil {
		fmt.Println("No claimable task")
		return nil
	}
	fmt.Printf("Claimed %s (priority %d): %s\n", task.ID, task.Priority, truncate(task.Description, 60))
	fmt.Printf("Now lock it: fleetboard lock acquire %s --agent %s\n", task.ID, agentID)
	return nil
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	agentID, err := a.agentID()
	if err != nil {
		return err
	}

	task, err := a.board.Complete(args[0], agentID)
	if err != nil {
		a.record("task.complete", map[string]string{"task_id": args[0], "agent_id": agentID}, "error", args[0], err.Error())
		return err
	}
	a.record("task.complete", map[string]string{"task_id": args[0], "agent_id": agentID}, "success", task.ID, "")

	if jsonOut {
		return printJSON(task)
	}
	fmt.Printf("Task %s marked done\n", truncateID(task.ID))
	return nil
}

func runTaskFail(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	agentID, err := a.agentID()
	if err != nil {
		return err
	}

	task, err := a.board.Fail(args[0], agentID, failReason)
	if err != nil {
		a.record("task.fail", map[string]string{"task_id": args[0], "agent_id": agentID}, "error", args[0], err.Error())
		return err
	}
	a.record("task.fail", map[string]string{"task_id": args[0], "agent_id": agentID}, "failed", task.ID, failReason)

	if jsonOut {
		return printJSON(task)
	}
	fmt.Printf("Task %s marked failed\n", truncateID(task.ID))
	return nil
}

func runTaskArchive(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	olderThan := archiveOlder
	if olderThan <= 0 {
		olderThan = time.Duration(a.cfg.ArchiveRetention)
	}
	if archiveAllAge {
		olderThan = 0
	}

	moved, err := a.board.Archive(olderThan)
	if err != nil {
		return err
	}
	a.record("task.archive", map[string]any{"older_than": olderThan.String()}, "success", "", fmt.Sprintf("%d archived", len(moved)))

	if jsonOut {
		if moved == nil {
			moved = []string{}
		}
		return printJSON(map[string]any{"archived": moved})
	}
	fmt.Printf("Archived %d task(s)\n", len(moved))
	return nil
}
