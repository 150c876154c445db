package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/fentz26/fleetboard/internal/audit"
	"github.com/fentz26/fleetboard/internal/connectors/localexec"
	"github.com/fentz26/fleetboard/internal/runner"
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run the agent work loop",
	Long: `Repeatedly claims the next open task, locks it, and pipes the task
record as JSON into the handler command's stdin. Exit 0 marks the task
done; any other exit marks it failed. The lock heartbeat is refreshed
while the handler runs, and the loop backs off when the board is empty.`,
	RunE: runWork,
}

var (
	workHandler  string
	workDir      string
	workMaxTasks int
	workOnce     bool
)

func init() {
	workCmd.Flags().StringVar(&workHandler, "handler", "", "Handler command, e.g. 'scripts/handle-task.sh' (default from config)")
	workCmd.Flags().StringVar(&workDir, "dir", "", "Working directory for the handler")
	workCmd.Flags().IntVar(&workMaxTasks, "max-tasks", 0, "Stop after N tasks (0 = run until interrupted)")
	workCmd.Flags().BoolVar(&workOnce, "once", false, "Handle at most one task and exit")
}

func runWork(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	agentID, err := a.agentID()
	if err != nil {
		return err
	}

	handler := workHandler
	if handler == "" {
		handler = a.cfg.Handler
	}
	command, handlerArgs, err := splitHandler(handler)
	if err != nil {
		return err
	}

	trail, err := audit.Open(a.cfg.AuditPath())
	if err != nil {
		a.log.Warnf("work: audit unavailable: %v", err)
		trail = nil
	} else {
		defer trail.Close()
	}

	conn := localexec.New(workDir,
		"FLEET_AGENT_ID="+agentID,
		"FLEET_ROOT="+a.cfg.Root,
	)

	maxTasks := workMaxTasks
	if workOnce {
		maxTasks = 1
	}
	r := runner.New(a.board, a.locks, conn, trail, a.log, runner.Config{
		AgentID:           agentID,
		Handler:           command,
		HandlerArgs:       handlerArgs,
		PollInterval:      time.Duration(a.cfg.PollInterval),
		HeartbeatInterval: time.Duration(a.cfg.HeartbeatInterval),
		MaxTasks:          maxTasks,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Agent %s working board %s (handler: %s)\n", agentID, a.cfg.Root, handler)
	handled, err := r.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Printf("Handled %d task(s)\n", handled)
	return nil
}

// splitHandler parses the configured handler command line into the command
// and its arguments. An empty or whitespace-only handler is rejected rather
// than parsed into nothing.
func splitHandler(handler string) (string, []string, error) {
	parts, err := shellquote.Split(handler)
	if err != nil {
		return "", nil, fmt.Errorf("parse handler command: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("no handler configured (use --handler or set handler: in config.yaml)")
	}
	return parts[0], parts[1:], nil
}
