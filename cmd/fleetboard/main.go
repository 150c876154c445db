package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/fleetboard/internal/board"
	"github.com/fentz26/fleetboard/internal/lock"
	"github.com/fentz26/fleetboard/internal/record"
)

var rootCmd = &cobra.Command{
	Use:   "fleetboard",
	Short: "fleetboard - file-backed task board for agent fleets",
	Long: `fleetboard coordinates a small fleet of independent agent processes
through a shared directory tree: a durable task board, heartbeat-backed
task locks, and role-to-role messaging. No server, no database - every
record is a JSON file, every write is an atomic rename.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	rootDir  string
	jsonOut  bool
	agentArg string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Data directory (default .fleet)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit machine-parseable JSON output")
	rootCmd.PersistentFlags().StringVar(&agentArg, "agent", "", "Agent id (default $FLEET_AGENT_ID, else user@hostname)")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(tuiCmd)
}

// exit code per error kind, so scripts can branch without parsing text
const (
	exitGeneric         = 1
	exitInvalidInput    = 2
	exitNotFound        = 3
	exitLockHeld        = 4
	exitNotOwner        = 5
	exitCorruptRecord   = 6
	exitAlreadyTerminal = 7
)

// kindOf maps an error to its machine-parseable kind and exit code.
func kindOf(err error) (string, int) {
	switch {
	case errors.Is(err, board.ErrInvalidTask),
		errors.Is(err, board.ErrInvalidMessage),
		errors.Is(err, board.ErrInvalidRole),
		errors.Is(err, lock.ErrInvalid):
		return "invalid_input", exitInvalidInput
	case errors.Is(err, board.ErrNotFound),
		errors.Is(err, board.ErrMessageNotFound),
		errors.Is(err, lock.ErrNotFound),
		errors.Is(err, record.ErrNotFound):
		return "not_found", exitNotFound
	case errors.Is(err, lock.ErrHeld):
		return "lock_held", exitLockHeld
	case errors.Is(err, lock.ErrNotOwner):
		return "not_owner", exitNotOwner
	case record.IsCorrupt(err):
		return "corrupt_record", exitCorruptRecord
	case errors.Is(err, board.ErrAlreadyTerminal):
		return "already_terminal", exitAlreadyTerminal
	}
	return "error", exitGeneric
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		kind, code := kindOf(err)
		fmt.Fprintf(os.Stderr, `{"error":%q,"message":%q}`+"\n", kind, err.Error())
		os.Exit(code)
	}
}
