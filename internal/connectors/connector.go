// Package connectors defines how the worker loop hands a claimed task to an
// executor.
package connectors

import "context"

// ExecResult holds the result of a handler execution.
type ExecResult struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// Connector runs a handler command for one task. The task record is
// delivered on stdin so handlers need no board access of their own.
type Connector interface {
	// Name returns the connector identifier.
	Name() string

	// Execute runs a command with stdin as its input and returns the result.
	// A non-zero exit code is reported in the result, not as an error.
	Execute(ctx context.Context, cmd string, args []string, stdin []byte) (*ExecResult, error)
}
