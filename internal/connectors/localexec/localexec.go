// Package localexec executes task handlers as local child processes.
package localexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/fentz26/fleetboard/internal/connectors"
)

// LocalExec implements the Connector interface for local command execution.
type LocalExec struct {
	workDir string
	env     []string
}

// New creates a new LocalExec connector rooted at workDir. extraEnv entries
// ("KEY=value") are appended to the inherited environment.
func New(workDir string, extraEnv ...string) *LocalExec {
	return &LocalExec{workDir: workDir, env: extraEnv}
}

// Name returns the connector identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// Execute runs cmd with stdin piped in, capturing stdout and stderr.
func (l *LocalExec) Execute(ctx context.Context, cmd string, args []string, stdin []byte) (*connectors.ExecResult, error) {
	if cmd == "" {
		return nil, fmt.Errorf("localexec: empty command")
	}

	execCmd := exec.CommandContext(ctx, cmd, args...)
	if l.workDir != "" {
		execCmd.Dir = l.workDir
	}
	execCmd.Env = append(os.Environ(), l.env...)
	if stdin != nil {
		execCmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	exitCode := 0
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			return nil, fmt.Errorf("localexec: %w", err)
		}
	}

	return &connectors.ExecResult{
		Command:  cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
