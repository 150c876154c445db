package board

import "errors"

// Sentinel errors for board operations.
var (
	ErrInvalidTask     = errors.New("invalid task")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrInvalidRole     = errors.New("invalid role name")
	ErrNotFound        = errors.New("task not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrAlreadyTerminal = errors.New("task already in a terminal state")
)
