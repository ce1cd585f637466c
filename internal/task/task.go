// Package task implements the task.manage tool: a transactional executor
// over task records with natural-language task resolution.
//
// Ownership invariant: a task is only visible to and mutable by the user
// who created it. Every mutation runs inside a transaction scoped to one
// tool call; a failed call never leaves partial writes behind.
package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Record is a persisted task.
type Record struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	CreatedBy      uuid.UUID
	Title          string
	Description    *string
	Status         Status
	CreatedAt      time.Time
}

// ExecutionError is a user-visible business-rule violation during tool
// execution. The orchestrator converts it into a structured tool error
// result fed back to the model; it never crashes the surrounding turn.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return e.Reason
}

func execErrorf(format string, args ...any) error {
	return &ExecutionError{Reason: fmt.Sprintf(format, args...)}
}
