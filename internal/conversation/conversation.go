// Package conversation persists the turn history of a chat: one row per
// inbound user message, carrying the final answer, the model's thought
// signature, and a trace of every tool exchange inside the turn.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a turn.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Turn is one persisted user/assistant exchange. A turn is written exactly
// once per inbound message, whether the exchange succeeded or not.
type Turn struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ConversationID   uuid.UUID
	UserMessage      string
	Answer           *string
	ThoughtSignature []byte
	ModelName        string
	LatencyMS        int64
	Trace            *ToolTrace
	ErrorMessage     *string
	Status           Status
	CreatedAt        time.Time
}

// ToolCall records one function call the model issued during a turn.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResponse records the structured result fed back for one call.
type ToolResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ToolTrace is the ordered record of tool activity within a turn.
// Calls[i] pairs with Responses[i].
type ToolTrace struct {
	Calls     []ToolCall     `json:"calls"`
	Responses []ToolResponse `json:"responses"`
}

// Empty reports whether the trace records no tool activity.
func (t *ToolTrace) Empty() bool {
	return t == nil || len(t.Calls) == 0 && len(t.Responses) == 0
}

// Balanced reports whether every call has a matching response. A finished
// turn with tool activity must be balanced; an unbalanced trace means the
// turn was cut short mid-exchange.
func (t *ToolTrace) Balanced() bool {
	return t == nil || len(t.Calls) == len(t.Responses)
}
