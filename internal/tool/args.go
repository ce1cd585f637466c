package tool

import (
	"fmt"

	"github.com/google/uuid"
)

// Action is the task operation requested by the model.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// taskStatuses are the status values the model may supply.
var taskStatuses = map[string]bool{
	"todo":        true,
	"in_progress": true,
	"done":        true,
}

// ManageTaskArgs is the validated, typed form of task.manage arguments.
//
// ConversationID is injected by the orchestrator and never accepted from
// the model; this prevents cross-conversation leakage.
type ManageTaskArgs struct {
	Action         Action
	Query          string
	Title          string
	Description    string
	Status         string // "", "todo", "in_progress", "done"
	ConversationID uuid.UUID
}

// ValidationError indicates malformed tool arguments from the model.
// It is recovered locally: converted into a structured tool error result,
// never propagated as a crash.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// ParseArgs validates a raw argument map from the provider into
// ManageTaskArgs, injecting the conversation identifier.
//
// Type and enum violations fail here with *ValidationError. Per-action
// required-field rules (title for create, query for update/delete) are the
// executor's business rules and are enforced there.
func ParseArgs(raw map[string]any, conversationID uuid.UUID) (ManageTaskArgs, error) {
	args := ManageTaskArgs{ConversationID: conversationID}

	action, err := stringField(raw, "action")
	if err != nil {
		return ManageTaskArgs{}, err
	}
	switch Action(action) {
	case ActionCreate, ActionUpdate, ActionDelete, ActionList:
		args.Action = Action(action)
	case "":
		return ManageTaskArgs{}, &ValidationError{Field: "action", Reason: "required"}
	default:
		return ManageTaskArgs{}, &ValidationError{Field: "action", Reason: fmt.Sprintf("unsupported action %q", action)}
	}

	if args.Query, err = stringField(raw, "query"); err != nil {
		return ManageTaskArgs{}, err
	}
	if args.Title, err = stringField(raw, "title"); err != nil {
		return ManageTaskArgs{}, err
	}
	if args.Description, err = stringField(raw, "description"); err != nil {
		return ManageTaskArgs{}, err
	}
	if args.Status, err = stringField(raw, "status"); err != nil {
		return ManageTaskArgs{}, err
	}
	if args.Status != "" && !taskStatuses[args.Status] {
		return ManageTaskArgs{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unsupported status %q", args.Status)}
	}

	// The model must never address a foreign conversation.
	if _, present := raw["conversation_id"]; present {
		return ManageTaskArgs{}, &ValidationError{Field: "conversation_id", Reason: "must not be supplied by the model"}
	}

	return args, nil
}

// stringField extracts an optional string field; absent or nil yields "".
func stringField(raw map[string]any, name string) (string, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: name, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}
