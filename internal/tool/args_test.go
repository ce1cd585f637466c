package tool

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParseArgs(t *testing.T) {
	t.Parallel()

	convID := uuid.New()

	tests := []struct {
		name      string
		raw       map[string]any
		want      ManageTaskArgs
		wantField string // non-empty = expect ValidationError on this field
	}{
		{
			name: "create with title",
			raw:  map[string]any{"action": "create", "title": "Finish the report"},
			want: ManageTaskArgs{Action: ActionCreate, Title: "Finish the report", ConversationID: convID},
		},
		{
			name: "update with all fields",
			raw: map[string]any{
				"action":      "update",
				"query":       "report",
				"title":       "New title",
				"description": "longer text",
				"status":      "done",
			},
			want: ManageTaskArgs{
				Action: ActionUpdate, Query: "report", Title: "New title",
				Description: "longer text", Status: "done", ConversationID: convID,
			},
		},
		{
			name: "list with no optionals",
			raw:  map[string]any{"action": "list"},
			want: ManageTaskArgs{Action: ActionList, ConversationID: convID},
		},
		{
			name: "nil optional treated as absent",
			raw:  map[string]any{"action": "list", "query": nil},
			want: ManageTaskArgs{Action: ActionList, ConversationID: convID},
		},
		{
			name:      "missing action",
			raw:       map[string]any{"title": "x"},
			wantField: "action",
		},
		{
			name:      "unknown action",
			raw:       map[string]any{"action": "archive"},
			wantField: "action",
		},
		{
			name:      "mistyped action",
			raw:       map[string]any{"action": 42},
			wantField: "action",
		},
		{
			name:      "mistyped title",
			raw:       map[string]any{"action": "create", "title": []string{"a"}},
			wantField: "title",
		},
		{
			name:      "unknown status",
			raw:       map[string]any{"action": "update", "query": "x", "status": "blocked"},
			wantField: "status",
		},
		{
			name:      "model supplies conversation id",
			raw:       map[string]any{"action": "list", "conversation_id": uuid.NewString()},
			wantField: "conversation_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseArgs(tt.raw, convID)
			if tt.wantField != "" {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("ParseArgs() error = %v, want *ValidationError", err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("ValidationError.Field = %q, want %q", ve.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeclarations(t *testing.T) {
	t.Parallel()

	decls := Declarations()
	if len(decls) != 1 {
		t.Fatalf("len(Declarations()) = %d, want 1", len(decls))
	}

	d := decls[0]
	if d.Name != ManageTaskName {
		t.Errorf("Name = %q, want %q", d.Name, ManageTaskName)
	}
	if !strings.Contains(d.Description, "Do NOT invent or guess any task IDs") {
		t.Error("description missing the no-guessing contract")
	}

	p := d.Parameters
	if p == nil || p.Type != "object" {
		t.Fatalf("Parameters = %+v, want object schema", p)
	}
	if len(p.Required) != 1 || p.Required[0] != "action" {
		t.Errorf("Required = %v, want [action]", p.Required)
	}
	action := p.Properties["action"]
	if action == nil || len(action.Enum) != 4 {
		t.Fatalf("action property = %+v", action)
	}
	if _, ok := p.Properties["conversation_id"]; ok {
		t.Error("conversation_id must not be declared to the model")
	}
	status := p.Properties["status"]
	if status == nil || len(status.Enum) != 3 {
		t.Fatalf("status property = %+v", status)
	}
}
