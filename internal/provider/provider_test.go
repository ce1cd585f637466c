package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestResponse_FirstCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resp     Response
		wantName string // "" = expect nil
	}{
		{
			name:     "no parts",
			resp:     Response{},
			wantName: "",
		},
		{
			name: "text only",
			resp: Response{Parts: []Part{{Text: "hello"}}},
		},
		{
			name: "single call",
			resp: Response{Parts: []Part{
				{Call: &FunctionCall{Name: "task.manage"}},
			}},
			wantName: "task.manage",
		},
		{
			name: "text before call",
			resp: Response{Parts: []Part{
				{Text: "thinking..."},
				{Call: &FunctionCall{Name: "task.manage"}},
			}},
			wantName: "task.manage",
		},
		{
			name: "multiple calls returns first",
			resp: Response{Parts: []Part{
				{Call: &FunctionCall{Name: "first"}},
				{Call: &FunctionCall{Name: "second"}},
			}},
			wantName: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.resp.FirstCall()
			if tt.wantName == "" {
				if got != nil {
					t.Errorf("FirstCall() = %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Call == nil {
				t.Fatalf("FirstCall() = nil, want call %q", tt.wantName)
			}
			if got.Call.Name != tt.wantName {
				t.Errorf("FirstCall().Call.Name = %q, want %q", got.Call.Name, tt.wantName)
			}
		})
	}
}

func TestResponse_Text(t *testing.T) {
	t.Parallel()

	resp := Response{Parts: []Part{
		{Text: "Hello, "},
		{Call: &FunctionCall{Name: "ignored"}},
		{Text: "world."},
	}}
	if got := resp.Text(); got != "Hello, world." {
		t.Errorf("Text() = %q, want %q", got, "Hello, world.")
	}
}

func TestIsSignatureError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset"), false},
		{"snake case", errors.New("invalid thought_signature in request"), true},
		{"spaced", errors.New("Thought Signature validation failed"), true},
		{"wrapped", fmt.Errorf("generate content: %w", errors.New("stale thought signature")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsSignatureError(tt.err); got != tt.want {
				t.Errorf("IsSignatureError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEntryConstructors(t *testing.T) {
	t.Parallel()

	u := UserText("hi")
	if u.Role != RoleUser || len(u.Parts) != 1 || u.Parts[0].Text != "hi" {
		t.Errorf("UserText() = %+v", u)
	}

	sig := []byte("sig")
	mc := ModelCall("task.manage", map[string]any{"action": "list"}, sig)
	if mc.Role != RoleModel || mc.Parts[0].Call == nil {
		t.Fatalf("ModelCall() = %+v", mc)
	}
	if string(mc.Parts[0].Signature) != "sig" {
		t.Errorf("ModelCall() signature = %q, want %q", mc.Parts[0].Signature, "sig")
	}

	tr := ToolResult("task.manage", map[string]any{"count": 0})
	if tr.Role != RoleTool || tr.Parts[0].Result == nil {
		t.Fatalf("ToolResult() = %+v", tr)
	}
	if tr.Parts[0].Result.Response["count"] != 0 {
		t.Errorf("ToolResult() response = %+v", tr.Parts[0].Result.Response)
	}
}
