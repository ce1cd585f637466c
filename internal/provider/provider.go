// Package provider defines the LLM provider boundary.
//
// The orchestrator never touches SDK response types directly. A provider
// exchange is expressed as a transcript of entries whose parts are a tagged
// variant: plain text, a tool-call request, or a tool-call result. An
// opaque thought signature may ride along on any part and must be replayed
// verbatim on subsequent requests.
package provider

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// Entry is one element of the ordered transcript exchanged with the model.
type Entry struct {
	Role  Role
	Parts []Part
}

// Part is a tagged variant. Exactly one of Text, Call, Result is set.
// Signature is an opaque provider token that may accompany any variant;
// it must be replayed verbatim when the part is sent back.
type Part struct {
	Text      string
	Call      *FunctionCall
	Result    *FunctionResult
	Signature []byte
}

// FunctionCall is a structured request from the model to invoke a tool.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// FunctionResult carries a tool's structured result back to the model.
type FunctionResult struct {
	Name     string
	Response map[string]any
}

// Declaration describes a callable tool exposed to the model.
type Declaration struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// Response is one model exchange: the ordered content parts of the first
// candidate.
type Response struct {
	Parts []Part
}

// Provider generates one model exchange for a transcript.
//
// Implementations must round-trip tool-call/tool-result pairs: an Entry
// containing a Call part followed by an Entry with the matching Result
// part must be accepted in subsequent requests.
type Provider interface {
	Generate(ctx context.Context, transcript []Entry, decls []Declaration) (*Response, error)
}

// UserText builds a user entry with a single text part.
func UserText(text string) Entry {
	return Entry{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ModelText builds a model entry with a single text part.
func ModelText(text string) Entry {
	return Entry{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// ModelCall builds a model entry with a single tool-call part carrying sig.
func ModelCall(name string, args map[string]any, sig []byte) Entry {
	return Entry{Role: RoleModel, Parts: []Part{{
		Call:      &FunctionCall{Name: name, Args: args},
		Signature: sig,
	}}}
}

// ToolResult builds a tool entry with a single result part.
func ToolResult(name string, response map[string]any) Entry {
	return Entry{Role: RoleTool, Parts: []Part{{
		Result: &FunctionResult{Name: name, Response: response},
	}}}
}

// FirstCall returns the first tool-call part of a response, or nil.
// When a response carries several calls only the first is dispatched per
// loop iteration; the rest are dropped.
func (r *Response) FirstCall() *Part {
	for i := range r.Parts {
		if r.Parts[i].Call != nil {
			return &r.Parts[i]
		}
	}
	return nil
}

// Text concatenates all text parts of a response.
func (r *Response) Text() string {
	var out string
	for _, p := range r.Parts {
		out += p.Text
	}
	return out
}
