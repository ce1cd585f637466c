package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/lexa0/lexa/internal/provider"
)

// Step is one scripted provider exchange: either a response or an error.
type Step struct {
	Response *provider.Response
	Err      error
}

// ScriptedProvider replays a fixed sequence of responses and records every
// transcript it was asked to generate from. It implements
// provider.Provider.
type ScriptedProvider struct {
	mu    sync.Mutex
	steps []Step

	// Calls holds one entry per Generate invocation, in order.
	Calls []RecordedCall
}

// RecordedCall captures the inputs of one Generate invocation.
type RecordedCall struct {
	Transcript []provider.Entry
	Decls      []provider.Declaration
}

// NewScriptedProvider builds a provider that replays steps in order.
func NewScriptedProvider(steps ...Step) *ScriptedProvider {
	return &ScriptedProvider{steps: steps}
}

// Generate pops the next scripted step. Running out of steps is a test
// authoring bug and fails loudly.
func (s *ScriptedProvider) Generate(_ context.Context, transcript []provider.Entry, decls []provider.Declaration) (*provider.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, RecordedCall{
		Transcript: append([]provider.Entry(nil), transcript...),
		Decls:      decls,
	})

	if len(s.steps) == 0 {
		return nil, errors.New("scripted provider: no steps remaining")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.Response, step.Err
}

// TextStep scripts a plain text response, optionally signed.
func TextStep(text string, sig []byte) Step {
	return Step{Response: &provider.Response{Parts: []provider.Part{
		{Text: text, Signature: sig},
	}}}
}

// CallStep scripts a single tool-call response, optionally signed.
func CallStep(name string, args map[string]any, sig []byte) Step {
	return Step{Response: &provider.Response{Parts: []provider.Part{
		{Call: &provider.FunctionCall{Name: name, Args: args}, Signature: sig},
	}}}
}

// ErrStep scripts a provider failure.
func ErrStep(err error) Step {
	return Step{Err: err}
}
