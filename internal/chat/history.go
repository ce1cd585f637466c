package chat

import (
	"github.com/lexa0/lexa/internal/conversation"
	"github.com/lexa0/lexa/internal/provider"
)

// rebuildHistory converts persisted turns, oldest first, into the
// transcript entries the provider expects.
//
// Per turn: the user message; if the turn ran tool calls, a model entry
// with one call part per recorded call, each carrying the turn's stored
// signature (or the placeholder when useDummy is set or nothing was
// stored); then a tool entry with one result part per recorded response,
// in call order; finally the stored answer, if any. Call/response order is
// preserved exactly — providers reject a call entry followed by a
// non-matching response.
func rebuildHistory(turns []conversation.Turn, useDummy bool) []provider.Entry {
	var entries []provider.Entry

	for _, t := range turns {
		entries = append(entries, provider.UserText(t.UserMessage))

		if trace := t.Trace; !trace.Empty() {
			if len(trace.Calls) > 0 {
				sig := t.ThoughtSignature
				if useDummy || len(sig) == 0 {
					sig = provider.DummySignature
				}
				parts := make([]provider.Part, 0, len(trace.Calls))
				for _, c := range trace.Calls {
					parts = append(parts, provider.Part{
						Call:      &provider.FunctionCall{Name: c.Name, Args: c.Args},
						Signature: sig,
					})
				}
				entries = append(entries, provider.Entry{Role: provider.RoleModel, Parts: parts})
			}

			if len(trace.Responses) > 0 {
				parts := make([]provider.Part, 0, len(trace.Responses))
				for _, r := range trace.Responses {
					parts = append(parts, provider.Part{
						Result: &provider.FunctionResult{Name: r.Name, Response: r.Response},
					})
				}
				entries = append(entries, provider.Entry{Role: provider.RoleTool, Parts: parts})
			}
		}

		if t.Answer != nil && *t.Answer != "" {
			entries = append(entries, provider.ModelText(*t.Answer))
		}
	}

	return entries
}
