// Package chat drives the agentic conversation loop: it rebuilds prior
// transcript history, runs a bounded tool-calling exchange against the
// provider, and recovers once from a stale thought signature by replaying
// the turn with placeholder signatures.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lexa0/lexa/internal/conversation"
	"github.com/lexa0/lexa/internal/provider"
	"github.com/lexa0/lexa/internal/task"
	"github.com/lexa0/lexa/internal/tool"
)

// DefaultMaxTurns bounds the tool-calling loop within a single user turn.
const DefaultMaxTurns = 5

// ErrTurnLimit indicates the model kept requesting tool calls without ever
// producing a final text answer.
var ErrTurnLimit = errors.New("turn limit exceeded without final answer")

// TurnSource loads the persisted turns of a conversation, oldest first,
// scoped to the user who wrote them. *conversation.Store implements it.
type TurnSource interface {
	Turns(ctx context.Context, conversationID, userID uuid.UUID) ([]conversation.Turn, error)
}

// ToolExecutor runs one validated task.manage invocation.
// *task.Executor implements it.
type ToolExecutor interface {
	Execute(ctx context.Context, args tool.ManageTaskArgs, userID uuid.UUID) (map[string]any, error)
}

// Config carries the orchestrator's dependencies.
type Config struct {
	Provider provider.Provider
	Executor ToolExecutor
	Turns    TurnSource
	Logger   *slog.Logger

	// MaxTurns overrides DefaultMaxTurns when positive.
	MaxTurns int
}

func (c Config) validate() error {
	if c.Provider == nil {
		return errors.New("provider is required")
	}
	if c.Executor == nil {
		return errors.New("executor is required")
	}
	if c.Turns == nil {
		return errors.New("turn source is required")
	}
	return nil
}

// Result is the outcome of one user turn. When the turn fails after tool
// calls already ran, a Result carrying their trace is returned alongside
// the error: the executed calls have committed side effects and the
// persisted error row must keep their record.
type Result struct {
	Answer    string
	Signature []byte
	Trace     *conversation.ToolTrace
}

// Orchestrator runs user turns against the provider.
type Orchestrator struct {
	provider provider.Provider
	executor ToolExecutor
	turns    TurnSource
	logger   *slog.Logger
	maxTurns int
}

// New creates an Orchestrator from cfg.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Orchestrator{
		provider: cfg.Provider,
		executor: cfg.Executor,
		turns:    cfg.Turns,
		logger:   logger,
		maxTurns: maxTurns,
	}, nil
}

// Converse answers one user message, running tool calls as the model
// requests them.
//
// A provider-side thought-signature rejection is retried exactly once:
// the transcript is rebuilt from scratch with placeholder signatures and
// the whole turn replayed. Any other failure, or a second signature
// failure, propagates.
func (o *Orchestrator) Converse(ctx context.Context, query, ragContext string, userID, conversationID uuid.UUID) (*Result, error) {
	prior, err := o.turns.Turns(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation history: %w", err)
	}
	prompt := buildPrompt(query, ragContext)

	res, err := o.converse(ctx, rebuildHistory(prior, false), prompt, userID, conversationID)
	if err == nil || !provider.IsSignatureError(err) {
		return res, err
	}

	o.logger.Warn("stored thought signature rejected, replaying with placeholders",
		"conversation_id", conversationID,
	)
	return o.converse(ctx, rebuildHistory(prior, true), prompt, userID, conversationID)
}

// converse runs the bounded tool-calling loop for one attempt.
func (o *Orchestrator) converse(ctx context.Context, history []provider.Entry, prompt string, userID, conversationID uuid.UUID) (*Result, error) {
	transcript := append(history, provider.UserText(prompt))
	decls := tool.Declarations()
	trace := &conversation.ToolTrace{}
	var signature []byte

	for turn := 1; turn <= o.maxTurns; turn++ {
		resp, err := o.provider.Generate(ctx, transcript, decls)
		if err != nil {
			return &Result{Trace: trace}, fmt.Errorf("provider exchange: %w", err)
		}
		if len(resp.Parts) == 0 {
			return &Result{Trace: trace}, provider.ErrEmptyResponse
		}

		// Last-write-wins across parts within the turn.
		for _, p := range resp.Parts {
			if len(p.Signature) > 0 {
				signature = p.Signature
			}
		}

		callPart := resp.FirstCall()
		if callPart == nil {
			answer := strings.TrimSpace(resp.Text())
			if answer == "" {
				return &Result{Trace: trace}, provider.ErrEmptyResponse
			}
			return &Result{Answer: answer, Signature: signature, Trace: trace}, nil
		}

		call := callPart.Call
		o.logger.Info("dispatching tool call",
			"tool", call.Name,
			"turn", turn,
			"conversation_id", conversationID,
		)

		result := o.executeCall(ctx, call, userID, conversationID)
		trace.Calls = append(trace.Calls, conversation.ToolCall{Name: call.Name, Args: call.Args})
		trace.Responses = append(trace.Responses, conversation.ToolResponse{Name: call.Name, Response: result})

		// Replay the call verbatim, signature included, then feed the
		// result back and let the model continue.
		transcript = append(transcript,
			provider.ModelCall(call.Name, call.Args, callPart.Signature),
			provider.ToolResult(call.Name, result),
		)
	}

	return &Result{Trace: trace}, ErrTurnLimit
}

// executeCall runs one tool call and always yields a structured result.
// Validation and business-rule failures are fed back to the model as
// {error: ...}; they never abort the turn.
func (o *Orchestrator) executeCall(ctx context.Context, call *provider.FunctionCall, userID, conversationID uuid.UUID) map[string]any {
	if call.Name != tool.ManageTaskName {
		o.logger.Warn("model requested unknown tool", "tool", call.Name)
		return map[string]any{"error": fmt.Sprintf("Unknown tool: %s", call.Name)}
	}

	args, err := tool.ParseArgs(call.Args, conversationID)
	if err != nil {
		var ve *tool.ValidationError
		if errors.As(err, &ve) {
			o.logger.Warn("tool argument validation failed",
				"field", ve.Field,
				"reason", ve.Reason,
			)
		}
		return map[string]any{"error": err.Error()}
	}

	out, err := o.executor.Execute(ctx, args, userID)
	if err != nil {
		var ee *task.ExecutionError
		if errors.As(err, &ee) {
			return map[string]any{"error": ee.Reason}
		}
		o.logger.Error("tool execution failed",
			"tool", call.Name,
			"action", string(args.Action),
			"error", err,
		)
		return map[string]any{"error": "tool execution failed unexpectedly"}
	}
	return out
}

const ragPromptTemplate = `You are a helpful, accurate assistant.

Use ONLY the information provided in the context below to answer the user's question.
If the context does not contain enough information to answer the question, say so clearly.

Context:
%s

User question:
%s`

// buildPrompt wraps the user query in the retrieval-grounding template.
// With no retrieved context the raw query is sent as-is, leaving the model
// free to use its tools.
func buildPrompt(query, ragContext string) string {
	if strings.TrimSpace(ragContext) == "" {
		return query
	}
	return fmt.Sprintf(ragPromptTemplate, ragContext, query)
}
