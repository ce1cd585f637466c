package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lexa0/lexa/internal/chat"
	"github.com/lexa0/lexa/internal/conversation"
	"github.com/lexa0/lexa/internal/provider"
)

// UserIDHeader carries the caller's validated identity. Session issuance
// and verification live outside this service.
const UserIDHeader = "X-User-ID"

// Converser runs one conversation turn. *chat.Orchestrator implements it.
type Converser interface {
	Converse(ctx context.Context, query, ragContext string, userID, conversationID uuid.UUID) (*chat.Result, error)
}

// ContextRetriever supplies the grounding context for a query.
// *retrieval.Retriever implements it.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, ownerID uuid.UUID) (string, error)
}

// TurnWriter persists finished turns. *conversation.Store implements it.
type TurnWriter interface {
	Insert(ctx context.Context, turn *conversation.Turn) error
}

// ChatConfig carries the chat handler's dependencies.
type ChatConfig struct {
	Converser Converser
	Retriever ContextRetriever
	Turns     TurnWriter
	ModelName string
	Logger    *slog.Logger
}

// Chat handles POST /api/v1/chat.
type Chat struct {
	converser Converser
	retriever ContextRetriever
	turns     TurnWriter
	modelName string
	logger    *slog.Logger
}

// NewChat creates the chat handler.
func NewChat(cfg ChatConfig) (*Chat, error) {
	if cfg.Converser == nil {
		return nil, errors.New("converser is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if cfg.Turns == nil {
		return nil, errors.New("turn writer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Chat{
		converser: cfg.Converser,
		retriever: cfg.Retriever,
		turns:     cfg.Turns,
		modelName: cfg.ModelName,
		logger:    logger,
	}, nil
}

type chatRequest struct {
	Message        string     `json:"message"`
	ConversationID *uuid.UUID `json:"conversation_id"`
}

type chatResponse struct {
	Answer         string    `json:"answer"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

// ServeHTTP runs one conversation turn.
//
// Exactly one turn row is written per inbound message, whatever the
// outcome; its status reflects how the turn ended. A persistence failure
// is logged but never overrides the user-facing result.
func (c *Chat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.Header.Get(UserIDHeader))
	if err != nil {
		respondError(w, c.logger, http.StatusUnauthorized, "missing or invalid user identity", "")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, c.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Message == "" {
		respondError(w, c.logger, http.StatusBadRequest, "message is required", "")
		return
	}

	conversationID := uuid.New()
	if req.ConversationID != nil {
		conversationID = *req.ConversationID
	}

	start := time.Now()
	turn := &conversation.Turn{
		UserID:         userID,
		ConversationID: conversationID,
		UserMessage:    req.Message,
		ModelName:      c.modelName,
		Status:         conversation.StatusPending,
	}
	defer func() {
		turn.LatencyMS = time.Since(start).Milliseconds()
		// Persist even when the client has gone away mid-turn.
		ctx := context.WithoutCancel(r.Context())
		if err := c.turns.Insert(ctx, turn); err != nil {
			c.logger.Error("persisting turn failed",
				"conversation_id", conversationID,
				"status", turn.Status,
				"error", err,
			)
		}
	}()

	ragContext, err := c.retriever.Retrieve(r.Context(), req.Message, userID)
	if err != nil {
		// Degraded but answerable: continue without grounding context.
		c.logger.Warn("context retrieval failed", "error", err)
		ragContext = ""
	}

	res, err := c.converser.Converse(r.Context(), req.Message, ragContext, userID, conversationID)
	if err != nil {
		msg := err.Error()
		turn.Status = conversation.StatusError
		turn.ErrorMessage = &msg
		// Tool calls that ran before the failure have committed side
		// effects; the error row keeps their trace.
		if res != nil {
			turn.Trace = res.Trace
		}
		c.logger.Error("conversation turn failed",
			"conversation_id", conversationID,
			"error", err,
		)
		respondError(w, c.logger, turnErrorStatus(err), "chat turn failed", msg)
		return
	}

	turn.Answer = &res.Answer
	turn.ThoughtSignature = res.Signature
	turn.Trace = res.Trace
	turn.Status = conversation.StatusCompleted

	respondData(w, c.logger, http.StatusOK, chatResponse{
		Answer:         res.Answer,
		ConversationID: conversationID,
	})
}

// turnErrorStatus maps turn failures to HTTP statuses: model-side
// failures are upstream errors, everything else is internal.
func turnErrorStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrEmptyResponse),
		errors.Is(err, chat.ErrTurnLimit),
		provider.IsSignatureError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
