package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the common interface satisfied by both *pgxpool.Pool and
// pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const turnCols = `id, user_id, conversation_id, user_message, llm_response,
	thought_signature, model_name, latency_ms, tool_trace, error_message,
	status, created_at`

// Store persists conversation turns in PostgreSQL.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// NewStore creates a Store over the given querier.
func NewStore(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Insert writes one finished turn. Trace serializes to JSONB; a nil or
// empty trace is stored as NULL.
func (s *Store) Insert(ctx context.Context, turn *Turn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.Status == "" {
		turn.Status = StatusPending
	}

	var trace *ToolTrace
	if !turn.Trace.Empty() {
		trace = turn.Trace
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO conversation_turns
		 (id, user_id, conversation_id, user_message, llm_response,
		  thought_signature, model_name, latency_ms, tool_trace,
		  error_message, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		turn.ID, turn.UserID, turn.ConversationID, turn.UserMessage,
		turn.Answer, turn.ThoughtSignature, turn.ModelName, turn.LatencyMS,
		trace, turn.ErrorMessage, turn.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation turn: %w", err)
	}

	s.logger.Debug("persisted turn",
		"turn_id", turn.ID,
		"conversation_id", turn.ConversationID,
		"status", turn.Status,
	)
	return nil
}

// Turns returns every turn of a conversation, oldest first — the order
// the history reconstructor consumes them in. Owner-scoped: a caller only
// ever replays turns they wrote, so a guessed or foreign conversation id
// yields empty history rather than someone else's messages.
func (s *Store) Turns(ctx context.Context, conversationID, userID uuid.UUID) ([]Turn, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+turnCols+` FROM conversation_turns
		 WHERE conversation_id = $1 AND user_id = $2
		 ORDER BY created_at ASC`,
		conversationID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.ConversationID, &t.UserMessage, &t.Answer,
			&t.ThoughtSignature, &t.ModelName, &t.LatencyMS, &t.Trace,
			&t.ErrorMessage, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turn rows: %w", err)
	}
	return turns, nil
}
