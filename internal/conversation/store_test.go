package conversation_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lexa0/lexa/internal/conversation"
	"github.com/lexa0/lexa/internal/log"
	"github.com/lexa0/lexa/internal/testutil"
)

func TestStore_InsertAndTurns(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool := testutil.StartPostgres(t)
	ctx := context.Background()

	userID := uuid.New()
	if _, err := pool.Exec(ctx,
		`INSERT INTO users (id, email) VALUES ($1, $2)`,
		userID, "turns@example.com",
	); err != nil {
		t.Fatalf("inserting user: %v", err)
	}

	store := conversation.NewStore(pool, log.NewNop())
	convID := uuid.New()

	answer := "added the task"
	first := &conversation.Turn{
		UserID:           userID,
		ConversationID:   convID,
		UserMessage:      "add a task about groceries",
		Answer:           &answer,
		ThoughtSignature: []byte("sig-bytes"),
		ModelName:        "gemini-2.5-flash",
		LatencyMS:        321,
		Trace: &conversation.ToolTrace{
			Calls: []conversation.ToolCall{
				{Name: "task.manage", Args: map[string]any{"action": "create", "title": "Groceries"}},
			},
			Responses: []conversation.ToolResponse{
				{Name: "task.manage", Response: map[string]any{"title": "Groceries", "status": "todo"}},
			},
		},
		Status: conversation.StatusCompleted,
	}
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if first.ID == uuid.Nil {
		t.Error("Insert did not assign an ID")
	}

	// Ensure distinct created_at for deterministic ordering.
	time.Sleep(10 * time.Millisecond)

	errMsg := "turn limit exceeded without final answer"
	second := &conversation.Turn{
		UserID:         userID,
		ConversationID: convID,
		UserMessage:    "keep listing forever",
		ModelName:      "gemini-2.5-flash",
		LatencyMS:      50,
		ErrorMessage:   &errMsg,
		Status:         conversation.StatusError,
	}
	if err := store.Insert(ctx, second); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// A turn in another conversation must not appear.
	other := &conversation.Turn{
		UserID:         userID,
		ConversationID: uuid.New(),
		UserMessage:    "unrelated",
		Status:         conversation.StatusCompleted,
	}
	if err := store.Insert(ctx, other); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Neither must another user's turn, even under the same conversation id.
	strangerID := uuid.New()
	if _, err := pool.Exec(ctx,
		`INSERT INTO users (id, email) VALUES ($1, $2)`,
		strangerID, "stranger@example.com",
	); err != nil {
		t.Fatalf("inserting user: %v", err)
	}
	foreign := &conversation.Turn{
		UserID:         strangerID,
		ConversationID: convID,
		UserMessage:    "someone else's message",
		Status:         conversation.StatusCompleted,
	}
	if err := store.Insert(ctx, foreign); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	turns, err := store.Turns(ctx, convID, userID)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}

	got := turns[0]
	if got.UserMessage != "add a task about groceries" {
		t.Errorf("oldest-first ordering violated: %q", got.UserMessage)
	}
	if got.Answer == nil || *got.Answer != answer {
		t.Errorf("Answer = %v", got.Answer)
	}
	if !bytes.Equal(got.ThoughtSignature, []byte("sig-bytes")) {
		t.Errorf("ThoughtSignature = %q", got.ThoughtSignature)
	}
	if got.Trace == nil || !got.Trace.Balanced() || len(got.Trace.Calls) != 1 {
		t.Fatalf("Trace = %+v", got.Trace)
	}
	if got.Trace.Calls[0].Args["title"] != "Groceries" {
		t.Errorf("trace args did not round-trip: %+v", got.Trace.Calls[0])
	}
	if got.LatencyMS != 321 || got.Status != conversation.StatusCompleted {
		t.Errorf("turn = %+v", got)
	}

	failed := turns[1]
	if failed.Status != conversation.StatusError {
		t.Errorf("Status = %q", failed.Status)
	}
	if failed.Answer != nil {
		t.Errorf("Answer = %v, want nil", failed.Answer)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage != errMsg {
		t.Errorf("ErrorMessage = %v", failed.ErrorMessage)
	}
	if failed.Trace != nil {
		t.Errorf("empty trace stored as %+v, want NULL", failed.Trace)
	}

	for _, turn := range turns {
		if turn.UserID != userID {
			t.Errorf("foreign user's turn leaked into history: %q", turn.UserMessage)
		}
	}

	// The stranger addressing the same conversation id sees only their own
	// turn, never the owner's messages or traces.
	strangerView, err := store.Turns(ctx, convID, strangerID)
	if err != nil {
		t.Fatalf("Turns(stranger): %v", err)
	}
	if len(strangerView) != 1 || strangerView[0].UserMessage != "someone else's message" {
		t.Errorf("stranger view = %+v, want only their own turn", strangerView)
	}

	empty, err := store.Turns(ctx, uuid.New(), userID)
	if err != nil {
		t.Fatalf("Turns(empty): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown conversation returned %d turns", len(empty))
	}
}
