package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexa0/lexa/internal/tool"
)

// Storer is the store surface the executor dispatches against.
// *Store implements it; tests may substitute an in-memory fake.
type Storer interface {
	Insert(ctx context.Context, rec *Record) error
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id, owner uuid.UUID) error
	SearchByQuery(ctx context.Context, owner uuid.UUID, query string) ([]Record, error)
	List(ctx context.Context, f ListFilter) ([]Record, error)
}

// Executor performs task.manage actions against the transactional store.
//
// Each Execute call runs in its own transaction. Any error — business-rule
// or otherwise — rolls the transaction back before it surfaces, so a
// failed tool call never persists partial writes.
type Executor struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewExecutor creates an Executor over the given pool.
func NewExecutor(pool *pgxpool.Pool, logger *slog.Logger) (*Executor, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{pool: pool, logger: logger}, nil
}

// Execute dispatches one validated task.manage invocation for userID.
// The returned map is the structured tool result fed back to the model.
func (e *Executor) Execute(ctx context.Context, args tool.ManageTaskArgs, userID uuid.UUID) (map[string]any, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback is a no-op after a successful commit.
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			e.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	store := NewStore(tx, e.logger)
	out, err := dispatch(ctx, store, args, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return out, nil
}

// dispatch routes a validated invocation to its action handler.
func dispatch(ctx context.Context, store Storer, args tool.ManageTaskArgs, userID uuid.UUID) (map[string]any, error) {
	switch args.Action {
	case tool.ActionCreate:
		return createTask(ctx, store, args, userID)
	case tool.ActionUpdate:
		return updateTask(ctx, store, args, userID)
	case tool.ActionDelete:
		return deleteTask(ctx, store, args, userID)
	case tool.ActionList:
		return listTasks(ctx, store, args, userID)
	default:
		return nil, execErrorf("Unsupported action: %s", args.Action)
	}
}

func createTask(ctx context.Context, store Storer, args tool.ManageTaskArgs, userID uuid.UUID) (map[string]any, error) {
	if args.ConversationID == uuid.Nil {
		return nil, execErrorf("conversation id is required")
	}
	if args.Title == "" {
		return nil, execErrorf("title is required")
	}

	status := StatusTodo
	if args.Status != "" {
		status = Status(args.Status)
	}

	rec := &Record{
		ID:             uuid.New(),
		ConversationID: args.ConversationID,
		CreatedBy:      userID,
		Title:          args.Title,
		Status:         status,
		CreatedAt:      time.Now(),
	}
	if args.Description != "" {
		rec.Description = &args.Description
	}

	if err := store.Insert(ctx, rec); err != nil {
		return nil, err
	}

	return map[string]any{
		"title":  rec.Title,
		"status": string(rec.Status),
	}, nil
}

func updateTask(ctx context.Context, store Storer, args tool.ManageTaskArgs, userID uuid.UUID) (map[string]any, error) {
	if args.Query == "" {
		return nil, execErrorf("query is required")
	}

	// The resolver enforces ownership and exactly one match.
	rec, err := resolveSingleByQuery(ctx, store, userID, args.Query)
	if err != nil {
		return nil, err
	}

	if args.Status == "" && args.Title == "" && args.Description == "" {
		return nil, execErrorf("No fields provided to update")
	}

	var updatedFields []string
	if args.Status != "" {
		rec.Status = Status(args.Status)
		updatedFields = append(updatedFields, "status")
	}
	if args.Title != "" {
		rec.Title = args.Title
		updatedFields = append(updatedFields, "title")
	}
	if args.Description != "" {
		rec.Description = &args.Description
		updatedFields = append(updatedFields, "description")
	}

	if err := store.Save(ctx, rec); err != nil {
		return nil, err
	}

	return map[string]any{
		"updated":        true,
		"updated_fields": updatedFields,
		"status":         string(rec.Status),
	}, nil
}

func deleteTask(ctx context.Context, store Storer, args tool.ManageTaskArgs, userID uuid.UUID) (map[string]any, error) {
	if args.Query == "" {
		return nil, execErrorf("query is required to identify the task to delete")
	}

	rec, err := resolveSingleByQuery(ctx, store, userID, args.Query)
	if err != nil {
		return nil, err
	}

	if err := store.Delete(ctx, rec.ID, userID); err != nil {
		return nil, err
	}

	return map[string]any{
		"action":  "delete",
		"deleted": true,
		"task": map[string]any{
			"title":  rec.Title,
			"status": string(rec.Status),
		},
	}, nil
}

func listTasks(ctx context.Context, store Storer, args tool.ManageTaskArgs, userID uuid.UUID) (map[string]any, error) {
	recs, err := store.List(ctx, ListFilter{
		Owner:  userID,
		Status: Status(args.Status),
		Query:  args.Query,
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		tasks = append(tasks, map[string]any{
			"title":      r.Title,
			"status":     string(r.Status),
			"created_at": r.CreatedAt.Format(time.RFC3339),
		})
	}

	var statusFilter, queryFilter any
	if args.Status != "" {
		statusFilter = args.Status
	}
	if args.Query != "" {
		queryFilter = args.Query
	}

	return map[string]any{
		"action":         "list",
		"filter_applied": map[string]any{"status": statusFilter, "query": queryFilter},
		"count":          len(recs),
		"tasks":          tasks,
	}, nil
}

// resolveSingleByQuery finds the one task owned by userID whose title or
// description matches query. Zero or multiple matches are refused rather
// than guessed among.
func resolveSingleByQuery(ctx context.Context, store Storer, userID uuid.UUID, query string) (*Record, error) {
	recs, err := store.SearchByQuery(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, execErrorf("No matching task found")
	}
	if len(recs) > 1 {
		return nil, execErrorf("Multiple matching tasks found")
	}
	return &recs[0], nil
}
