package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the common interface satisfied by both *pgxpool.Pool and
// pgx.Tx, so the same Store works inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// taskCols is the standard SELECT column list for scanRecords.
const taskCols = `id, conversation_id, created_by_user_id, title, description, status, created_at`

// Store persists task records in PostgreSQL.
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

// Insert writes a new task record.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tasks (id, conversation_id, created_by_user_id, title, description, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.ConversationID, rec.CreatedBy, rec.Title, rec.Description, rec.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	s.logger.Debug("inserted task", "id", rec.ID, "title", rec.Title)
	return nil
}

// Save updates the mutable columns of an existing record, owner-scoped.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3
		 WHERE id = $4 AND created_by_user_id = $5`,
		rec.Title, rec.Description, rec.Status, rec.ID, rec.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found for owner", rec.ID)
	}
	return nil
}

// Delete removes a record, owner-scoped.
func (s *Store) Delete(ctx context.Context, id, owner uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND created_by_user_id = $2`,
		id, owner,
	)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found for owner", id)
	}
	s.logger.Debug("deleted task", "id", id)
	return nil
}

// SearchByQuery returns the owner's tasks whose title or description
// contains query as a case-insensitive substring, newest first.
func (s *Store) SearchByQuery(ctx context.Context, owner uuid.UUID, query string) ([]Record, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(ctx,
		`SELECT `+taskCols+` FROM tasks
		 WHERE created_by_user_id = $1
		   AND (title ILIKE $2 OR description ILIKE $2)
		 ORDER BY created_at DESC`,
		owner, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
	}
	return scanRecords(rows)
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Owner  uuid.UUID
	Status Status
	Query  string
}

// List returns the owner's tasks, optionally narrowed by status and/or a
// case-insensitive substring match on title/description, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Record, error) {
	sql := `SELECT ` + taskCols + ` FROM tasks WHERE created_by_user_id = $1`
	args := []any{f.Owner}

	if f.Status != "" {
		args = append(args, f.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		sql += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	sql += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.ConversationID, &r.CreatedBy,
			&r.Title, &r.Description, &r.Status, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return recs, nil
}
