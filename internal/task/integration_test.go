package task_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexa0/lexa/internal/log"
	"github.com/lexa0/lexa/internal/task"
	"github.com/lexa0/lexa/internal/testutil"
	"github.com/lexa0/lexa/internal/tool"
)

func insertUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email) VALUES ($1, $2)`,
		id, id.String()+"@example.com",
	); err != nil {
		t.Fatalf("inserting user: %v", err)
	}
	return id
}

func countTasks(t *testing.T, pool *pgxpool.Pool, owner uuid.UUID) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(),
		`SELECT count(*) FROM tasks WHERE created_by_user_id = $1`, owner,
	).Scan(&n); err != nil {
		t.Fatalf("counting tasks: %v", err)
	}
	return n
}

func TestExecutor_Integration(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool := testutil.StartPostgres(t)
	ctx := context.Background()

	owner := insertUser(t, pool)
	convID := uuid.New()

	exec, err := task.NewExecutor(pool, log.NewNop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	t.Run("create commits", func(t *testing.T) {
		out, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action:         tool.ActionCreate,
			Title:          "Write integration tests",
			Description:    "against a real database",
			ConversationID: convID,
		}, owner)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if out["title"] != "Write integration tests" || out["status"] != "todo" {
			t.Errorf("result = %+v", out)
		}
		if got := countTasks(t, pool, owner); got != 1 {
			t.Errorf("task count = %d, want 1", got)
		}
	})

	t.Run("update by natural language query", func(t *testing.T) {
		out, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action: tool.ActionUpdate,
			Query:  "integration tests",
			Status: "done",
		}, owner)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if out["updated"] != true || out["status"] != "done" {
			t.Errorf("result = %+v", out)
		}
	})

	t.Run("failed create rolls back", func(t *testing.T) {
		before := countTasks(t, pool, owner)
		_, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action:         tool.ActionCreate,
			ConversationID: convID,
		}, owner)
		var ee *task.ExecutionError
		if !errors.As(err, &ee) {
			t.Fatalf("err = %v, want ExecutionError", err)
		}
		if got := countTasks(t, pool, owner); got != before {
			t.Errorf("task count changed on failed create: %d -> %d", before, got)
		}
	})

	t.Run("ambiguous update mutates nothing", func(t *testing.T) {
		if _, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action:         tool.ActionCreate,
			Title:          "Write more tests",
			ConversationID: convID,
		}, owner); err != nil {
			t.Fatalf("seeding second task: %v", err)
		}

		_, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action: tool.ActionUpdate,
			Query:  "tests",
			Status: "in_progress",
		}, owner)
		var ee *task.ExecutionError
		if !errors.As(err, &ee) || ee.Reason != "Multiple matching tasks found" {
			t.Fatalf("err = %v", err)
		}

		var n int
		if err := pool.QueryRow(ctx,
			`SELECT count(*) FROM tasks WHERE created_by_user_id = $1 AND status = 'in_progress'`,
			owner,
		).Scan(&n); err != nil {
			t.Fatalf("counting: %v", err)
		}
		if n != 0 {
			t.Errorf("%d tasks moved to in_progress by a refused update", n)
		}
	})

	t.Run("delete is owner scoped", func(t *testing.T) {
		stranger := insertUser(t, pool)
		_, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action: tool.ActionDelete,
			Query:  "integration tests",
		}, stranger)
		var ee *task.ExecutionError
		if !errors.As(err, &ee) || ee.Reason != "No matching task found" {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("list with status filter", func(t *testing.T) {
		out, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action: tool.ActionList,
			Status: "done",
		}, owner)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if out["count"] != 1 {
			t.Errorf("count = %v, want 1", out["count"])
		}
	})

	t.Run("delete removes the row", func(t *testing.T) {
		out, err := exec.Execute(ctx, tool.ManageTaskArgs{
			Action: tool.ActionDelete,
			Query:  "more tests",
		}, owner)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if out["deleted"] != true {
			t.Errorf("result = %+v", out)
		}
		if got := countTasks(t, pool, owner); got != 1 {
			t.Errorf("task count = %d, want 1", got)
		}
	})
}
