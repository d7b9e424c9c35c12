package repository

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/jaekwang-park/todo-crud/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestDB opens an in-memory SQLite database with the todos schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(context.Background(), "sqlite", ":memory:", discardLogger())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := NewTodoStore(db, SQLite, discardLogger()).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	return db
}

func setupTestStore(t *testing.T) (*TodoStore, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewTodoStore(db, SQLite, discardLogger()), db
}

func addAndSave(t *testing.T, s *TodoStore, titles ...string) []*model.Todo {
	t.Helper()
	todos := make([]*model.Todo, len(titles))
	for i, title := range titles {
		todos[i] = model.NewTodo(title)
	}
	s.AddMany(todos)
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return todos
}

func mustCount(t *testing.T, s *TodoStore, where Predicate) int {
	t.Helper()
	n, err := s.Count(context.Background(), where)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}
