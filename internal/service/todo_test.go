package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jaekwang-park/todo-crud/internal/model"
	"github.com/jaekwang-park/todo-crud/internal/repository"
	"github.com/jaekwang-park/todo-crud/internal/service"
)

// mockTodoRepo implements repository.TodoRepository for testing
type mockTodoRepo struct {
	added   []*model.Todo
	removed []*model.Todo
	saves   int

	saveFn      func(ctx context.Context) error
	findFirstFn func(ctx context.Context, q repository.Query) (*model.Todo, error)
	findAllFn   func(ctx context.Context, q repository.Query) ([]*model.Todo, error)
	countFn     func(ctx context.Context, where repository.Predicate) (int, error)
}

func (m *mockTodoRepo) EnsureSchema(ctx context.Context) error { return nil }
func (m *mockTodoRepo) Add(todo *model.Todo)                  { m.added = append(m.added, todo) }
func (m *mockTodoRepo) AddMany(todos []*model.Todo)           { m.added = append(m.added, todos...) }
func (m *mockTodoRepo) Remove(todo *model.Todo)               { m.removed = append(m.removed, todo) }
func (m *mockTodoRepo) RemoveMany(todos []*model.Todo)        { m.removed = append(m.removed, todos...) }
func (m *mockTodoRepo) Save(ctx context.Context) error {
	m.saves++
	if m.saveFn != nil {
		return m.saveFn(ctx)
	}
	return nil
}
func (m *mockTodoRepo) FindFirst(ctx context.Context, q repository.Query) (*model.Todo, error) {
	return m.findFirstFn(ctx, q)
}
func (m *mockTodoRepo) FindAll(ctx context.Context, q repository.Query) ([]*model.Todo, error) {
	return m.findAllFn(ctx, q)
}
func (m *mockTodoRepo) Count(ctx context.Context, where repository.Predicate) (int, error) {
	return m.countFn(ctx, where)
}

func sampleTodo() *model.Todo {
	todo := model.NewTodo("Buy milk")
	todo.ID = 1
	return todo
}

func TestAddOne(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		saveErr error
		wantErr string
	}{
		{
			name:  "success",
			title: "Buy milk",
		},
		{
			name:    "empty title",
			title:   "",
			wantErr: "invalid input",
		},
		{
			name:    "save error",
			title:   "Buy milk",
			saveErr: fmt.Errorf("db error"),
			wantErr: "failed to add todo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTodoRepo{
				saveFn: func(ctx context.Context) error { return tt.saveErr },
			}
			svc := service.NewTodoService(repo)
			got, err := svc.AddOne(context.Background(), tt.title)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Title != tt.title {
				t.Errorf("expected title=%q, got %q", tt.title, got.Title)
			}
			if got.IsDone {
				t.Error("expected new todo to be open")
			}
			if len(repo.added) != 1 || repo.added[0] != got {
				t.Errorf("expected the todo to be staged, got %v", repo.added)
			}
			if repo.saves != 1 {
				t.Errorf("expected 1 save, got %d", repo.saves)
			}
		})
	}
}

func TestAddMany(t *testing.T) {
	t.Run("stages all inputs in order with one save", func(t *testing.T) {
		repo := &mockTodoRepo{}
		svc := service.NewTodoService(repo)

		got, err := svc.AddMany(context.Background(), []service.CreateTodoInput{
			{Title: "Read book"},
			{Title: "Write code", IsDone: true},
			{Title: "Do workout"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 || len(repo.added) != 3 {
			t.Fatalf("expected 3 todos, got %d staged %d", len(got), len(repo.added))
		}
		if repo.added[1].Title != "Write code" || !repo.added[1].IsDone {
			t.Errorf("unexpected second todo: %+v", repo.added[1])
		}
		if repo.saves != 1 {
			t.Errorf("expected 1 save, got %d", repo.saves)
		}
	})

	t.Run("empty title stages nothing", func(t *testing.T) {
		repo := &mockTodoRepo{}
		svc := service.NewTodoService(repo)

		_, err := svc.AddMany(context.Background(), []service.CreateTodoInput{
			{Title: "Read book"},
			{Title: ""},
		})
		if !errors.Is(err, service.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if len(repo.added) != 0 || repo.saves != 0 {
			t.Errorf("expected no staging, got %d added %d saves", len(repo.added), repo.saves)
		}
	})
}

func TestCompleteByTitle(t *testing.T) {
	tests := []struct {
		name    string
		findFn  func(ctx context.Context, q repository.Query) (*model.Todo, error)
		wantErr error
	}{
		{
			name: "success",
			findFn: func(ctx context.Context, q repository.Query) (*model.Todo, error) {
				return sampleTodo(), nil
			},
		},
		{
			name: "not found",
			findFn: func(ctx context.Context, q repository.Query) (*model.Todo, error) {
				return nil, nil
			},
			wantErr: service.ErrNotFound,
		},
		{
			name: "connection error",
			findFn: func(ctx context.Context, q repository.Query) (*model.Todo, error) {
				return nil, &repository.ConnectionError{Op: "find todo", Err: errors.New("refused")}
			},
			wantErr: repository.ErrConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTodoRepo{findFirstFn: tt.findFn}
			svc := service.NewTodoService(repo)
			got, err := svc.CompleteByTitle(context.Background(), "Buy milk")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if repo.saves != 0 {
					t.Errorf("expected no save, got %d", repo.saves)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.IsDone {
				t.Error("expected todo to be done")
			}
			if repo.saves != 1 {
				t.Errorf("expected 1 save, got %d", repo.saves)
			}
		})
	}
}

func TestCompleteMatching(t *testing.T) {
	todos := []*model.Todo{sampleTodo(), sampleTodo()}
	repo := &mockTodoRepo{
		findAllFn: func(ctx context.Context, q repository.Query) ([]*model.Todo, error) {
			return todos, nil
		},
	}
	svc := service.NewTodoService(repo)

	n, err := svc.CompleteMatching(context.Background(), repository.TitleContains("milk"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
	for _, todo := range todos {
		if !todo.IsDone {
			t.Errorf("expected todo %d to be done", todo.ID)
		}
	}
	if repo.saves != 1 {
		t.Errorf("expected 1 save, got %d", repo.saves)
	}
}

func TestDeleteByTitle(t *testing.T) {
	t.Run("missing todo is not an error", func(t *testing.T) {
		repo := &mockTodoRepo{
			findFirstFn: func(ctx context.Context, q repository.Query) (*model.Todo, error) {
				return nil, nil
			},
		}
		got, err := service.NewTodoService(repo).DeleteByTitle(context.Background(), "Do workout")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
		if repo.saves != 0 {
			t.Errorf("expected no save, got %d", repo.saves)
		}
	})

	t.Run("removes and saves", func(t *testing.T) {
		todo := sampleTodo()
		repo := &mockTodoRepo{
			findFirstFn: func(ctx context.Context, q repository.Query) (*model.Todo, error) {
				return todo, nil
			},
		}
		got, err := service.NewTodoService(repo).DeleteByTitle(context.Background(), "Buy milk")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != todo || len(repo.removed) != 1 || repo.removed[0] != todo {
			t.Errorf("expected todo to be removed, got %v", repo.removed)
		}
		if repo.saves != 1 {
			t.Errorf("expected 1 save, got %d", repo.saves)
		}
	})
}

func TestDeleteDone(t *testing.T) {
	repo := &mockTodoRepo{
		findAllFn: func(ctx context.Context, q repository.Query) ([]*model.Todo, error) {
			return []*model.Todo{sampleTodo()}, nil
		},
		saveFn: func(ctx context.Context) error {
			return &repository.PersistenceError{Op: "delete todo", Code: repository.CodeMissingRow}
		},
	}

	_, err := service.NewTodoService(repo).DeleteDone(context.Background())
	if !errors.Is(err, repository.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to delete todos") {
		t.Errorf("unexpected error text %q", err.Error())
	}
}

func TestCount(t *testing.T) {
	repo := &mockTodoRepo{
		countFn: func(ctx context.Context, where repository.Predicate) (int, error) {
			if where != nil {
				t.Errorf("expected nil predicate, got %v", where)
			}
			return 4, nil
		},
	}

	n, err := service.NewTodoService(repo).Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
}

func TestFirstOpen_Query(t *testing.T) {
	repo := &mockTodoRepo{
		findFirstFn: func(ctx context.Context, q repository.Query) (*model.Todo, error) {
			if len(q.OrderBy) != 1 || q.OrderBy[0] != repository.Asc(repository.FieldID) {
				t.Errorf("expected ascending id order, got %v", q.OrderBy)
			}
			if q.Where != repository.IsDone(false) {
				t.Errorf("expected open filter, got %v", q.Where)
			}
			return nil, nil
		},
	}

	got, err := service.NewTodoService(repo).FirstOpen(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func setupService(t *testing.T) *service.TodoService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.NewDB(context.Background(), "sqlite", ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := service.NewTodoService(repository.NewTodoStore(db, repository.SQLite, logger))
	if err := svc.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	return svc
}

func TestTodoService_SQLite(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	if _, err := svc.AddOne(ctx, "Buy milk"); err != nil {
		t.Fatalf("AddOne failed: %v", err)
	}
	if _, err := svc.AddMany(ctx, []service.CreateTodoInput{
		{Title: "Read book"}, {Title: "Write code"}, {Title: "Do workout"},
	}); err != nil {
		t.Fatalf("AddMany failed: %v", err)
	}

	done, err := svc.CompleteByTitle(ctx, "Buy milk")
	if err != nil {
		t.Fatalf("CompleteByTitle failed: %v", err)
	}
	if !done.IsDone {
		t.Error("expected Buy milk to be done")
	}

	n, err := svc.CompleteMatching(ctx, repository.Or(
		repository.TitleContains("Read"),
		repository.TitleContains("Write"),
	))
	if err != nil {
		t.Fatalf("CompleteMatching failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 updated, got %d", n)
	}

	deleted, err := svc.DeleteByTitle(ctx, "Do workout")
	if err != nil || deleted == nil {
		t.Fatalf("DeleteByTitle failed: %v, %v", deleted, err)
	}

	removed, err := svc.DeleteDone(ctx)
	if err != nil {
		t.Fatalf("DeleteDone failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	count, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty table, got %d", count)
	}

	first, err := svc.FirstOpen(ctx)
	if err != nil {
		t.Fatalf("FirstOpen failed: %v", err)
	}
	if first != nil {
		t.Errorf("expected no open todo, got %+v", first)
	}

	if _, err := svc.CompleteByTitle(ctx, "Buy milk"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListOpen_Ordered(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	added, err := svc.AddMany(ctx, []service.CreateTodoInput{
		{Title: "Task A"}, {Title: "Task B", IsDone: true}, {Title: "Task C"},
	})
	if err != nil {
		t.Fatalf("AddMany failed: %v", err)
	}

	open, err := svc.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(open) != 2 || open[0].ID != added[0].ID || open[1].ID != added[2].ID {
		t.Fatalf("expected Task A and Task C in id order, got %+v", open)
	}

	first, err := svc.FirstOpen(ctx)
	if err != nil {
		t.Fatalf("FirstOpen failed: %v", err)
	}
	if first == nil || first.Title != "Task A" {
		t.Errorf("expected Task A, got %+v", first)
	}
}
