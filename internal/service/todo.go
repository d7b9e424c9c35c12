package service

import (
	"context"
	"fmt"

	"github.com/jaekwang-park/todo-crud/internal/model"
	"github.com/jaekwang-park/todo-crud/internal/repository"
)

type CreateTodoInput struct {
	Title  string
	IsDone bool
}

type TodoService struct {
	repo repository.TodoRepository
}

func NewTodoService(repo repository.TodoRepository) *TodoService {
	return &TodoService{repo: repo}
}

func (s *TodoService) EnsureSchema(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (s *TodoService) AddOne(ctx context.Context, title string) (*model.Todo, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	todo := model.NewTodo(title)
	s.repo.Add(todo)
	if err := s.repo.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to add todo: %w", err)
	}
	return todo, nil
}

// AddMany inserts all inputs in one transaction. Ids follow input order.
func (s *TodoService) AddMany(ctx context.Context, inputs []CreateTodoInput) ([]*model.Todo, error) {
	todos := make([]*model.Todo, 0, len(inputs))
	for i, in := range inputs {
		if in.Title == "" {
			return nil, fmt.Errorf("%w: title is required (item %d)", ErrInvalidInput, i)
		}
		todo := model.NewTodo(in.Title)
		todo.IsDone = in.IsDone
		todos = append(todos, todo)
	}

	s.repo.AddMany(todos)
	if err := s.repo.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to add todos: %w", err)
	}
	return todos, nil
}

// CompleteByTitle marks the first todo with the given title as done.
func (s *TodoService) CompleteByTitle(ctx context.Context, title string) (*model.Todo, error) {
	todo, err := s.repo.FindFirst(ctx, repository.Where(repository.TitleEquals(title)))
	if err != nil {
		return nil, fmt.Errorf("failed to get todo for update: %w", err)
	}
	if todo == nil {
		return nil, fmt.Errorf("%w: todo %q", ErrNotFound, title)
	}

	todo.IsDone = true
	if err := s.repo.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return todo, nil
}

// CompleteMatching marks every todo matching where as done and returns how
// many were loaded.
func (s *TodoService) CompleteMatching(ctx context.Context, where repository.Predicate) (int, error) {
	todos, err := s.repo.FindAll(ctx, repository.Where(where))
	if err != nil {
		return 0, fmt.Errorf("failed to list todos for update: %w", err)
	}

	for _, todo := range todos {
		todo.IsDone = true
	}
	if err := s.repo.Save(ctx); err != nil {
		return 0, fmt.Errorf("failed to update todos: %w", err)
	}
	return len(todos), nil
}

// DeleteByTitle removes the first todo with the given title. It returns nil
// without error when no such todo exists.
func (s *TodoService) DeleteByTitle(ctx context.Context, title string) (*model.Todo, error) {
	todo, err := s.repo.FindFirst(ctx, repository.Where(repository.TitleEquals(title)))
	if err != nil {
		return nil, fmt.Errorf("failed to get todo for delete: %w", err)
	}
	if todo == nil {
		return nil, nil
	}

	s.repo.Remove(todo)
	if err := s.repo.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to delete todo: %w", err)
	}
	return todo, nil
}

func (s *TodoService) DeleteDone(ctx context.Context) (int, error) {
	todos, err := s.repo.FindAll(ctx, repository.Where(repository.IsDone(true)))
	if err != nil {
		return 0, fmt.Errorf("failed to list done todos: %w", err)
	}

	s.repo.RemoveMany(todos)
	if err := s.repo.Save(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete todos: %w", err)
	}
	return len(todos), nil
}

func (s *TodoService) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count todos: %w", err)
	}
	return n, nil
}

// FirstOpen returns the open todo with the lowest id, or nil.
func (s *TodoService) FirstOpen(ctx context.Context) (*model.Todo, error) {
	todo, err := s.repo.FindFirst(ctx, openQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to get first open todo: %w", err)
	}
	return todo, nil
}

func (s *TodoService) ListOpen(ctx context.Context) ([]*model.Todo, error) {
	todos, err := s.repo.FindAll(ctx, openQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list open todos: %w", err)
	}
	return todos, nil
}

func openQuery() repository.Query {
	return repository.Query{
		Where:   repository.IsDone(false),
		OrderBy: []repository.Order{repository.Asc(repository.FieldID)},
	}
}
