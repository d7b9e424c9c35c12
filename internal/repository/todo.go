package repository

import (
	"context"

	"github.com/jaekwang-park/todo-crud/internal/model"
)

// TodoRepository is a unit of work over the todos table. Add, AddMany,
// Remove and RemoveMany only stage changes; Save writes them atomically.
// Records returned by FindFirst and FindAll are tracked, so mutating them in
// memory and calling Save persists the change.
type TodoRepository interface {
	EnsureSchema(ctx context.Context) error
	Add(todo *model.Todo)
	AddMany(todos []*model.Todo)
	Remove(todo *model.Todo)
	RemoveMany(todos []*model.Todo)
	Save(ctx context.Context) error
	FindFirst(ctx context.Context, q Query) (*model.Todo, error)
	FindAll(ctx context.Context, q Query) ([]*model.Todo, error)
	Count(ctx context.Context, where Predicate) (int, error)
}
