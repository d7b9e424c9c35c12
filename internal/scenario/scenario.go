// Package scenario runs the fixed sequence of todo operations and reports
// each step on an output stream.
package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jaekwang-park/todo-crud/internal/model"
	"github.com/jaekwang-park/todo-crud/internal/repository"
	"github.com/jaekwang-park/todo-crud/internal/service"
)

// Service is the subset of service.TodoService the scenario drives.
type Service interface {
	EnsureSchema(ctx context.Context) error
	AddOne(ctx context.Context, title string) (*model.Todo, error)
	AddMany(ctx context.Context, inputs []service.CreateTodoInput) ([]*model.Todo, error)
	CompleteByTitle(ctx context.Context, title string) (*model.Todo, error)
	CompleteMatching(ctx context.Context, where repository.Predicate) (int, error)
	DeleteByTitle(ctx context.Context, title string) (*model.Todo, error)
	DeleteDone(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	FirstOpen(ctx context.Context) (*model.Todo, error)
	ListOpen(ctx context.Context) ([]*model.Todo, error)
}

var _ Service = (*service.TodoService)(nil)

// Run executes every step in order and stops at the first error.
func Run(ctx context.Context, svc Service, out io.Writer) error {
	if err := svc.EnsureSchema(ctx); err != nil {
		return err
	}

	one, err := svc.AddOne(ctx, "Buy milk")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added one: id=%d\n", one.ID)

	batch, err := svc.AddMany(ctx, []service.CreateTodoInput{
		{Title: "Write report"},
		{Title: "Read book"},
		{Title: "Do workout"},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added many: %d\n", len(batch))

	updated, err := svc.CompleteByTitle(ctx, "Buy milk")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated one: id=%d -> is_done=true\n", updated.ID)

	n, err := svc.CompleteMatching(ctx, repository.Or(
		repository.TitleContains("Read"),
		repository.TitleContains("Write"),
	))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated many: %d\n", n)

	deleted, err := svc.DeleteByTitle(ctx, "Do workout")
	if err != nil {
		return err
	}
	if deleted != nil {
		fmt.Fprintf(out, "Deleted one: id=%d\n", deleted.ID)
	}

	n, err = svc.DeleteDone(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted many (is_done=true): %d\n", n)

	total, err := svc.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Count: %d\n", total)

	if _, err := svc.AddMany(ctx, []service.CreateTodoInput{
		{Title: "Task A"},
		{Title: "Task B"},
		{Title: "Task C", IsDone: true},
	}); err != nil {
		return err
	}

	first, err := svc.FirstOpen(ctx)
	if err != nil {
		return err
	}
	if first == nil {
		fmt.Fprintln(out, "First open: not found")
	} else {
		fmt.Fprintf(out, "First open: id=%d, title=%s\n", first.ID, first.Title)
	}

	open, err := svc.ListOpen(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Open items (%d): %s\n", len(open), formatList(open))

	fmt.Fprintln(out, "Done.")
	return nil
}

func formatList(todos []*model.Todo) string {
	items := make([]string, len(todos))
	for i, t := range todos {
		items[i] = fmt.Sprintf("#%d:%s", t.ID, t.Title)
	}
	return strings.Join(items, ", ")
}
