package repository

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jaekwang-park/todo-crud/internal/model"
)

type entry struct {
	todo     *model.Todo
	original model.Todo
}

// TodoStore implements TodoRepository on a *sql.DB. It keeps an identity map
// of every record it has loaded or inserted so that repeated reads return the
// same *model.Todo and in-memory edits are detected on Save.
//
// A TodoStore is not safe for concurrent use.
type TodoStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger

	tracked map[int64]*entry
	added   []*model.Todo
	removed []*model.Todo
}

func NewTodoStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *TodoStore {
	return &TodoStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
		tracked: make(map[int64]*entry),
	}
}

func (s *TodoStore) EnsureSchema(ctx context.Context) error {
	const op = "ensure schema"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range CreateStatements(s.dialect, TodosTable) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return classify(op, fmt.Errorf("failed to create schema: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}

	s.logger.Debug("schema ensured", "table", TodosTable.Name, "dialect", s.dialect.Name())
	return nil
}

// Add stages todo for insertion. Records that already have an id, nil
// records and records staged twice are ignored.
func (s *TodoStore) Add(todo *model.Todo) {
	if todo == nil || todo.ID != 0 || slices.Contains(s.added, todo) {
		return
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = model.Now()
	}
	s.added = append(s.added, todo)
}

func (s *TodoStore) AddMany(todos []*model.Todo) {
	for _, t := range todos {
		s.Add(t)
	}
}

// Remove stages todo for deletion. Removing a record that is only staged for
// insertion un-stages it.
func (s *TodoStore) Remove(todo *model.Todo) {
	if todo == nil {
		return
	}
	if i := slices.Index(s.added, todo); i >= 0 {
		s.added = slices.Delete(s.added, i, i+1)
		return
	}
	if todo.ID == 0 || slices.Contains(s.removed, todo) {
		return
	}
	s.removed = append(s.removed, todo)
}

func (s *TodoStore) RemoveMany(todos []*model.Todo) {
	for _, t := range todos {
		s.Remove(t)
	}
}

// HasChanges reports whether Save has anything to write.
func (s *TodoStore) HasChanges() bool {
	return len(s.added) > 0 || len(s.removed) > 0 || len(s.modified()) > 0
}

// Save writes all staged inserts, updates and deletes in one transaction.
// Generated ids are assigned to inserted records only after the commit.
func (s *TodoStore) Save(ctx context.Context) error {
	const op = "save todos"

	modified := s.modified()
	if len(s.added) == 0 && len(modified) == 0 && len(s.removed) == 0 {
		return nil
	}

	for _, t := range s.added {
		if err := t.Validate(); err != nil {
			return validationError(op, err)
		}
	}
	for _, e := range modified {
		if err := e.todo.Validate(); err != nil {
			return validationError(op, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, len(s.added))
	for i, t := range s.added {
		id, err := s.insertRow(ctx, tx, t)
		if err != nil {
			return classify(op, err)
		}
		ids[i] = id
	}

	for _, e := range modified {
		if err := s.updateRow(ctx, tx, e); err != nil {
			return classify(op, err)
		}
	}

	removedIDs := make([]int64, len(s.removed))
	for i, t := range s.removed {
		removedIDs[i] = s.idOf(t)
		if err := s.deleteRow(ctx, tx, removedIDs[i]); err != nil {
			return classify(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}

	for i, t := range s.added {
		t.ID = ids[i]
		s.tracked[t.ID] = &entry{todo: t, original: *t}
	}
	for _, e := range modified {
		e.original = *e.todo
	}
	for _, id := range removedIDs {
		delete(s.tracked, id)
	}

	s.logger.Debug("todos saved",
		"inserted", len(s.added),
		"updated", len(modified),
		"deleted", len(removedIDs),
	)

	s.added = nil
	s.removed = nil
	return nil
}

func (s *TodoStore) FindFirst(ctx context.Context, q Query) (*model.Todo, error) {
	q.Limit = 1
	todos, err := s.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(todos) == 0 {
		return nil, nil
	}
	return todos[0], nil
}

func (s *TodoStore) FindAll(ctx context.Context, q Query) ([]*model.Todo, error) {
	const op = "query todos"

	query, args, err := buildSelect(s.dialect, TodosTable.Name, q)
	if err != nil {
		return nil, &PersistenceError{Op: op, Code: CodeQuery, Message: describe(CodeQuery, "", ""), Err: err}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, fmt.Errorf("failed to list todos: %w", err))
	}
	defer rows.Close()

	var loaded []model.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		loaded = append(loaded, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, fmt.Errorf("failed to iterate todos: %w", err))
	}

	todos := make([]*model.Todo, len(loaded))
	for i, t := range loaded {
		todos[i] = s.attach(t)
	}
	return todos, nil
}

func (s *TodoStore) Count(ctx context.Context, where Predicate) (int, error) {
	query, args := buildCount(s.dialect, TodosTable.Name, where)

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count todos", fmt.Errorf("failed to count todos: %w", err))
	}
	return int(n), nil
}

func (s *TodoStore) insertRow(ctx context.Context, tx *sql.Tx, t *model.Todo) (int64, error) {
	query := fmt.Sprintf(
		"INSERT INTO %s (title, is_done, created_at) VALUES (%s, %s, %s) RETURNING id",
		TodosTable.Name, s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
	)

	var id int64
	if err := tx.QueryRowContext(ctx, query, t.Title, t.IsDone, t.CreatedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert todo %q: %w", t.Title, err)
	}
	return id, nil
}

func (s *TodoStore) updateRow(ctx context.Context, tx *sql.Tx, e *entry) error {
	query := fmt.Sprintf(
		"UPDATE %s SET title = %s, is_done = %s WHERE id = %s",
		TodosTable.Name, s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
	)

	result, err := tx.ExecContext(ctx, query, e.todo.Title, e.todo.IsDone, e.original.ID)
	if err != nil {
		return fmt.Errorf("failed to update todo %d: %w", e.original.ID, err)
	}
	return expectOneRow(result, "update", e.original.ID)
}

func (s *TodoStore) deleteRow(ctx context.Context, tx *sql.Tx, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", TodosTable.Name, s.dialect.Placeholder(1))

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo %d: %w", id, err)
	}
	return expectOneRow(result, "delete", id)
}

func expectOneRow(result sql.Result, op string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &PersistenceError{
			Op:      op + " todo",
			Code:    CodeMissingRow,
			Message: describe(CodeMissingRow, "", ""),
			Err:     fmt.Errorf("todo %d: %w", id, sql.ErrNoRows),
		}
	}
	return nil
}

// modified returns tracked records whose title or completion flag changed
// since they were loaded or last saved, ordered by id.
func (s *TodoStore) modified() []*entry {
	var out []*entry
	for _, e := range s.tracked {
		if slices.Contains(s.removed, e.todo) {
			continue
		}
		if e.todo.Title != e.original.Title || e.todo.IsDone != e.original.IsDone {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *entry) int {
		return cmp.Compare(a.original.ID, b.original.ID)
	})
	return out
}

// idOf returns the id a record was loaded with, ignoring in-memory edits.
func (s *TodoStore) idOf(t *model.Todo) int64 {
	for id, e := range s.tracked {
		if e.todo == t {
			return id
		}
	}
	return t.ID
}

// attach returns the tracked instance for t, tracking t if it is new.
func (s *TodoStore) attach(t model.Todo) *model.Todo {
	if e, ok := s.tracked[t.ID]; ok {
		return e.todo
	}
	p := &t
	s.tracked[t.ID] = &entry{todo: p, original: t}
	return p
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTodo(row scannable) (model.Todo, error) {
	var t model.Todo
	err := row.Scan(&t.ID, &t.Title, &t.IsDone, timeValue{&t.CreatedAt})
	if err != nil {
		return model.Todo{}, fmt.Errorf("failed to scan todo: %w", err)
	}
	return t, nil
}

// sqliteTimeLayouts are the text forms SQLite may hand back for DATETIME.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// timeValue scans a timestamp column into UTC whether the driver returns a
// time.Time or text.
type timeValue struct{ t *time.Time }

func (v timeValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		*v.t = s.UTC()
		return nil
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (v timeValue) parse(s string) error {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*v.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparsable timestamp %q", s)
}

// ensure compile-time interface compliance
var _ TodoRepository = (*TodoStore)(nil)
