package repository

import (
	"fmt"
	"strings"
)

// Field names a filterable or sortable todos column.
type Field string

const (
	FieldID        Field = "id"
	FieldTitle     Field = "title"
	FieldIsDone    Field = "is_done"
	FieldCreatedAt Field = "created_at"
)

func (f Field) valid() bool {
	switch f {
	case FieldID, FieldTitle, FieldIsDone, FieldCreatedAt:
		return true
	}
	return false
}

// Predicate is a boolean condition over Todo fields. Predicates are built
// with TitleEquals, TitleContains, IsDone, And, Or and Not, and rendered to
// SQL with bound parameters when a query runs.
type Predicate interface {
	render(b *builder) string
}

type titleEquals string

func (p titleEquals) render(b *builder) string {
	return fmt.Sprintf("%s = %s", FieldTitle, b.bind(string(p)))
}

type titleContains string

func (p titleContains) render(b *builder) string {
	return b.dialect.Contains(string(FieldTitle), b.bind(string(p)))
}

type isDone bool

func (p isDone) render(b *builder) string {
	return fmt.Sprintf("%s = %s", FieldIsDone, b.bind(bool(p)))
}

type not struct{ p Predicate }

func (p not) render(b *builder) string {
	return "NOT (" + p.p.render(b) + ")"
}

type junction struct {
	op    string
	preds []Predicate
}

func (j junction) render(b *builder) string {
	if len(j.preds) == 0 {
		if j.op == "AND" {
			return "1 = 1"
		}
		return "1 = 0"
	}
	parts := make([]string, len(j.preds))
	for i, p := range j.preds {
		parts[i] = "(" + p.render(b) + ")"
	}
	return strings.Join(parts, " "+j.op+" ")
}

func TitleEquals(title string) Predicate { return titleEquals(title) }

// TitleContains matches titles containing substr. The match is case-sensitive.
func TitleContains(substr string) Predicate { return titleContains(substr) }

func IsDone(done bool) Predicate { return isDone(done) }

func Not(p Predicate) Predicate { return not{p: p} }

// And matches when every predicate matches; an empty And matches everything.
func And(preds ...Predicate) Predicate { return junction{op: "AND", preds: preds} }

// Or matches when any predicate matches; an empty Or matches nothing.
func Or(preds ...Predicate) Predicate { return junction{op: "OR", preds: preds} }

type Order struct {
	Field Field
	Desc  bool
}

func Asc(f Field) Order  { return Order{Field: f} }
func Desc(f Field) Order { return Order{Field: f, Desc: true} }

// Query describes a filtered, ordered read of the todos table.
// A nil Where matches all rows, an empty OrderBy sorts by ascending id and a
// zero Limit returns every match.
type Query struct {
	Where   Predicate
	OrderBy []Order
	Limit   int
}

// Where returns a Query filtered by p with the default ordering.
func Where(p Predicate) Query {
	return Query{Where: p}
}

type builder struct {
	dialect Dialect
	args    []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

const todoColumns = "id, title, is_done, created_at"

func buildSelect(d Dialect, table string, q Query) (string, []any, error) {
	b := &builder{dialect: d}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", todoColumns, table)
	if q.Where != nil {
		sb.WriteString(" WHERE " + q.Where.render(b))
	}

	orders := q.OrderBy
	if len(orders) == 0 {
		orders = []Order{Asc(FieldID)}
	}
	terms := make([]string, len(orders))
	for i, o := range orders {
		if !o.Field.valid() {
			return "", nil, fmt.Errorf("invalid order field %q", o.Field)
		}
		terms[i] = string(o.Field)
		if o.Desc {
			terms[i] += " DESC"
		}
	}
	sb.WriteString(" ORDER BY " + strings.Join(terms, ", "))

	if q.Limit < 0 {
		return "", nil, fmt.Errorf("invalid limit %d", q.Limit)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + b.bind(q.Limit))
	}

	return sb.String(), b.args, nil
}

func buildCount(d Dialect, table string, where Predicate) (string, []any) {
	b := &builder{dialect: d}
	query := "SELECT COUNT(*) FROM " + table
	if where != nil {
		query += " WHERE " + where.render(b)
	}
	return query, b.args
}
