package repository

import (
	"fmt"
	"strings"

	"github.com/jaekwang-park/todo-crud/internal/model"
)

type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeText
	TypeBoolean
	TypeTimestamp
)

// Column describes one table column independently of the SQL dialect.
type Column struct {
	Name       string
	Type       ColumnType
	MaxLength  int
	NotNull    bool
	PrimaryKey bool
	// Generated columns are assigned by the database on insert and never reused.
	Generated bool
	// Default is a literal SQL expression understood by every dialect.
	Default string
}

type Index struct {
	Name    string
	Columns []string
}

type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// TodosTable is the schema backing model.Todo.
var TodosTable = Table{
	Name: "todos",
	Columns: []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true, Generated: true, NotNull: true},
		{Name: "title", Type: TypeText, MaxLength: model.TitleMaxLength, NotNull: true},
		{Name: "is_done", Type: TypeBoolean, NotNull: true, Default: "FALSE"},
		{Name: "created_at", Type: TypeTimestamp, NotNull: true},
	},
	Indexes: []Index{
		{Name: "idx_todos_is_done", Columns: []string{"is_done"}},
	},
}

// CreateStatements renders the idempotent DDL for t.
func CreateStatements(d Dialect, t Table) []string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, d.ColumnDefinition(c))
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t")),
	}
	for _, ix := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			ix.Name, t.Name, strings.Join(ix.Columns, ", ")))
	}
	return stmts
}
