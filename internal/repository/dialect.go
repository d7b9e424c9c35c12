package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the SQL that differs between database engines.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	ColumnDefinition(c Column) string
	// Contains renders a case-sensitive substring test of column against
	// the bound parameter placeholder.
	Contains(column, placeholder string) string
}

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// DialectFor returns the dialect spoken by a database/sql driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("no dialect for driver %q", driver)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) Contains(column, placeholder string) string {
	return fmt.Sprintf("strpos(%s, %s) > 0", column, placeholder)
}

func (postgresDialect) ColumnDefinition(c Column) string {
	var b strings.Builder
	b.WriteString(c.Name)

	switch {
	case c.Generated:
		b.WriteString(" BIGINT GENERATED BY DEFAULT AS IDENTITY")
	case c.Type == TypeInteger:
		b.WriteString(" BIGINT")
	case c.Type == TypeText && c.MaxLength > 0:
		fmt.Fprintf(&b, " VARCHAR(%d)", c.MaxLength)
	case c.Type == TypeText:
		b.WriteString(" TEXT")
	case c.Type == TypeBoolean:
		b.WriteString(" BOOLEAN")
	case c.Type == TypeTimestamp:
		b.WriteString(" TIMESTAMPTZ")
	}

	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	} else if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT " + c.Default)
	}
	return b.String()
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Contains(column, placeholder string) string {
	return fmt.Sprintf("instr(%s, %s) > 0", column, placeholder)
}

func (sqliteDialect) ColumnDefinition(c Column) string {
	var b strings.Builder
	b.WriteString(c.Name)

	// AUTOINCREMENT keeps deleted ids from being handed out again.
	if c.Generated {
		b.WriteString(" INTEGER PRIMARY KEY AUTOINCREMENT")
		return b.String()
	}

	switch c.Type {
	case TypeInteger:
		b.WriteString(" INTEGER")
	case TypeText:
		b.WriteString(" TEXT")
	case TypeBoolean:
		b.WriteString(" BOOLEAN")
	case TypeTimestamp:
		b.WriteString(" DATETIME")
	}

	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	} else if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT " + c.Default)
	}
	if c.Type == TypeText && c.MaxLength > 0 {
		fmt.Fprintf(&b, " CHECK (length(%s) <= %d)", c.Name, c.MaxLength)
	}
	return b.String()
}
