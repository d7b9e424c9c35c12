package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors matched with errors.Is against *ConnectionError and
// *PersistenceError.
var (
	ErrConnection  = errors.New("connection error")
	ErrPersistence = errors.New("persistence error")
)

// ConnectionError reports that the database could not be reached or refused
// the credentials.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: database unreachable: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// Code classifies a PersistenceError.
type Code string

const (
	CodeNotNull    Code = "not_null"
	CodeTooLong    Code = "too_long"
	CodeUnique     Code = "unique"
	CodeCheck      Code = "check"
	CodeMissingRow Code = "missing_row"
	CodeQuery      Code = "query"
)

// PersistenceError reports a constraint violation or a failed statement on
// an established connection.
type PersistenceError struct {
	Op      string
	Code    Code
	Column  string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// classify wraps a driver error as *ConnectionError or *PersistenceError.
// Errors that are already classified are returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrPersistence) {
		return err
	}
	if isConnectionFailure(err) {
		return &ConnectionError{Op: op, Err: err}
	}

	code, column := constraintOf(err)
	return &PersistenceError{
		Op:      op,
		Code:    code,
		Column:  column,
		Message: describe(code, column, ""),
		Err:     err,
	}
}

// connectionClasses are the SQLSTATE classes raised before a session is
// usable: connection exception, invalid authorization, invalid catalog name
// and operator intervention.
var connectionClasses = map[string]bool{
	"08": true,
	"28": true,
	"3D": true,
	"57": true,
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return connectionClasses[string(pqErr.Code.Class())]
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && connectionClasses[pgErr.Code[:2]]
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB:
			return true
		}
	}

	return false
}

// constraintOf extracts the violated constraint kind and column from a
// PostgreSQL or SQLite error.
func constraintOf(err error) (Code, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return sqlStateCode(string(pqErr.Code)), pqErr.Column
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return sqlStateCode(pgErr.Code), pgErr.ColumnName
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := sqliteErr.Error()
		switch {
		case sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_NOTNULL, strings.Contains(msg, "NOT NULL constraint"):
			return CodeNotNull, sqliteColumn(msg)
		case sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			strings.Contains(msg, "UNIQUE constraint"):
			return CodeUnique, sqliteColumn(msg)
		default:
			return CodeCheck, ""
		}
	}

	return CodeQuery, ""
}

func sqlStateCode(state string) Code {
	switch state {
	case "23502":
		return CodeNotNull
	case "23505":
		return CodeUnique
	case "23514":
		return CodeCheck
	case "22001":
		return CodeTooLong
	default:
		return CodeQuery
	}
}

// sqliteColumn parses the column out of messages such as
// "NOT NULL constraint failed: todos.title".
func sqliteColumn(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	after, _, _ := strings.Cut(msg[i+len(marker):], " ")
	after, _, _ = strings.Cut(after, ",")
	if dot := strings.LastIndexByte(after, '.'); dot >= 0 {
		after = after[dot+1:]
	}
	return strings.TrimRight(after, ")")
}

// validationError converts the result of model.Todo.Validate.
func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &PersistenceError{Op: op, Code: CodeCheck, Message: describe(CodeCheck, "", ""), Err: err}
	}

	fe := verrs[0]
	code := CodeCheck
	switch fe.Tag() {
	case "required":
		code = CodeNotNull
	case "max":
		code = CodeTooLong
	}
	column := snakeCase(fe.Field())

	return &PersistenceError{
		Op:      op,
		Code:    code,
		Column:  column,
		Message: describe(code, column, fe.Param()),
		Err:     err,
	}
}

func describe(code Code, column, limit string) string {
	field := humanize(column)
	if field == "" {
		field = "value"
	}

	switch code {
	case CodeNotNull:
		return fmt.Sprintf("the %s is required", field)
	case CodeTooLong:
		if limit != "" {
			return fmt.Sprintf("the %s exceeds %s characters", field, limit)
		}
		return fmt.Sprintf("the %s is too long", field)
	case CodeUnique:
		return fmt.Sprintf("a todo with this %s already exists", field)
	case CodeCheck:
		return fmt.Sprintf("the %s does not meet required conditions", field)
	case CodeMissingRow:
		return "the todo no longer exists"
	default:
		return "statement failed"
	}
}

// humanize turns "created_at" into "Created At".
func humanize(column string) string {
	if column == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(column, "_", " "))
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
