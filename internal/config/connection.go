package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

var validDrivers = map[string]bool{
	DriverPostgres: true,
	DriverPgx:      true,
	DriverSQLite:   true,
}

var passwordPattern = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// Connection is a resolved database target: a database/sql driver name and
// the DSN handed to it.
type Connection struct {
	Driver string
	DSN    string
}

// DisplayName returns the database product name.
func (c Connection) DisplayName() string {
	if c.Driver == DriverSQLite {
		return "SQLite"
	}
	return "PostgreSQL"
}

// Redacted returns the DSN with any password masked, for logging.
func (c Connection) Redacted() string {
	if c.Driver == DriverSQLite {
		return c.DSN
	}
	if u, err := url.Parse(c.DSN); err == nil && u.Scheme != "" {
		return u.Redacted()
	}
	return passwordPattern.ReplaceAllString(c.DSN, "${1}xxxxx")
}

// ParseConnectionString detects the kind of connection string s is.
//
// Accepted forms:
//   - postgres:// or postgresql:// URLs
//   - libpq keyword/value strings ("host=localhost port=5432 ...")
//   - semicolon separated strings ("Host=localhost;Port=5432;Database=appdb;...")
//   - sqlite://<path>, file:<path> and :memory: for SQLite
func ParseConnectionString(s string) (Connection, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return Connection{}, fmt.Errorf("empty CONNECTION_STRING")
	case s == ":memory:":
		return Connection{Driver: DriverSQLite, DSN: s}, nil
	case strings.HasPrefix(s, "sqlite://"):
		path := strings.TrimPrefix(s, "sqlite://")
		if path == "" {
			return Connection{}, fmt.Errorf("invalid CONNECTION_STRING: missing sqlite path")
		}
		return Connection{Driver: DriverSQLite, DSN: path}, nil
	case strings.HasPrefix(s, "file:"):
		return Connection{Driver: DriverSQLite, DSN: s}, nil
	case strings.HasPrefix(s, "postgres://"), strings.HasPrefix(s, "postgresql://"):
		if _, err := url.Parse(s); err != nil {
			return Connection{}, fmt.Errorf("invalid CONNECTION_STRING: %w", err)
		}
		return Connection{Driver: DriverPostgres, DSN: s}, nil
	case strings.Contains(s, ";"):
		db, err := parseKeyValueList(s)
		if err != nil {
			return Connection{}, err
		}
		return Connection{Driver: DriverPostgres, DSN: db.DSN()}, nil
	default:
		return Connection{Driver: DriverPostgres, DSN: s}, nil
	}
}

// parseKeyValueList converts a "Key=Value;Key=Value" connection string into
// a DBConfig. Unset keys keep DefaultDB values; unknown keys are ignored.
func parseKeyValueList(s string) (DBConfig, error) {
	db := DefaultDB

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return DBConfig{}, fmt.Errorf("invalid CONNECTION_STRING: segment %q is not key=value", part)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "host", "server":
			db.Host = value
		case "port":
			db.Port = value
		case "database", "initial catalog":
			db.Name = value
		case "username", "user id", "userid", "user":
			db.User = value
		case "password", "pwd":
			db.Password = value
		case "ssl mode", "sslmode":
			db.SSLMode = normalizeSSLMode(value)
		}
	}

	if db.Host == "" {
		return DBConfig{}, fmt.Errorf("invalid CONNECTION_STRING: empty host")
	}
	return db, nil
}

func normalizeSSLMode(v string) string {
	switch strings.ToLower(v) {
	case "verifyca", "verify-ca":
		return "verify-ca"
	case "verifyfull", "verify-full":
		return "verify-full"
	default:
		return strings.ToLower(v)
	}
}
