package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// NewDB opens a database handle for the given database/sql driver and
// verifies it is reachable. Failures are returned as *ConnectionError.
//
// Supported drivers are "postgres" (lib/pq), "pgx" (pgx stdlib, with SQL
// statements traced to logger at debug level) and "sqlite" (modernc.org/sqlite).
func NewDB(ctx context.Context, driver, dsn string, logger *slog.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case "pgx":
		db, err = openPgx(dsn, logger)
	case "postgres", "sqlite":
		db, err = sql.Open(driver, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}

	if driver == "sqlite" {
		// Every new connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing db", "error", closeErr)
		}
		return nil, &ConnectionError{Op: "ping", Err: err}
	}

	return db, nil
}

func openPgx(dsn string, logger *slog.Logger) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		connConfig.Tracer = &tracelog.TraceLog{
			Logger:   tracelog.LoggerFunc(slogTraceLogger(logger)),
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	return stdlib.OpenDB(*connConfig), nil
}

func slogTraceLogger(logger *slog.Logger) func(context.Context, tracelog.LogLevel, string, map[string]any) {
	return func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		attrs := make([]slog.Attr, 0, len(data))
		for k, v := range data {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.LogAttrs(ctx, traceLevel(level), msg, attrs...)
	}
}

func traceLevel(level tracelog.LogLevel) slog.Level {
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		return slog.LevelDebug
	case tracelog.LogLevelInfo:
		return slog.LevelInfo
	case tracelog.LogLevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
