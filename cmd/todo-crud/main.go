package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jaekwang-park/todo-crud/internal/config"
	"github.com/jaekwang-park/todo-crud/internal/repository"
	"github.com/jaekwang-park/todo-crud/internal/scenario"
	"github.com/jaekwang-park/todo-crud/internal/service"
)

func main() {
	// Initial logger at info level; reconfigured after config load
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(context.Background()); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.ParseLogLevel(),
	})).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	conn, err := cfg.Connection()
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"env", cfg.AppEnv,
		"driver", conn.Driver,
		"dsn", conn.Redacted(),
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Connecting to %s...\n", conn.DisplayName())

	db, err := repository.NewDB(ctx, conn.Driver, conn.DSN, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	dialect, err := repository.DialectFor(conn.Driver)
	if err != nil {
		return err
	}

	store := repository.NewTodoStore(db, dialect, logger)
	svc := service.NewTodoService(store)

	if err := scenario.Run(ctx, svc, os.Stdout); err != nil {
		return err
	}

	logger.Info("scenario finished")
	return nil
}
