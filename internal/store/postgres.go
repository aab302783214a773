// ABOUTME: Postgres-backed store constructor using the pgx stdlib driver
// ABOUTME: Runs embedded goose migrations before handing out the pool

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/cergworks/cergdb/internal/store/migrations"
)

// NewPostgresStore connects to Postgres, runs schema migrations and returns
// the store. The pool is capped at maxPoolConns; requests block when the
// pool is exhausted.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(maxPoolConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("Postgres store initialized")
	return &SQLStore{
		db:      db,
		dialect: postgresDialect,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
