package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// ConnectDB opens a pgx pool for cfg and pings it before returning.
func ConnectDB(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	return Connect(ctx, cfg.ConnString())
}

// Connect opens a pgx pool for a full connection string.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     poolCfg.ConnConfig.Host,
		"database": poolCfg.ConnConfig.Database,
	}).Info("connected to database")
	return pool, nil
}

// EnsureSchema creates the blackjack tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
