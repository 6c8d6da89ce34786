package database

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/database/sqlite"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// ActionStore is a repository that also keeps the action log. Both SQL stores implement it.
type ActionStore interface {
	game.Repository
	InsertActions(ctx context.Context, records []models.ActionRecord) error
}

var (
	_ ActionStore = (*GameRepository)(nil)
	_ ActionStore = (*sqlite.Store)(nil)
)

// OpenRepository opens the store selected by STORE_DRIVER. The returned func releases it.
func OpenRepository(ctx context.Context, cfg *config.Config) (game.Repository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := ConnectDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return NewGameRepository(pool), pool.Close, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.DriverMemory:
		return game.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenActionStore is OpenRepository restricted to drivers that persist the action log.
func OpenActionStore(ctx context.Context, cfg *config.Config) (ActionStore, func(), error) {
	repo, closeFn, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, ok := repo.(ActionStore)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("store driver %q cannot persist actions", cfg.StoreDriver)
	}
	return store, closeFn, nil
}
