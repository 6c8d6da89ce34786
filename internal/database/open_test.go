package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/database/sqlite"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRepositoryDrivers(t *testing.T) {
	ctx := context.Background()

	repo, closeFn, err := OpenRepository(ctx, &config.Config{StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &game.MemoryStore{}, repo)

	cfg := &config.Config{StoreDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "bj.db")}
	store, closeFn, err := OpenActionStore(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &sqlite.Store{}, store)

	_, _, err = OpenActionStore(ctx, &config.Config{StoreDriver: config.DriverMemory})
	assert.ErrorContains(t, err, "cannot persist actions")

	_, _, err = OpenRepository(ctx, &config.Config{StoreDriver: "csv"})
	assert.Error(t, err)
}
