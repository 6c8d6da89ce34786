package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/game/gametest"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "blackjack.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStoreContract(t *testing.T) {
	gametest.RunRepositoryContract(t, func(t *testing.T) game.Repository {
		return openTempStore(t)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	store, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	gametest.RunRepositoryContract(t, func(t *testing.T) game.Repository {
		return store
	})
}

func TestReopenKeepsGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	g := gametest.NewGame(uuid.New(), models.StatusPlaying, time.Now().Truncate(time.Millisecond))
	require.NoError(t, store.Save(ctx, g))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.FindActive(ctx, g.OwnerID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, g.Deck, got.Deck)
}

func TestEngineOverStore(t *testing.T) {
	store := openTempStore(t)
	engine := game.NewEngine(store)
	ctx := context.Background()
	owner := uuid.New()

	g, err := engine.Deal(ctx, owner, game.DealRequest{Bet: 20})
	require.NoError(t, err)
	for g.Status == models.StatusPlaying {
		g, err = engine.Stand(ctx, owner, g.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, models.StatusFinished, g.Status)
	assert.Len(t, g.Deck, game.DeckSize-len(g.PlayerHand)-len(g.DealerHand))

	history, err := engine.History(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, g.ID, history[0].ID)
	assert.Equal(t, g.Result, history[0].Result)
}

func TestConcurrentDealsLeaveOneActiveGame(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	owner := uuid.New()

	// no lock here; the partial unique index alone has to reject the losers
	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := gametest.NewGame(owner, models.StatusPlaying, time.Now())
			results <- store.Save(ctx, g)
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		var active *game.ActiveGameError
		switch {
		case err == nil:
			ok++
		case assert.ErrorAs(t, err, &active):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, conflicts)
}

func TestInsertActionsIgnoresDuplicates(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	rec := models.ActionRecord{
		GameID:        uuid.New(),
		ActionIndex:   1,
		ActorUserID:   uuid.New(),
		ActionType:    "deal",
		ActionPayload: map[string]interface{}{"status": "playing"},
		Timestamp:     time.Now().UnixMilli(),
	}
	hit := rec
	hit.ActionIndex = 2
	hit.ActionType = "hit"

	require.NoError(t, store.InsertActions(ctx, []models.ActionRecord{rec, hit}))
	require.NoError(t, store.InsertActions(ctx, []models.ActionRecord{hit}))
	require.NoError(t, store.InsertActions(ctx, nil))

	var count int
	require.NoError(t, store.sqlDB.QueryRowContext(ctx,
		`SELECT count(*) FROM blackjack_actions WHERE game_id = ?`, rec.GameID.String(),
	).Scan(&count))
	assert.Equal(t, 2, count)

	var payload string
	require.NoError(t, store.sqlDB.QueryRowContext(ctx,
		`SELECT action_payload FROM blackjack_actions WHERE game_id = ? AND action_index = 1`, rec.GameID.String(),
	).Scan(&payload))
	assert.JSONEq(t, `{"status":"playing"}`, payload)
}
