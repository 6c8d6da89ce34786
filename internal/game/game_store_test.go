package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreOneActiveGame(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	owner := uuid.New()

	first := playingGame()
	first.OwnerID = owner
	require.NoError(t, s.Save(ctx, first))
	assert.Equal(t, 1, first.Version)

	second := playingGame()
	second.OwnerID = owner
	err := s.Save(ctx, second)
	var active *ActiveGameError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, first.ID, active.GameID)

	found, err := s.FindActive(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	none, err := s.FindActive(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryStoreFindOwned(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	g := playingGame()
	require.NoError(t, s.Save(ctx, g))

	_, err := s.FindOwned(ctx, g.OwnerID, g.ID, models.StatusPlaying)
	assert.NoError(t, err)

	_, err = s.FindOwned(ctx, uuid.New(), g.ID, models.StatusPlaying)
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = s.FindOwned(ctx, g.OwnerID, g.ID, models.StatusFinished)
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = s.FindOwned(ctx, g.OwnerID, uuid.New(), models.StatusPlaying)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	g := playingGame()
	require.NoError(t, s.Save(ctx, g))

	loaded, err := s.FindOwned(ctx, g.OwnerID, g.ID, models.StatusPlaying)
	require.NoError(t, err)
	loaded.PlayerHand[0] = card("2", models.Clubs)
	loaded.Deck = loaded.Deck[:0]

	again, err := s.FindOwned(ctx, g.OwnerID, g.ID, models.StatusPlaying)
	require.NoError(t, err)
	assert.Equal(t, card("A", models.Hearts), again.PlayerHand[0])
	assert.Len(t, again.Deck, 1)
}

func TestMemoryStoreListFinished(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		g := playingGame()
		g.OwnerID = owner
		g.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		finish(g, models.ResultPush, g.BetAmount, g.CreatedAt)
		require.NoError(t, s.Save(ctx, g))
	}
	active := playingGame()
	active.OwnerID = owner
	require.NoError(t, s.Save(ctx, active))

	games, err := s.ListFinished(ctx, owner, 3)
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, base.Add(3*time.Hour), games[0].CreatedAt)
	for _, g := range games {
		assert.Equal(t, models.StatusFinished, g.Status)
	}
}
