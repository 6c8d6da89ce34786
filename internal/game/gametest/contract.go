// Package gametest holds a behavioural test suite shared by every game.Repository implementation.
package gametest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.March, 14, 18, 30, 0, 0, time.UTC)

// NewGame returns an unsaved game with fixed hands and a short deck.
func NewGame(owner uuid.UUID, status models.Status, createdAt time.Time) *models.Game {
	g := &models.Game{
		ID:        uuid.New(),
		OwnerID:   owner,
		BetAmount: 50,
		SideBets:  models.SideBets{PerfectPairs: 5, TwentyOnePlusThree: 0},
		Status:    status,
		PlayerHand: models.Hand{
			{Suit: models.Hearts, Rank: "10", Value: 10},
			{Suit: models.Spades, Rank: "7", Value: 7},
		},
		DealerHand: models.Hand{
			{Suit: models.Clubs, Rank: "K", Value: 10},
			{Suit: models.Diamonds, Rank: "A", Value: 11},
		},
		Deck: models.Deck{
			{Suit: models.Clubs, Rank: "2", Value: 2},
			{Suit: models.Hearts, Rank: "Q", Value: 10},
		},
		CreatedAt: createdAt,
	}
	if status == models.StatusFinished {
		ended := createdAt.Add(time.Minute)
		g.Result = models.ResultDealerWin
		g.DealerRevealed = true
		g.EndedAt = &ended
	}
	return g
}

// RunRepositoryContract exercises the persistence rules the engine depends on.
// Each subtest uses fresh owner ids, so open may hand back the same shared store.
func RunRepositoryContract(t *testing.T, open func(t *testing.T) game.Repository) {
	t.Run("no active game", func(t *testing.T) {
		repo := open(t)
		g, err := repo.FindActive(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Nil(t, g)
	})

	t.Run("insert round trip", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		want := NewGame(uuid.New(), models.StatusPlaying, base)
		require.NoError(t, repo.Save(ctx, want))
		assert.Equal(t, 1, want.Version)

		got, err := repo.FindActive(ctx, want.OwnerID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.OwnerID, got.OwnerID)
		assert.Equal(t, want.BetAmount, got.BetAmount)
		assert.Equal(t, want.SideBets, got.SideBets)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.PlayerHand, got.PlayerHand)
		assert.Equal(t, want.DealerHand, got.DealerHand)
		assert.Equal(t, want.Deck, got.Deck)
		assert.Equal(t, models.ResultNone, got.Result)
		assert.False(t, got.DealerRevealed)
		assert.Equal(t, 1, got.Version)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at = %s", got.CreatedAt)
		assert.Nil(t, got.EndedAt)
	})

	t.Run("find owned hides foreign and wrong status", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		g := NewGame(uuid.New(), models.StatusPlaying, base)
		require.NoError(t, repo.Save(ctx, g))

		_, err := repo.FindOwned(ctx, g.OwnerID, g.ID, models.StatusPlaying)
		require.NoError(t, err)

		_, err = repo.FindOwned(ctx, uuid.New(), g.ID, models.StatusPlaying)
		assert.ErrorIs(t, err, game.ErrGameNotFound)
		_, err = repo.FindOwned(ctx, g.OwnerID, g.ID, models.StatusFinished)
		assert.ErrorIs(t, err, game.ErrGameNotFound)
		_, err = repo.FindOwned(ctx, g.OwnerID, uuid.New(), models.StatusPlaying)
		assert.ErrorIs(t, err, game.ErrGameNotFound)
	})

	t.Run("one active game per owner", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		owner := uuid.New()
		first := NewGame(owner, models.StatusPlaying, base)
		require.NoError(t, repo.Save(ctx, first))

		second := NewGame(owner, models.StatusPlaying, base.Add(time.Second))
		err := repo.Save(ctx, second)
		var active *game.ActiveGameError
		require.ErrorAs(t, err, &active)
		assert.Equal(t, first.ID, active.GameID)
		assert.Equal(t, 0, second.Version)

		done := NewGame(owner, models.StatusFinished, base.Add(2*time.Second))
		require.NoError(t, repo.Save(ctx, done), "finished games never conflict")
	})

	t.Run("update is version checked", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		g := NewGame(uuid.New(), models.StatusPlaying, base)
		require.NoError(t, repo.Save(ctx, g))

		loaded, err := repo.FindOwned(ctx, g.OwnerID, g.ID, models.StatusPlaying)
		require.NoError(t, err)
		stale := loaded.Clone()

		ended := base.Add(90 * time.Second)
		loaded.Status = models.StatusFinished
		loaded.Result = models.ResultPlayerWin
		loaded.ResultAmount = 100
		loaded.DealerRevealed = true
		loaded.EndedAt = &ended
		loaded.PlayerHand = append(loaded.PlayerHand, models.Card{Suit: models.Clubs, Rank: "2", Value: 2})
		loaded.Deck = loaded.Deck[1:]
		require.NoError(t, repo.Save(ctx, loaded))
		assert.Equal(t, 2, loaded.Version)

		stale.PlayerHand = append(stale.PlayerHand, models.Card{Suit: models.Hearts, Rank: "9", Value: 9})
		assert.ErrorIs(t, repo.Save(ctx, stale), game.ErrStaleGame)

		got, err := repo.FindOwned(ctx, g.OwnerID, g.ID, models.StatusFinished)
		require.NoError(t, err)
		assert.Equal(t, models.ResultPlayerWin, got.Result)
		assert.Equal(t, int64(100), got.ResultAmount)
		assert.True(t, got.DealerRevealed)
		require.NotNil(t, got.EndedAt)
		assert.True(t, ended.Equal(*got.EndedAt))
		assert.Len(t, got.PlayerHand, 3)
		assert.Len(t, got.Deck, 1)

		active, err := repo.FindActive(ctx, g.OwnerID)
		require.NoError(t, err)
		assert.Nil(t, active)
	})

	t.Run("update of unknown game is stale", func(t *testing.T) {
		repo := open(t)
		g := NewGame(uuid.New(), models.StatusPlaying, base)
		g.Version = 3
		assert.ErrorIs(t, repo.Save(context.Background(), g), game.ErrStaleGame)
	})

	t.Run("list finished newest first", func(t *testing.T) {
		repo := open(t)
		ctx := context.Background()
		owner := uuid.New()
		var ids []uuid.UUID
		for i := 0; i < 3; i++ {
			g := NewGame(owner, models.StatusFinished, base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, repo.Save(ctx, g))
			ids = append(ids, g.ID)
		}
		require.NoError(t, repo.Save(ctx, NewGame(owner, models.StatusPlaying, base.Add(5*time.Hour))))
		require.NoError(t, repo.Save(ctx, NewGame(uuid.New(), models.StatusFinished, base)))

		games, err := repo.ListFinished(ctx, owner, 2)
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, ids[2], games[0].ID)
		assert.Equal(t, ids[1], games[1].ID)

		all, err := repo.ListFinished(ctx, owner, 50)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		none, err := repo.ListFinished(ctx, uuid.New(), 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
