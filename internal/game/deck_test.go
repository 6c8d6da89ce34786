package game

import (
	"math/rand"
	"testing"

	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeck(t *testing.T) {
	deck := BuildDeck()
	require.Len(t, deck, DeckSize)

	assert.Equal(t, card("2", models.Hearts), deck[0])
	assert.Equal(t, card("A", models.Spades), deck[DeckSize-1])

	seen := make(map[models.Card]bool)
	for _, c := range deck {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}

	for _, c := range deck {
		switch c.Rank {
		case "A":
			assert.Equal(t, 11, c.Value)
		case "10", "J", "Q", "K":
			assert.Equal(t, 10, c.Value)
		}
	}
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	a := BuildDeck()
	b := BuildDeck()
	Shuffle(a, rand.New(rand.NewSource(42)))
	Shuffle(b, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)

	c := BuildDeck()
	Shuffle(c, rand.New(rand.NewSource(43)))
	assert.NotEqual(t, a, c)
}

func TestShuffleKeepsCards(t *testing.T) {
	deck := BuildDeck()
	Shuffle(deck, rand.New(rand.NewSource(7)))
	assert.ElementsMatch(t, BuildDeck(), deck)
}

// Every card should land in every position roughly equally often.
func TestShuffleSpreadsPositions(t *testing.T) {
	const rounds = 20000
	rng := rand.New(rand.NewSource(1))
	var firstPos [DeckSize]int
	for i := 0; i < rounds; i++ {
		deck := BuildDeck()
		Shuffle(deck, rng)
		for pos, c := range deck {
			if c == card("A", models.Spades) {
				firstPos[pos]++
			}
		}
	}
	expected := rounds / DeckSize
	for pos, n := range firstPos {
		assert.InDelta(t, expected, n, float64(expected)/2, "position %d", pos)
	}
}

func TestDealTop(t *testing.T) {
	deck := models.Deck{card("K", models.Clubs), card("3", models.Hearts)}
	c, rest := DealTop(deck)
	assert.Equal(t, card("K", models.Clubs), c)
	assert.Equal(t, models.Deck{card("3", models.Hearts)}, rest)
}

func TestDealTopEmptyDeckPanics(t *testing.T) {
	assert.Panics(t, func() {
		DealTop(models.Deck{})
	})
}

func TestNewRandIndependent(t *testing.T) {
	a := BuildDeck()
	b := BuildDeck()
	Shuffle(a, NewRand())
	Shuffle(b, NewRand())
	assert.NotEqual(t, a, b)
}
