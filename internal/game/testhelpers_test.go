package game

import (
	"math/rand"

	"github.com/jason-s-yu/blackjack/internal/models"
)

// card builds a card with its blackjack value.
func card(rank, suit string) models.Card {
	return models.Card{Suit: suit, Rank: rank, Value: values[rank]}
}

func hand(cards ...models.Card) models.Hand {
	return models.Hand(cards)
}

// stackDeck returns a shuffle func that moves top to the front of the deck in order
// and leaves the remaining cards in canonical order.
func stackDeck(top ...models.Card) func(models.Deck, *rand.Rand) {
	return func(deck models.Deck, _ *rand.Rand) {
		picked := make(map[models.Card]bool, len(top))
		for _, c := range top {
			picked[c] = true
		}
		out := make(models.Deck, 0, len(deck))
		out = append(out, top...)
		for _, c := range deck {
			if !picked[c] {
				out = append(out, c)
			}
		}
		copy(deck, out)
	}
}

func seeded(seed int64) func() *rand.Rand {
	return func() *rand.Rand {
		return rand.New(rand.NewSource(seed))
	}
}

// isPartition reports whether deck and both hands hold each of the 52 cards exactly once.
func isPartition(g *models.Game) bool {
	seen := make(map[models.Card]int, DeckSize)
	for _, c := range g.Deck {
		seen[c]++
	}
	for _, c := range g.PlayerHand {
		seen[c]++
	}
	for _, c := range g.DealerHand {
		seen[c]++
	}
	if len(seen) != DeckSize {
		return false
	}
	for _, c := range BuildDeck() {
		if seen[c] != 1 {
			return false
		}
	}
	return true
}
