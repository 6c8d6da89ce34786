// internal/game/deck.go
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"

	"github.com/jason-s-yu/blackjack/internal/models"
)

var (
	suits = []string{models.Hearts, models.Diamonds, models.Clubs, models.Spades}
	ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

	values = map[string]int{
		"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9,
		"10": 10, "J": 10, "Q": 10, "K": 10, "A": 11,
	}
)

// DeckSize is the number of cards in a single standard deck.
const DeckSize = 52

// BuildDeck returns the 52 cards in suit x rank order.
func BuildDeck() models.Deck {
	deck := make(models.Deck, 0, DeckSize)
	for _, suit := range suits {
		for _, rank := range ranks {
			deck = append(deck, models.Card{Suit: suit, Rank: rank, Value: values[rank]})
		}
	}
	return deck
}

// Shuffle permutes the deck in place with Fisher-Yates using rng.
func Shuffle(deck models.Deck, rng *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// DealTop removes and returns the top card. Dealing from an empty deck is a
// programming error and panics.
func DealTop(deck models.Deck) (models.Card, models.Deck) {
	if len(deck) == 0 {
		panic("blackjack: deal from empty deck")
	}
	return deck[0], deck[1:]
}

// NewRand returns a generator seeded from crypto/rand, so every game gets an independent stream.
func NewRand() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("blackjack: read random seed: " + err.Error())
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
}
