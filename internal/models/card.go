// internal/models/card.go
package models

// Suit symbols as stored.
const (
	Hearts   = "♥"
	Diamonds = "♦"
	Clubs    = "♣"
	Spades   = "♠"
)

// Card is an immutable playing card. Value is the nominal blackjack value with aces at 11.
type Card struct {
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

// IsAce reports whether the card is an ace.
func (c Card) IsAce() bool {
	return c.Rank == "A"
}

// Color is the display color of the suit. It is never persisted.
func (c Card) Color() string {
	switch c.Suit {
	case Hearts, Diamonds:
		return "red"
	default:
		return "black"
	}
}

func (c Card) String() string {
	return c.Rank + c.Suit
}

// Hand is an ordered list of cards held by the player or dealer.
type Hand []Card

// Deck is the remaining shoe. Index 0 is the next card dealt.
type Deck []Card
