// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a blackjack game.
type Status string

const (
	StatusPlaying    Status = "playing"
	StatusDealerTurn Status = "dealer_turn"
	StatusFinished   Status = "finished"
)

// Active reports whether the status is non-terminal.
func (s Status) Active() bool {
	return s == StatusPlaying || s == StatusDealerTurn
}

// Result is the outcome tag of a finished game. The zero value means no result yet.
type Result string

const (
	ResultNone      Result = ""
	ResultBlackjack Result = "blackjack"
	ResultPlayerWin Result = "player_win"
	ResultDealerWin Result = "dealer_win"
	ResultPush      Result = "push"
	ResultBust      Result = "bust"
)

// SideBets holds the auxiliary wagers placed at deal time.
// They are recorded with the game; settlement is not implemented.
type SideBets struct {
	PerfectPairs       int64 `json:"perfectPairs"`
	TwentyOnePlusThree int64 `json:"twentyOnePlusThree"`
}

// Game is the full persisted state of one blackjack round, including the remaining deck.
type Game struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	BetAmount int64     `json:"bet_amount"`
	SideBets  SideBets  `json:"side_bets"`

	Status     Status `json:"status"`
	PlayerHand Hand   `json:"player_hand"`
	DealerHand Hand   `json:"dealer_hand"`
	Deck       Deck   `json:"deck"`

	// Result and ResultAmount are only meaningful once Status is finished.
	Result         Result `json:"result"`
	ResultAmount   int64  `json:"result_amount"`
	DealerRevealed bool   `json:"dealer_revealed"`

	// Version is the optimistic concurrency token. Zero means never saved.
	Version int `json:"version"`

	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Clone returns a deep copy so callers can mutate hands and deck without aliasing.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.PlayerHand = append(Hand(nil), g.PlayerHand...)
	c.DealerHand = append(Hand(nil), g.DealerHand...)
	c.Deck = append(Deck(nil), g.Deck...)
	if g.EndedAt != nil {
		t := *g.EndedAt
		c.EndedAt = &t
	}
	return &c
}
