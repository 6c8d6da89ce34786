// internal/game/view.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// CardView is a card as the client sees it. A face-down card only carries Hidden.
type CardView struct {
	Suit   string `json:"suit,omitempty"`
	Rank   string `json:"rank,omitempty"`
	Value  int    `json:"value,omitempty"`
	Color  string `json:"color,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// GameView is the public projection of a game. The deck is never included.
type GameView struct {
	ID             uuid.UUID       `json:"id"`
	Status         models.Status   `json:"status"`
	BetAmount      int64           `json:"betAmount"`
	SideBets       models.SideBets `json:"sideBets"`
	PlayerHand     []CardView      `json:"playerHand"`
	DealerHand     []CardView      `json:"dealerHand"`
	PlayerValue    int             `json:"playerValue"`
	PlayerSoft     bool            `json:"playerSoft"`
	DealerValue    int             `json:"dealerValue"` // visible cards only until revealed
	DealerRevealed bool            `json:"dealerRevealed"`
	Result         *models.Result  `json:"result"`
	ResultAmount   *int64          `json:"resultAmount"`
	CardsRemaining int             `json:"cardsRemaining"`
	CreatedAt      time.Time       `json:"createdAt"`
	EndedAt        *time.Time      `json:"endedAt"`
}

// PublicView renders g for its owner. Until the game is finished every dealer card
// after the first is replaced by {hidden:true}.
func PublicView(g *models.Game) GameView {
	revealed := g.Status == models.StatusFinished

	view := GameView{
		ID:             g.ID,
		Status:         g.Status,
		BetAmount:      g.BetAmount,
		SideBets:       g.SideBets,
		PlayerHand:     make([]CardView, len(g.PlayerHand)),
		DealerHand:     make([]CardView, len(g.DealerHand)),
		PlayerValue:    Value(g.PlayerHand),
		PlayerSoft:     IsSoft(g.PlayerHand),
		DealerRevealed: revealed,
		CardsRemaining: len(g.Deck),
		CreatedAt:      g.CreatedAt,
		EndedAt:        g.EndedAt,
	}

	for i, c := range g.PlayerHand {
		view.PlayerHand[i] = cardView(c)
	}

	visible := g.DealerHand
	if !revealed && len(visible) > 1 {
		visible = visible[:1]
	}
	for i := range g.DealerHand {
		if i < len(visible) {
			view.DealerHand[i] = cardView(g.DealerHand[i])
		} else {
			view.DealerHand[i] = CardView{Hidden: true}
		}
	}
	view.DealerValue = Value(visible)

	if revealed {
		result := g.Result
		amount := g.ResultAmount
		view.Result = &result
		view.ResultAmount = &amount
	}
	return view
}

// PublicViews renders a list of games, e.g. for history.
func PublicViews(games []*models.Game) []GameView {
	views := make([]GameView, len(games))
	for i, g := range games {
		views[i] = PublicView(g)
	}
	return views
}

func cardView(c models.Card) CardView {
	return CardView{
		Suit:  c.Suit,
		Rank:  c.Rank,
		Value: c.Value,
		Color: c.Color(),
	}
}
