package game

import "github.com/jason-s-yu/blackjack/internal/models"

// Resolve maps the final hands to a result tag and the amount returned to the player,
// stake included. A natural pays 3:2 rounded down.
func Resolve(player, dealer models.Hand, bet int64) (models.Result, int64) {
	playerNatural := IsNaturalBlackjack(player)
	dealerNatural := IsNaturalBlackjack(dealer)
	playerValue := Value(player)
	dealerValue := Value(dealer)

	switch {
	case playerNatural && dealerNatural:
		return models.ResultPush, bet
	case playerNatural:
		return models.ResultBlackjack, bet * 5 / 2
	case dealerNatural:
		return models.ResultDealerWin, 0
	case playerValue > 21:
		return models.ResultBust, 0
	case dealerValue > 21:
		return models.ResultPlayerWin, bet * 2
	case playerValue > dealerValue:
		return models.ResultPlayerWin, bet * 2
	case playerValue == dealerValue:
		return models.ResultPush, bet
	default:
		return models.ResultDealerWin, 0
	}
}
