package game

import "github.com/jason-s-yu/blackjack/internal/models"

// DealerStandsOn is the total at which the dealer stops drawing. Soft 17 stands.
const DealerStandsOn = 17

// PlayDealer draws for the dealer until the hand reaches DealerStandsOn or busts.
func PlayDealer(deck models.Deck, dealer models.Hand) (models.Deck, models.Hand) {
	for Value(dealer) < DealerStandsOn {
		var c models.Card
		c, deck = DealTop(deck)
		dealer = append(dealer, c)
	}
	return deck, dealer
}
