package game

import "github.com/jason-s-yu/blackjack/internal/models"

// Value returns the best total for the hand: aces count 11 and are demoted to 1
// one at a time while the total is over 21.
func Value(hand models.Hand) int {
	total, _ := evaluate(hand)
	return total
}

// IsSoft reports whether the hand's best total still counts an ace as 11.
func IsSoft(hand models.Hand) bool {
	_, soft := evaluate(hand)
	return soft > 0
}

// IsNaturalBlackjack is true only for a two-card 21.
func IsNaturalBlackjack(hand models.Hand) bool {
	return len(hand) == 2 && Value(hand) == 21
}

// IsBust reports a total over 21 with every ace already counted as 1.
func IsBust(hand models.Hand) bool {
	return Value(hand) > 21
}

func evaluate(hand models.Hand) (total, softAces int) {
	for _, c := range hand {
		total += c.Value
		if c.IsAce() {
			softAces++
		}
	}
	for total > 21 && softAces > 0 {
		total -= 10
		softAces--
	}
	return total, softAces
}
