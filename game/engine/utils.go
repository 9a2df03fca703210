package engine

import "fmt"

// AllMatched reports whether every card has been matched
func AllMatched(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	for _, c := range cards {
		if !c.IsMatched {
			return false
		}
	}
	return true
}

// CountMatchedPairs counts the pairs whose two cards are matched
func CountMatchedPairs(cards []Card) int {
	matched := 0
	for _, c := range cards {
		if c.IsMatched {
			matched++
		}
	}
	return matched / 2
}

// countFaceUpUnmatched counts flipped cards that are not matched yet
func countFaceUpUnmatched(cards []Card) int {
	count := 0
	for _, c := range cards {
		if c.IsFlipped && !c.IsMatched {
			count++
		}
	}
	return count
}

// FindCard returns the card of pairID with the given kind
func FindCard(cards []Card, pairID int, kind CardKind) (Card, bool) {
	for _, c := range cards {
		if c.PairID == pairID && c.Kind == kind {
			return c, true
		}
	}
	return Card{}, false
}

// FormatElapsed renders seconds as MM:SS. Minutes are not capped and grow
// past two digits after 99.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
