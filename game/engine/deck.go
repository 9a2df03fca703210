package engine

import "math/rand/v2"

// DealCards builds the 2N cards of a topic and shuffles them.
// Ids are handed out after the shuffle and equal the card's position, so an
// id says nothing about which card completes its pair.
// A nil rng uses the package-level source.
func DealCards(pairs []Pair, rng *rand.Rand) []Card {
	cards := make([]Card, 0, len(pairs)*2)
	for i, p := range pairs {
		cards = append(cards,
			Card{Content: p.Term, Kind: Term, PairID: i, Icon: p.Icon},
			Card{Content: p.Definition, Kind: Definition, PairID: i, Icon: p.Icon},
		)
	}
	shuffle(cards, rng)
	for i := range cards {
		cards[i].ID = i
	}
	return cards
}

func shuffle(cards []Card, rng *rand.Rand) {
	swap := func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	}
	if rng == nil {
		rand.Shuffle(len(cards), swap)
		return
	}
	rng.Shuffle(len(cards), swap)
}
