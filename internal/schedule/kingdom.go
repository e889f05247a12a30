package schedule

import (
	"math/rand"

	"tourneyforge.dev/internal/cards"
	"tourneyforge.dev/internal/domain"
)

// SelectKingdom returns a uniformly random 10-subset of the fixed 15-card
// universe, ordered as sampled (§4.2, §8 P2).
func SelectKingdom(rng *rand.Rand) domain.KingdomSelection {
	pool := make([]string, len(cards.Universe))
	copy(pool, cards.Universe)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return domain.KingdomSelection(pool[:cards.KingdomSize])
}
