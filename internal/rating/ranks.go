package rating

import (
	"hash/fnv"
	"math/rand"
	"sort"

	"tourneyforge.dev/internal/domain"
)

// gameSeed derives a deterministic seed from the (playerId, score) pairs of
// one game, so that re-ranking the same game (e.g. during tape rebuilding)
// always produces the same tie-break order. Grounded on the original
// TrueSkillRatingCalculator's seed-from-hashcode-and-score approach,
// expressed with a stable string hash instead of a language-specific
// identity hashCode.
func gameSeed(placements []domain.Placement) int64 {
	h := fnv.New64a()
	for _, p := range placements {
		_, _ = h.Write([]byte(p.PlayerID))
		_, _ = h.Write([]byte{byte(p.Score), byte(p.Score >> 8), byte(p.Score >> 16), byte(p.Score >> 24)})
	}
	return int64(h.Sum64())
}

// strictRanks assigns 1-based strict ranks to placements, highest score
// first, breaking ties with a seeded pseudorandom shuffle within each tied
// group so that the rating model never sees an exact tie. Returns ranks
// parallel to placements (not reordered).
func strictRanks(placements []domain.Placement) []int {
	n := len(placements)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return placements[order[a]].Score > placements[order[b]].Score
	})

	rng := rand.New(rand.NewSource(gameSeed(placements)))

	ranks := make([]int, n)
	rank := 1
	i := 0
	for i < n {
		j := i
		for j < n && placements[order[j]].Score == placements[order[i]].Score {
			j++
		}
		group := order[i:j]
		shuffled := make([]int, len(group))
		copy(shuffled, group)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		for _, idx := range shuffled {
			ranks[idx] = rank
			rank++
		}
		i = j
	}
	return ranks
}
