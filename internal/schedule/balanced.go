package schedule

import (
	"math/rand"
	"sort"

	"tourneyforge.dev/internal/domain"
)

// gcd returns the greatest common divisor of a and b (both > 0).
func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// AdjustGamesPerPlayer returns the largest multiple of step=4/gcd(n,4)
// that is <= g, clamped to at least step. This guarantees n*g' is
// divisible by 4 (§4.2).
func AdjustGamesPerPlayer(n, g int) int {
	step := 4 / gcd(n, 4)
	adjusted := (g / step) * step
	if adjusted < step {
		adjusted = step
	}
	return adjusted
}

// RecommendedGamesPerPlayer picks the smallest g in 1..12 with n*g%4==0,
// falling back to 4. Supplemental helper (grounded on the original
// runner's recommendedGamesPerPlayer) that suggests a default g for n
// players; neither the CLI nor the config loader calls it.
func RecommendedGamesPerPlayer(n int) int {
	for g := 1; g <= 12; g++ {
		if (n*g)%4 == 0 {
			return g
		}
	}
	return 4
}

// GenerateBalancedGames returns exactly n*g/4 four-seat assignments, each
// player appearing in exactly g games, using the greedy one-pass heuristic
// from §4.2: seed each game with the lowest-appearance eligible player,
// prefer filling the remaining seats with players this game hasn't paired
// with yet, shuffle seat order within the game, then shuffle game order.
func GenerateBalancedGames(players []domain.PlayerConfig, g int, rng *rand.Rand) []domain.GameAssignment {
	n := len(players)
	if n == 0 || g <= 0 {
		return nil
	}
	total := n * g / 4

	appearances := make(map[string]int, n)
	pairedWith := make(map[string]map[string]int, n)
	for _, p := range players {
		appearances[p.ID] = 0
		pairedWith[p.ID] = make(map[string]int, n)
	}

	games := make([]domain.GameAssignment, 0, total)
	for i := 0; i < total; i++ {
		selected := selectPlayersForGame(players, appearances, pairedWith, g, rng)
		for _, a := range selected {
			appearances[a.ID]++
		}
		for x := 0; x < len(selected); x++ {
			for y := 0; y < len(selected); y++ {
				if x != y {
					pairedWith[selected[x].ID][selected[y].ID]++
				}
			}
		}
		rng.Shuffle(len(selected), func(a, b int) { selected[a], selected[b] = selected[b], selected[a] })
		var assignment domain.GameAssignment
		copy(assignment.Seats[:], selected)
		games = append(games, assignment)
	}

	rng.Shuffle(len(games), func(i, j int) { games[i], games[j] = games[j], games[i] })
	return games
}

func selectPlayersForGame(players []domain.PlayerConfig, appearances map[string]int, pairedWith map[string]map[string]int, g int, rng *rand.Rand) []domain.PlayerConfig {
	eligible := make([]domain.PlayerConfig, 0, len(players))
	for _, p := range players {
		if appearances[p.ID] < g {
			eligible = append(eligible, p)
		}
	}

	tiebreak := make(map[string]int, len(eligible))
	for _, p := range eligible {
		tiebreak[p.ID] = rng.Intn(3) - 1
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		ai, aj := appearances[eligible[i].ID], appearances[eligible[j].ID]
		if ai != aj {
			return ai < aj
		}
		return tiebreak[eligible[i].ID] < tiebreak[eligible[j].ID]
	})

	if len(eligible) == 0 {
		return nil
	}

	selected := []domain.PlayerConfig{eligible[0]}
	chosen := map[string]bool{eligible[0].ID: true}

	// First pass: prefer candidates this game hasn't paired with yet.
	for _, p := range eligible[1:] {
		if len(selected) == 4 {
			break
		}
		if chosen[p.ID] {
			continue
		}
		zeroPrior := true
		for _, s := range selected {
			if pairedWith[s.ID][p.ID] > 0 {
				zeroPrior = false
				break
			}
		}
		if zeroPrior {
			selected = append(selected, p)
			chosen[p.ID] = true
		}
	}

	// Second pass: fill any remaining seats from the sorted eligible list.
	for _, p := range eligible {
		if len(selected) == 4 {
			break
		}
		if chosen[p.ID] {
			continue
		}
		selected = append(selected, p)
		chosen[p.ID] = true
	}

	return selected
}
