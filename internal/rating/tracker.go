package rating

import (
	"log"
	"sync"

	"tourneyforge.dev/internal/domain"
)

// maxConvergenceWarnings caps how many non-convergence messages a single
// tracker will log before it falls silent (it keeps counting regardless).
const maxConvergenceWarnings = 5

// Tracker maintains (mu, sigma) and ordinal points per player for one
// tournament. All mutation happens through ProcessGame, which the spec
// requires be serialized — callers must not invoke it concurrently; the
// Runner's single control-path goroutine is the only caller in practice.
//
// The non-convergence counter lives here, per tracker, rather than as a
// process-wide global (see Design Notes: the original source used a
// static counter shared by every tournament in the process).
type Tracker struct {
	params Params
	log    *log.Logger

	mu       sync.Mutex
	ratings  map[string]Rating
	points   map[string]int
	nonConv  int
}

// NewTracker initializes every player to the model's default rating and
// zero points.
func NewTracker(playerIDs []string, params Params, logger *log.Logger) *Tracker {
	t := &Tracker{
		params:  params,
		log:     logger,
		ratings: make(map[string]Rating, len(playerIDs)),
		points:  make(map[string]int, len(playerIDs)),
	}
	for _, id := range playerIDs {
		t.ratings[id] = params.defaultRating()
	}
	return t
}

// ProcessGame updates ratings and points for a single game's placements.
// Non-participants are untouched. An all-tied game (every score equal, as
// in a failed game's all-zero placements) awards points by the strict
// tie-break order but leaves every rating unchanged. If the numerical
// update fails to converge, prior ratings are retained for every
// participant and points are still awarded (§4.1, §8 P5).
func (t *Tracker) ProcessGame(placements []domain.Placement) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(placements)
	if n == 0 {
		return
	}
	ranks := strictRanks(placements)

	// Ordinal points: N+1-rank, strict order only (§9 open question).
	for i, p := range placements {
		t.points[p.PlayerID] += n + 1 - ranks[i]
	}

	allTied := true
	for _, p := range placements[1:] {
		if p.Score != placements[0].Score {
			allTied = false
			break
		}
	}
	if allTied {
		return
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Sort placement indices by rank ascending (rank 1 first).
	for i := 1; i < n; i++ {
		for j := i; j > 0 && ranks[order[j]] < ranks[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	priors := make([]Rating, n)
	for i, idx := range order {
		priors[i] = t.ratingFor(placements[idx].PlayerID)
	}

	updated := updateRanked(priors, t.params)
	if updated == nil {
		t.nonConv++
		if t.nonConv <= maxConvergenceWarnings && t.log != nil {
			t.log.Printf("rating update did not converge (count=%d); keeping prior ratings", t.nonConv)
		} else if t.nonConv == maxConvergenceWarnings+1 && t.log != nil {
			t.log.Printf("rating update non-convergence warnings suppressed after %d occurrences", maxConvergenceWarnings)
		}
		return
	}

	for i, idx := range order {
		t.ratings[placements[idx].PlayerID] = updated[i]
	}
}

func (t *Tracker) ratingFor(id string) Rating {
	if r, ok := t.ratings[id]; ok {
		return r
	}
	return t.params.defaultRating()
}

// Ratings returns a snapshot of every player's current rating.
func (t *Tracker) Ratings() map[string]Rating {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Rating, len(t.ratings))
	for k, v := range t.ratings {
		out[k] = v
	}
	return out
}

// Points returns a snapshot of accumulated ordinal points.
func (t *Tracker) Points() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.points))
	for k, v := range t.points {
		out[k] = v
	}
	return out
}

// Display returns the rounded mu-3*sigma value for one player, or the
// model's default display rating if the player is unknown.
func (t *Tracker) Display(id string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ratingFor(id).Display()
}

// DisplayAll returns display ratings for every tracked player.
func (t *Tracker) DisplayAll() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.ratings))
	for k, v := range t.ratings {
		out[k] = v.Display()
	}
	return out
}

// NonConvergenceCount returns how many ProcessGame calls failed to
// converge so far. Neither the tournament status nor the tape carries
// this count.
func (t *Tracker) NonConvergenceCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nonConv
}
