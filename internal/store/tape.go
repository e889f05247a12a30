package store

import (
	"sort"

	"tourneyforge.dev/internal/domain"
	"tourneyforge.dev/internal/rating"
)

// tapeEvent is the wire shape of one entry in tape.json's events array
// (§6).
type tapeEvent struct {
	Seq          int                `json:"seq"`
	Round        int                `json:"round"`
	Game         int                `json:"game"`
	Table        int                `json:"table"`
	Tables       int                `json:"tables"`
	GamesInRound int                `json:"gamesInRound"`
	KingdomCards []string           `json:"kingdomCards"`
	Placements   []tapePlacement    `json:"placements"`
	Ratings      map[string]float64 `json:"ratings"`
	Mu           map[string]float64 `json:"mu"`
	Sigma        map[string]float64 `json:"sigma"`
	Points       map[string]int     `json:"points"`
}

type tapePlacement struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

type tapePlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tapeScoring struct {
	Model   string  `json:"model"`
	Initial float64 `json:"initial"`
}

// Tape is the in-memory form of tape.json.
type Tape struct {
	Players   []tapePlayer              `json:"players"`
	Scoring   tapeScoring               `json:"scoring"`
	Events    []tapeEvent               `json:"events"`
	DeckStats map[string]map[string]int `json:"deckStats"`
}

// BuildTape reads tournament.json and every round-NN.json present in the
// store's directory, replays all games through a fresh Tracker in the
// canonical order (round ascending; within a round, game-index ascending;
// for a given game index, table ascending), and returns the tape with one
// event per (round, game-index, table); WriteTape persists it as
// tape.json. One event per table is the granularity this spec
// mandates explicitly (§4.5, §8 P10), which is finer than the original
// Java TapeBuilder's per-game-index-aggregated-across-tables events; see
// DESIGN.md for that divergence.
func (s *Store) BuildTape(params rating.Params) (Tape, error) {
	cfg, err := s.ReadMetadata()
	if err != nil {
		return Tape{}, err
	}

	ids := make([]string, len(cfg.Players))
	for i, p := range cfg.Players {
		ids[i] = p.ID
	}
	tracker := rating.NewTracker(ids, params, nil)

	initial := rating.Rating{Mu: params.Mu0, Sigma: params.Sigma0}.Display()
	tape := Tape{
		Scoring:   tapeScoring{Model: "trueskill", Initial: initial},
		DeckStats: make(map[string]map[string]int),
	}
	for _, p := range cfg.Players {
		tape.Players = append(tape.Players, tapePlayer{ID: p.ID, Name: p.Name})
	}

	seq := 0
	for roundNum := 1; roundNum <= cfg.Rounds; roundNum++ {
		if !s.RoundExists(roundNum) {
			continue
		}
		round, err := s.ReadRound(roundNum)
		if err != nil {
			return Tape{}, err
		}

		type flatGame struct {
			gameIndex int
			table     int
			placements []domain.Placement
		}
		var flat []flatGame
		for _, m := range round.Matches {
			for _, outcome := range m.Outcomes {
				flat = append(flat, flatGame{
					gameIndex:  outcome.IndexWithinRound,
					table:      m.TableNumber,
					placements: outcome.Placements,
				})
			}
		}
		sort.Slice(flat, func(i, j int) bool {
			if flat[i].gameIndex != flat[j].gameIndex {
				return flat[i].gameIndex < flat[j].gameIndex
			}
			return flat[i].table < flat[j].table
		})

		gamesInRound := len(flat)
		for _, g := range flat {
			tracker.ProcessGame(g.placements)
			seq++

			placements := make([]tapePlacement, len(g.placements))
			for i, p := range g.placements {
				placements[i] = tapePlacement{ID: p.PlayerID, Score: p.Score}
				if len(p.Deck) > 0 {
					stats := tape.DeckStats[p.PlayerID]
					if stats == nil {
						stats = make(map[string]int)
						tape.DeckStats[p.PlayerID] = stats
					}
					for _, card := range p.Deck {
						stats[card]++
					}
				}
			}

			ratings := tracker.Ratings()
			mu := make(map[string]float64, len(ratings))
			sigma := make(map[string]float64, len(ratings))
			display := make(map[string]float64, len(ratings))
			for id, r := range ratings {
				mu[id] = r.Mu
				sigma[id] = r.Sigma
				display[id] = r.Display()
			}

			tape.Events = append(tape.Events, tapeEvent{
				Seq:          seq,
				Round:        roundNum,
				Game:         g.gameIndex,
				Table:        g.table,
				Tables:       1,
				GamesInRound: gamesInRound,
				KingdomCards: round.KingdomCards,
				Placements:   placements,
				Ratings:      display,
				Mu:           mu,
				Sigma:        sigma,
				Points:       tracker.Points(),
			})
		}
	}

	return tape, nil
}

// WriteTape writes tape.json atomically.
func (s *Store) WriteTape(t Tape) error {
	return writeJSONAtomic(s.tapePath(), t)
}
