// Package table implements the Table Executor (C3): given one seat
// assignment and kingdom, materialize players, run one game through the
// engine, and map its result to canonical placements. It is stateless and
// safe for concurrent invocation — every dependency arrives as an argument
// or via the constructor-injected player.Factory, never as shared state
// (§9: "reformulate as a constructor-injected player factory; no
// subclassing").
package table

import (
	"context"
	"fmt"
	"strings"

	"tourneyforge.dev/internal/domain"
	"tourneyforge.dev/internal/engine"
	"tourneyforge.dev/internal/player"
)

// Executor runs one game at a time; all its fields are read-only after
// construction.
type Executor struct {
	factory *player.Factory
	loader  engine.Loader
}

// NewExecutor builds an Executor over the given player factory and engine
// loader.
func NewExecutor(factory *player.Factory, loader engine.Loader) *Executor {
	return &Executor{factory: factory, loader: loader}
}

// Execute runs assignment's game and always returns a GameOutcome — any
// failure while materializing players, constructing the engine, playing
// the game, or mapping its result produces an all-zero, empty-deck outcome
// for every original seat rather than propagating the error (§4.3).
func (e *Executor) Execute(ctx context.Context, gameIndex, tableNumber int, assignment domain.GameAssignment, kingdom []string, maxTurns int) domain.GameOutcome {
	originalIDs := assignment.PlayerIDs()

	outcome, err := e.attempt(ctx, gameIndex, tableNumber, assignment, kingdom, maxTurns)
	if err != nil {
		return zeroOutcome(gameIndex, tableNumber, originalIDs)
	}
	return outcome
}

// attempt runs the game and returns whatever error the factory, loader,
// or engine produced. factory.Create, loader.Create, and eng.Play are all
// pluggable, opaque implementations (C7/C8) and not trusted to behave —
// a panic from any of them is caught here and turned into an error so one
// bad Engine or Player can't take down the worker pool running it.
func (e *Executor) attempt(ctx context.Context, gameIndex, tableNumber int, assignment domain.GameAssignment, kingdom []string, maxTurns int) (outcome domain.GameOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in game %d table %d: %v", gameIndex, tableNumber, r)
		}
	}()

	players := make([]player.Player, 0, len(assignment.Seats))
	nameToID := make(map[string]string, len(assignment.Seats))
	for _, seat := range assignment.Seats {
		p, err := e.factory.Create(seat)
		if err != nil {
			return domain.GameOutcome{}, err
		}
		players = append(players, p)
		nameToID[p.Name()] = seat.ID
	}

	eng, err := e.loader.Create(players, kingdom)
	if err != nil {
		return domain.GameOutcome{}, err
	}

	result, err := eng.Play(ctx)
	if err != nil {
		return domain.GameOutcome{}, err
	}

	placements := make([]domain.Placement, 0, len(result.PlayerResults))
	for _, pr := range result.PlayerResults {
		id, ok := nameToID[pr.Name]
		if !ok {
			id = strings.ToLower(pr.Name)
		}
		placements = append(placements, domain.Placement{
			PlayerID: id,
			Score:    pr.Score,
			Deck:     pr.Deck,
		})
	}

	return domain.GameOutcome{
		IndexWithinRound: gameIndex,
		TableNumber:      tableNumber,
		Placements:       placements,
	}, nil
}

func zeroOutcome(gameIndex, tableNumber int, playerIDs []string) domain.GameOutcome {
	placements := make([]domain.Placement, len(playerIDs))
	for i, id := range playerIDs {
		placements[i] = domain.Placement{PlayerID: id, Score: 0, Deck: nil}
	}
	return domain.GameOutcome{
		IndexWithinRound: gameIndex,
		TableNumber:      tableNumber,
		Placements:       placements,
	}
}
