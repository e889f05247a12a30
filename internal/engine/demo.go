package engine

import (
	"context"
	"encoding/json"

	"tourneyforge.dev/internal/player"
)

// demoEngine is a trivial built-in Engine used to smoke-test a deployment
// without a real game-engine module plugged in: every turn it offers each
// seated player the same four tagged options and scores the pick: a
// treasure option earns its treasure value, the action option earns 2.
// It is registered under the
// "demo" handle and models no real card game; C7's actual contract is
// deliberately opaque to the core (§4.7), so this exists only as a
// working default that exercises the full player/engine wiring.
type demoEngine struct {
	players []player.Player
	kingdom []string
}

// NewDemoLoader returns a Loader that builds demoEngine instances,
// suitable for registering under Registry.Register("demo", ...).
func NewDemoLoader() Loader {
	return LoaderFunc(func(players []player.Player, kingdom []string) (Engine, error) {
		return &demoEngine{players: players, kingdom: kingdom}, nil
	})
}

type demoOption struct {
	Kind     string `json:"kind"`
	Treasure int    `json:"treasure"`
}

var demoOptions = buildDemoOptions()

func buildDemoOptions() []json.RawMessage {
	specs := []demoOption{
		{Kind: "treasure", Treasure: 1},
		{Kind: "action", Treasure: 0},
		{Kind: "treasure", Treasure: 3},
		{Kind: "treasure", Treasure: 2},
	}
	opts := make([]json.RawMessage, len(specs))
	for i, s := range specs {
		b, err := json.Marshal(s)
		if err != nil {
			panic(err)
		}
		opts[i] = b
	}
	return opts
}

const demoRounds = 3

func (e *demoEngine) Play(ctx context.Context) (Result, error) {
	state, err := json.Marshal(map[string]any{"kingdom": e.kingdom})
	if err != nil {
		return Result{}, err
	}
	event := json.RawMessage(`"turn"`)

	totals := make([]int, len(e.players))
	for turn := 0; turn < demoRounds; turn++ {
		for i, p := range e.players {
			decision, err := p.Decide(ctx, state, demoOptions, event)
			if err != nil {
				return Result{}, err
			}
			totals[i] += demoScore(decision)
			p.Observe(ctx, state, json.RawMessage(`"decided"`))
		}
	}

	results := make([]PlayerResult, len(e.players))
	for i, p := range e.players {
		results[i] = PlayerResult{Name: p.Name(), Score: totals[i], Deck: e.kingdom}
	}
	return Result{PlayerResults: results}, nil
}

func demoScore(decision json.RawMessage) int {
	var opt demoOption
	if err := json.Unmarshal(decision, &opt); err != nil {
		return 0
	}
	if opt.Kind == "action" {
		return 2
	}
	return opt.Treasure
}
