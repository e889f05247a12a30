package player

import (
	"context"
	"encoding/json"
	"math/rand"
)

// The built-in strategies below are generic decision heuristics over an
// opaque options list — the engine's state/options wire shapes are outside
// the core's contract (§1), so these operate purely on the raw JSON the
// engine offers, in the spirit of the original RandomPlayer /
// NaiveBigMoneyPlayer / ActionHeavyPlayer strategies rather than as a
// reimplementation of any specific card game's rules.

type randomPlayer struct {
	name string
	rng  *rand.Rand
}

// NewRandomPlayer picks a uniformly random option on every decision.
func NewRandomPlayer(name string) Player {
	return &randomPlayer{name: name, rng: rand.New(rand.NewSource(rand.Int63()))}
}

func (p *randomPlayer) Name() string { return p.name }

func (p *randomPlayer) Decide(_ context.Context, _ json.RawMessage, options []json.RawMessage, _ json.RawMessage) (json.RawMessage, error) {
	if len(options) == 0 {
		return json.RawMessage("null"), nil
	}
	return options[p.rng.Intn(len(options))], nil
}

func (p *randomPlayer) Observe(context.Context, json.RawMessage, json.RawMessage) {}

// numericField is the best-effort probe naiveMoneyPlayer and
// actionHeavyPlayer use to rank options: it looks for a "treasure" field,
// falling back to the largest numeric field found anywhere in the option.
func numericField(opt json.RawMessage, preferredKey string) (float64, bool) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(opt, &generic); err != nil {
		return 0, false
	}
	if raw, ok := generic[preferredKey]; ok {
		var v float64
		if json.Unmarshal(raw, &v) == nil {
			return v, true
		}
	}
	best := 0.0
	found := false
	for _, raw := range generic {
		var v float64
		if json.Unmarshal(raw, &v) == nil {
			if !found || v > best {
				best, found = v, true
			}
		}
	}
	return best, found
}

type naiveMoneyPlayer struct{ name string }

// NewNaiveMoneyPlayer prefers the option with the highest "treasure"-like
// numeric field, falling back to the first option.
func NewNaiveMoneyPlayer(name string) Player { return &naiveMoneyPlayer{name: name} }

func (p *naiveMoneyPlayer) Name() string { return p.name }

func (p *naiveMoneyPlayer) Decide(_ context.Context, _ json.RawMessage, options []json.RawMessage, _ json.RawMessage) (json.RawMessage, error) {
	return pickHighestValue(options, "treasure"), nil
}

func (p *naiveMoneyPlayer) Observe(context.Context, json.RawMessage, json.RawMessage) {}

type actionHeavyPlayer struct{ name string }

// NewActionHeavyPlayer prefers an option tagged {"kind":"action"}, falling
// back to the same highest-value heuristic naiveMoneyPlayer uses.
func NewActionHeavyPlayer(name string) Player { return &actionHeavyPlayer{name: name} }

func (p *actionHeavyPlayer) Name() string { return p.name }

func (p *actionHeavyPlayer) Decide(_ context.Context, _ json.RawMessage, options []json.RawMessage, _ json.RawMessage) (json.RawMessage, error) {
	for _, opt := range options {
		var tagged struct {
			Kind string `json:"kind"`
		}
		if json.Unmarshal(opt, &tagged) == nil && tagged.Kind == "action" {
			return opt, nil
		}
	}
	return pickHighestValue(options, "treasure"), nil
}

func (p *actionHeavyPlayer) Observe(context.Context, json.RawMessage, json.RawMessage) {}

func pickHighestValue(options []json.RawMessage, preferredKey string) json.RawMessage {
	if len(options) == 0 {
		return json.RawMessage("null")
	}
	bestIdx := 0
	bestVal := 0.0
	bestFound := false
	for i, opt := range options {
		v, ok := numericField(opt, preferredKey)
		if ok && (!bestFound || v > bestVal) {
			bestIdx, bestVal, bestFound = i, v, true
		}
	}
	if !bestFound {
		return options[0]
	}
	return options[bestIdx]
}

type passivePlayer struct{ name string }

// NewPassivePlayer always chooses the last offered option — a deterministic
// baseline opponent, supplemented from the original's default-safe
// fallback behavior.
func NewPassivePlayer(name string) Player { return &passivePlayer{name: name} }

func (p *passivePlayer) Name() string { return p.name }

func (p *passivePlayer) Decide(_ context.Context, _ json.RawMessage, options []json.RawMessage, _ json.RawMessage) (json.RawMessage, error) {
	if len(options) == 0 {
		return json.RawMessage("null"), nil
	}
	return options[len(options)-1], nil
}

func (p *passivePlayer) Observe(context.Context, json.RawMessage, json.RawMessage) {}
