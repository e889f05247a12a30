// Package engine defines the pluggable game-engine contract (C7). The core
// depends only on this interface; how a concrete engine is obtained
// (in-process factory, subprocess, plugin) is outside the core's concern,
// per §4.7 and the "dynamic class loading" design note — no reflection is
// used here, only a registry of named constructor functions.
package engine

import (
	"context"

	"tourneyforge.dev/internal/player"
)

// PlayerResult is one player's raw result as reported by the engine.
type PlayerResult struct {
	Name  string
	Score int
	Deck  []string
}

// Result is everything play() returns.
type Result struct {
	PlayerResults []PlayerResult
}

// Engine plays exactly one game to completion.
type Engine interface {
	Play(ctx context.Context) (Result, error)
}

// Loader constructs an Engine for one game, given the seated players and
// the round's kingdom.
type Loader interface {
	Create(players []player.Player, kingdom []string) (Engine, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(players []player.Player, kingdom []string) (Engine, error)

func (f LoaderFunc) Create(players []player.Player, kingdom []string) (Engine, error) {
	return f(players, kingdom)
}

// Registry resolves a named engine handle to a Loader, standing in for the
// original's reflective class loading.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register associates a handle name with a Loader.
func (r *Registry) Register(handle string, l Loader) {
	r.loaders[handle] = l
}

// Lookup resolves a handle to its Loader.
func (r *Registry) Lookup(handle string) (Loader, bool) {
	l, ok := r.loaders[handle]
	return l, ok
}
