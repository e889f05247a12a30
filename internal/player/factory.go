package player

import (
	"fmt"
	"log"
	"strings"
	"time"

	"tourneyforge.dev/internal/domain"
)

// Description describes one built-in strategy tag for the roster-listing
// endpoint, supplementing the original's PlayerDiscoveryService /
// DiscoveredPlayer / PlayerDescription without its reflective classpath
// scanning (§9 forbids reflection-based loading; this registry is
// populated by explicit Register calls instead).
type Description struct {
	Tag         string
	Description string
}

type builtinCtor func(name string) Player

// Registry holds the built-in local-strategy constructors.
type Registry struct {
	builtins map[string]builtinCtor
	descs    []Description
}

// NewRegistry returns a registry pre-populated with the standard
// built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{builtins: make(map[string]builtinCtor)}
	r.Register("random", "Picks a uniformly random option on every decision.", NewRandomPlayer)
	r.Register("naive-money", "Greedily prefers the highest treasure-valued option.", NewNaiveMoneyPlayer)
	r.Register("action-heavy", "Prefers action-tagged options, falling back to naive-money.", NewActionHeavyPlayer)
	r.Register("passive", "Always chooses the last offered option.", NewPassivePlayer)
	return r
}

// Register adds a named built-in strategy.
func (r *Registry) Register(tag, description string, ctor builtinCtor) {
	r.builtins[tag] = ctor
	r.descs = append(r.descs, Description{Tag: tag, Description: description})
}

// List returns every registered built-in strategy's description, for the
// roster-listing endpoint.
func (r *Registry) List() []Description {
	out := make([]Description, len(r.descs))
	copy(out, r.descs)
	return out
}

// DefaultMinDelay and DefaultMaxDelay are the artificial-delay decorator's
// bounds when a PlayerConfig sets DelayWrap without further tuning.
var (
	DefaultMinDelay = 200 * time.Millisecond
	DefaultMaxDelay = 500 * time.Millisecond
)

// Factory resolves a PlayerConfig into a concrete Player (C8).
type Factory struct {
	registry *Registry
	logger   *log.Logger
}

// NewFactory builds a Factory over the given strategy registry.
func NewFactory(registry *Registry, logger *log.Logger) *Factory {
	return &Factory{registry: registry, logger: logger}
}

// Create resolves cfg.Endpoint: an http(s):// URL becomes a remote player, a
// known local-strategy tag becomes a library instance, and either is
// wrapped with the artificial-delay decorator when cfg.DelayWrap is set
// (§4.7, §9).
func (f *Factory) Create(cfg domain.PlayerConfig) (Player, error) {
	var base Player
	switch {
	case strings.HasPrefix(cfg.Endpoint, "http://"), strings.HasPrefix(cfg.Endpoint, "https://"):
		base = NewRemoteHTTPPlayer(cfg.Name, cfg.Endpoint, f.logger)
	default:
		ctor, ok := f.registry.builtins[cfg.Endpoint]
		if !ok {
			return nil, fmt.Errorf("unknown player endpoint/strategy tag: %q", cfg.Endpoint)
		}
		base = ctor(cfg.Name)
	}

	if cfg.DelayWrap {
		base = NewDelayedPlayer(base, DefaultMinDelay, DefaultMaxDelay)
	}
	return base, nil
}
