package player

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// delayedPlayer wraps another Player and sleeps a random delay before each
// decision, modeling artificial latency. It is a distinct Player variant,
// not a subclass of the wrapped player (§9). Context cancellation during
// the sleep is propagated as a game failure rather than swallowed, per
// §4.4's cancellation semantics.
type delayedPlayer struct {
	inner        Player
	minDelay     time.Duration
	maxDelay     time.Duration
	rng          *rand.Rand
}

// NewDelayedPlayer wraps inner with a sleep of a random duration in
// [minDelay, maxDelay] before every Decide call.
func NewDelayedPlayer(inner Player, minDelay, maxDelay time.Duration) Player {
	return &delayedPlayer{
		inner:    inner,
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
}

func (p *delayedPlayer) Name() string { return p.inner.Name() }

func (p *delayedPlayer) Decide(ctx context.Context, state json.RawMessage, options []json.RawMessage, event json.RawMessage) (json.RawMessage, error) {
	span := p.maxDelay - p.minDelay
	delay := p.minDelay
	if span > 0 {
		delay += time.Duration(p.rng.Int63n(int64(span) + 1))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, fmt.Errorf("delayed player %s interrupted during artificial delay: %w", p.inner.Name(), ctx.Err())
	}
	return p.inner.Decide(ctx, state, options, event)
}

func (p *delayedPlayer) Observe(ctx context.Context, state json.RawMessage, event json.RawMessage) {
	p.inner.Observe(ctx, state, event)
}
