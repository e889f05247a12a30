// Package player implements the single Player capability (§9: "no
// inheritance hierarchies in the core") and the factory that resolves a
// PlayerConfig to a concrete Player (C8).
package player

import (
	"context"
	"encoding/json"
)

// Player is the one capability the core depends on. Its three variants —
// a remote HTTP player, a built-in local strategy, and the artificial-delay
// decorator — are distinct implementations of this interface, never a
// subclass hierarchy (§9).
type Player interface {
	Name() string
	Decide(ctx context.Context, state json.RawMessage, options []json.RawMessage, event json.RawMessage) (json.RawMessage, error)
	Observe(ctx context.Context, state json.RawMessage, event json.RawMessage)
}
