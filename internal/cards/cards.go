// Package cards defines the fixed universe of action-card identifiers a
// round's kingdom is drawn from.
package cards

// Universe is the fixed set of 15 action-card identifiers every kingdom
// selection draws 10 from, grounded on the original runner's
// Card.Type enumeration (names generalized to plain lowercase slugs).
var Universe = []string{
	"village",
	"smithy",
	"market",
	"witch",
	"laboratory",
	"festival",
	"bureaucrat",
	"council-room",
	"chapel",
	"moat",
	"workshop",
	"militia",
	"mine",
	"remodel",
	"throne-room",
}

// KingdomSize is the number of distinct cards selected per round.
const KingdomSize = 10
