package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const (
	BookingPrefix   = "BK"
	PassengerPrefix = "P"
	APITokenPrefix  = "TK"

	tokenLength = 8
)

// Generator issues identities of the form <prefix><8 uppercase hex chars>.
// Tokens are random, not sequential, and uniqueness is probabilistic.
type Generator struct {
	prefix string
	source func() uuid.UUID
}

func New(prefix string) *Generator {
	return &Generator{prefix: prefix, source: uuid.New}
}

func (g *Generator) NextID() string {
	token := g.source().String()[:tokenLength]
	return g.prefix + strings.ToUpper(token)
}
