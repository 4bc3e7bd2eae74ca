// Package idgen provides the injectable id source used for issues and
// recommendations. Production code uses random UUIDs; tests inject the
// deterministic sequence generator so whole records can be compared.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique ids for issues and recommendations.
type Generator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.New().String() }

// UUID returns a generator backed by random UUIDs.
func UUID() Generator { return uuidGenerator{} }

type sequenceGenerator struct {
	prefix string
	n      atomic.Uint64
}

func (g *sequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}

// Sequence returns a deterministic counter-based generator.
func Sequence(prefix string) Generator {
	if prefix == "" {
		prefix = "id"
	}
	return &sequenceGenerator{prefix: prefix}
}
