package testutil

import (
	"fmt"
	"sync"
)

// SequentialIdentifiers generates predictable UUID-shaped node identifiers:
// 00000000-0000-4000-8000-000000000001, ...002, and so on.
//
// This enables deterministic assertions on identifiers of created nodes.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIdentifiers struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIdentifiers creates a generator whose first identifier ends in 1.
func NewSequentialIdentifiers() *SequentialIdentifiers {
	return &SequentialIdentifiers{}
}

// NewIdentifier returns the next identifier.
func (g *SequentialIdentifiers) NewIdentifier() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return Identifier(g.seq)
}

// Identifier returns the n-th identifier the generator produces.
func Identifier(n int64) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}
