package testutil

import (
	"fmt"
	"sync"
)

// FixedSessionGenerator returns the same session id every time.
//
// Useful when a scenario signs in and out repeatedly and the id is only
// compared in golden output. If id is empty, Generate returns
// "test-session".
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}

// SequentialIDs produces "prefix-0001", "prefix-0002", ... for store row ids.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator with the given prefix.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
