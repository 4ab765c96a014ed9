package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}

	first := gen.Generate()
	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	seen := map[string]bool{first: true}
	for i := 0; i < 200; i++ {
		id := gen.Generate()
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("s-1", "s-2")

	assert.Equal(t, "s-1", gen.Generate())
	assert.Equal(t, "s-2", gen.Generate())
	assert.PanicsWithValue(t, "FixedGenerator: all ids exhausted", func() { gen.Generate() })
}
