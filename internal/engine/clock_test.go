package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())
}

func TestClock_NextIncrements(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current(), "Current must not tick")
}

func TestClock_ConcurrentTicksAreUnique(t *testing.T) {
	c := NewClock()
	const goroutines, perGoroutine = 50, 40

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d generated twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), c.Current())
}
