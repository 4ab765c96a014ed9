package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore opens a store in a temp dir with a stepping clock and
// sequential row ids so ordering assertions are deterministic.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	var mu sync.Mutex
	var tick int
	s, err := Open(path,
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return testEpoch.Add(time.Duration(tick) * time.Second)
		}),
		WithIDs(func() string {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return fmt.Sprintf("row-%03d", tick)
		}),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
