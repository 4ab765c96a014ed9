// Package snapshot persists progression counters on the local device.
//
// A snapshot is a flat string key-value map. Reads and writes are synchronous
// and never fail from the caller's point of view: missing or malformed data
// reads as the zero state, and write failures are logged.
//
// Keys carry no schema version. Renaming a key orphans whatever was stored
// under the old name.
package snapshot

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/cyberquest/internal/catalog"
)

// Key names used by the progression engine.
const (
	KeyPoints     = "cyberquest.points"
	KeyChallenges = "cyberquest.completed_challenges"
	counterPrefix = "cyberquest.counter."
)

// CounterKey returns the snapshot key for a category counter.
func CounterKey(kind catalog.CounterKind) string {
	return counterPrefix + string(kind)
}

// Store is a synchronous key-value snapshot.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// State is the decoded progression snapshot.
type State struct {
	Points     int
	Challenges []string
	Counters   map[catalog.CounterKind]int
}

// Load decodes the progression state held in s. Absent keys read as zero.
// Values that fail to decode are logged and read as zero.
func Load(s Store) State {
	st := State{
		Points:   readInt(s, KeyPoints),
		Counters: make(map[catalog.CounterKind]int),
	}

	if raw, ok := s.Get(KeyChallenges); ok && raw != "" {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			slog.Warn("malformed snapshot value", "key", KeyChallenges, "error", err)
		} else {
			st.Challenges = ids
		}
	}

	for _, kind := range catalog.Counters() {
		if n := readInt(s, CounterKey(kind)); n > 0 {
			st.Counters[kind] = n
		}
	}
	return st
}

// SavePoints writes the points total.
func SavePoints(s Store, points int) {
	s.Set(KeyPoints, strconv.Itoa(points))
}

// SaveChallenges writes the completed challenge ids, sorted.
func SaveChallenges(s Store, ids []string) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	b, err := json.Marshal(sorted)
	if err != nil {
		slog.Warn("encode snapshot value", "key", KeyChallenges, "error", err)
		return
	}
	s.Set(KeyChallenges, string(b))
}

// SaveCounter writes a single category counter.
func SaveCounter(s Store, kind catalog.CounterKind, n int) {
	s.Set(CounterKey(kind), strconv.Itoa(n))
}

func readInt(s Store, key string) int {
	raw, ok := s.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		slog.Warn("malformed snapshot value", "key", key, "value", raw)
		return 0
	}
	return n
}

// Memory is an in-process Store. The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns a Memory store seeded with values.
func NewMemory(values map[string]string) *Memory {
	m := &Memory{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get returns the value stored under key and whether it was present.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
}

// Values returns a copy of the stored map.
func (m *Memory) Values() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
