package engine

import (
	"sort"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/snapshot"
)

// ChallengeReward is the fixed number of points for a newly completed
// challenge.
const ChallengeReward = 100

// PointsPerLevel is the width of one level.
const PointsPerLevel = 1000

// Level derives the level from a points total: floor(points/1000) + 1.
func Level(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// MergePolicy resolves the starting points total from the local snapshot and
// the remote record at sign-in.
type MergePolicy func(local, remote int) int

// MergePoints is the default MergePolicy: the larger of the two totals.
// Neither store is authoritative. Local may hold offline progress and remote
// may hold progress from another device; the maximum never loses either, at
// the cost of possibly counting shared progress once per device.
func MergePoints(local, remote int) int {
	return max(local, remote)
}

// progression is the in-memory ProgressionState. Every field only grows.
type progression struct {
	points     int
	challenges map[string]bool
	counters   map[catalog.CounterKind]int
}

func newProgression() progression {
	return progression{
		challenges: make(map[string]bool),
		counters:   make(map[catalog.CounterKind]int),
	}
}

// absorb raises p to at least the values in st. Nothing is lowered.
func (p *progression) absorb(st snapshot.State) {
	p.points = max(p.points, st.Points)
	for _, id := range st.Challenges {
		p.challenges[id] = true
	}
	for kind, n := range st.Counters {
		p.counters[kind] = max(p.counters[kind], n)
	}
}

func (p *progression) challengeIDs() []string {
	ids := make([]string, 0, len(p.challenges))
	for id := range p.challenges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *progression) counterCopy() map[catalog.CounterKind]int {
	out := make(map[catalog.CounterKind]int, len(p.counters))
	for k, v := range p.counters {
		out[k] = v
	}
	return out
}
