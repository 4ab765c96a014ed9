package engine

import (
	"log/slog"
	"math"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/ledger"
	"github.com/roach88/cyberquest/internal/snapshot"
)

// AddPoints increases the points total by n and re-evaluates the points
// achievements. Non-positive n is ignored. The total saturates at
// math.MaxInt instead of wrapping.
//
// The local snapshot is written before AddPoints returns. The remote write
// is queued and its outcome is never reported.
func (e *Engine) AddPoints(n int) {
	if n <= 0 {
		slog.Warn("ignoring non-positive points", "points", n)
		return
	}

	e.mu.Lock()
	if n > math.MaxInt-e.state.points {
		e.state.points = math.MaxInt
	} else {
		e.state.points += n
	}
	points := e.state.points
	snapshot.SavePoints(e.local, points)
	e.clock.Next()
	s := e.session
	e.mu.Unlock()

	slog.Debug("points added", "added", n, "points", points, "user_id", s.userID)

	if s.signedIn() {
		e.submit(e.pointsJob(s, points))
	}
	e.Evaluate(catalog.KindPoints, points)
}

// CompleteChallenge marks a challenge complete. The first completion of an
// id awards ChallengeReward points and re-evaluates the challenge
// achievements with the new set size; repeats are no-ops.
func (e *Engine) CompleteChallenge(id string) {
	id = ledger.NormalizeID(id)
	if id == "" {
		slog.Warn("ignoring empty challenge id")
		return
	}

	e.mu.Lock()
	if e.state.challenges[id] {
		e.mu.Unlock()
		slog.Debug("challenge already complete", "challenge_id", id)
		return
	}
	e.state.challenges[id] = true
	completed := len(e.state.challenges)
	snapshot.SaveChallenges(e.local, e.state.challengeIDs())
	e.clock.Next()
	e.mu.Unlock()

	e.AddPoints(ChallengeReward)
	e.Evaluate(catalog.KindChallenges, completed)
}

// IncrementCounter adds one to a category counter and re-evaluates that
// kind. When the counter reaches a mastery total, the granted synthetic kind
// is evaluated too. Counters are local only; no remote write is made.
func (e *Engine) IncrementCounter(kind catalog.CounterKind) {
	if !catalog.IsIncrementable(kind) {
		slog.Warn("ignoring unknown counter", "kind", kind)
		return
	}

	e.mu.Lock()
	e.state.counters[kind]++
	n := e.state.counters[kind]
	snapshot.SaveCounter(e.local, kind, n)
	e.clock.Next()
	e.mu.Unlock()

	e.Evaluate(kind, n)
	for _, rule := range e.catalog.MasteryFor(kind) {
		if n >= rule.Total {
			e.Evaluate(rule.Grants, 1)
		}
	}
}
