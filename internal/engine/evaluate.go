package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/ledger"
)

// Evaluate queues an award for every achievement of kind whose threshold is
// met by value and which is not in the cached granted set.
//
// Evaluation is skipped while signed out; SignIn evaluates every kind once
// the granted set is loaded.
func (e *Engine) Evaluate(kind catalog.CounterKind, value int) {
	e.mu.Lock()
	s := e.session
	if !s.signedIn() {
		e.mu.Unlock()
		slog.Debug("skipping evaluation while signed out", "kind", kind, "value", value)
		return
	}

	var jobs []Job
	for _, a := range e.catalog.Eligible(kind, value) {
		if e.granted[a.ID] {
			continue
		}
		jobs = append(jobs, e.awardJob(s, a))
	}
	e.mu.Unlock()

	e.submit(jobs...)
}

// evaluateAll re-runs evaluation for every kind with the current values.
func (e *Engine) evaluateAll() {
	e.mu.Lock()
	points := e.state.points
	challenges := len(e.state.challenges)
	counters := e.state.counterCopy()
	e.mu.Unlock()

	e.Evaluate(catalog.KindPoints, points)
	e.Evaluate(catalog.KindChallenges, challenges)
	for _, kind := range catalog.Counters() {
		n := counters[kind]
		e.Evaluate(kind, n)
		for _, rule := range e.catalog.MasteryFor(kind) {
			if n >= rule.Total {
				e.Evaluate(rule.Grants, 1)
			}
		}
	}
}

// awardJob inserts the award row. The insert is the only check that matters:
// two evaluations may race to the same achievement and exactly one insert
// creates the row.
func (e *Engine) awardJob(s session, a catalog.Achievement) Job {
	return Job{
		Op:     "insert_award",
		UserID: s.userID,
		Run: func(ctx context.Context) error {
			if !e.current(s.gen) {
				slog.Debug("dropping stale job", "op", "insert_award", "user_id", s.userID)
				return nil
			}
			inserted, err := e.remote.InsertAward(ctx, ledger.Award{
				UserID:        s.userID,
				AchievementID: a.ID,
			})
			if err != nil {
				// Left un-granted: the next evaluation of this kind retries.
				return err
			}
			e.awarded(s, a, inserted)
			return nil
		},
	}
}

// awarded records the outcome of an award insert. Only the insert that
// created the row notifies and pays out the achievement's points.
func (e *Engine) awarded(s session, a catalog.Achievement, inserted bool) {
	e.mu.Lock()
	if !e.session.signedIn() || e.session.gen != s.gen {
		e.mu.Unlock()
		// No writes after the session ends: the row stays, unpaid and unseen.
		if inserted {
			slog.Warn("award landed after session ended",
				"achievement_id", a.ID, "user_id", s.userID, "points", a.Points)
		}
		return
	}
	if e.granted[a.ID] {
		e.mu.Unlock()
		return
	}
	e.granted[a.ID] = true
	e.clock.Next()
	e.mu.Unlock()

	if !inserted {
		slog.Debug("achievement already granted", "achievement_id", a.ID, "user_id", s.userID)
		return
	}

	slog.Info("achievement unlocked",
		"achievement_id", a.ID,
		"user_id", s.userID,
		"session_id", s.id,
		"points", a.Points,
	)
	e.notify.push(a)
	if a.Points > 0 {
		e.AddPoints(a.Points)
	}
}

// Backlog returns the number of unlocks waiting for the sink.
func (e *Engine) Backlog() int {
	return e.notify.backlog()
}
