package engine

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cyberquest/internal/ledger"
	"github.com/roach88/cyberquest/internal/snapshot"
)

// SignIn starts a session for userID and reconciles with the remote store:
//
//  1. Re-read the local snapshot.
//  2. Read remote points, the granted set and the lab ledger.
//  3. Adopt merge(local, remote) as the points total.
//  4. Subscribe to lab ledger changes.
//  5. Evaluate every kind against the loaded granted set.
//
// Remote read failures are logged: points fall back to local, and an
// unloaded granted set only means the ledger constraint does the
// de-duplication. Only points are merged; counters and challenges stay
// local. Signing in as the current user is a no-op.
func (e *Engine) SignIn(ctx context.Context, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		e.SignOut()
		return
	}

	e.mu.Lock()
	if e.session.userID == userID {
		e.mu.Unlock()
		return
	}
	previous := e.session.unsubscribe
	s := session{
		userID: userID,
		id:     e.ids.Generate(),
		gen:    e.session.gen + 1,
	}
	e.session = s
	e.granted = make(map[string]bool)
	e.labs = make(map[ledger.LabKey]ledger.LabCompletion)
	e.state.absorb(snapshot.Load(e.local))
	e.clock.Next()
	e.mu.Unlock()

	if previous != nil {
		previous()
	}

	slog.Info("session started", "user_id", userID, "session_id", s.id)

	var (
		remotePoints int
		remoteOK     bool
		granted      []string
		labs         []ledger.LabCompletion
		labsOK       bool
	)
	var g errgroup.Group
	g.Go(func() error {
		p, err := e.remote.ReadPoints(ctx, userID)
		if err != nil {
			slog.Warn("remote points unavailable, keeping local total", "user_id", userID, "error", err)
			return nil
		}
		remotePoints, remoteOK = p, true
		return nil
	})
	g.Go(func() error {
		ids, err := e.remote.GrantedAchievements(ctx, userID)
		if err != nil {
			slog.Warn("granted achievements unavailable", "user_id", userID, "error", err)
			return nil
		}
		granted = ids
		return nil
	})
	g.Go(func() error {
		recs, err := e.remote.LabCompletions(ctx, userID)
		if err != nil {
			slog.Warn("lab completions unavailable", "user_id", userID, "error", err)
			return nil
		}
		labs, labsOK = recs, true
		return nil
	})
	_ = g.Wait()

	e.mu.Lock()
	if e.session.gen != s.gen {
		// Superseded by a later SignIn or SignOut.
		e.mu.Unlock()
		return
	}
	local := e.state.points
	merged := local
	if remoteOK {
		merged = max(local, e.merge(local, remotePoints))
	}
	e.state.points = merged
	snapshot.SavePoints(e.local, merged)
	for _, id := range granted {
		e.granted[id] = true
	}
	if labsOK {
		e.labs = indexLabs(labs)
	}
	e.clock.Next()
	e.mu.Unlock()

	slog.Info("points reconciled",
		"user_id", userID,
		"local", local,
		"remote", remotePoints,
		"remote_ok", remoteOK,
		"points", merged,
	)

	if remoteOK && remotePoints < merged {
		e.submit(e.pointsJob(s, merged))
	}

	e.subscribeLabs(ctx, s)
	e.evaluateAll()
}

// subscribeLabs keeps the lab cache current: every change refetches the
// whole ledger for the user. The subscription outlives ctx and ends at
// SignOut or Close.
func (e *Engine) subscribeLabs(ctx context.Context, s session) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unsubscribe, err := e.remote.SubscribeLabCompletions(subCtx, s.userID, func() {
		e.submit(e.labRefreshJob(s))
	})
	if err != nil {
		cancel()
		slog.Warn("lab completion subscription failed", "user_id", s.userID, "error", err)
		return
	}
	stop := func() {
		unsubscribe()
		cancel()
	}

	e.mu.Lock()
	if e.session.gen != s.gen {
		e.mu.Unlock()
		stop()
		return
	}
	e.session.unsubscribe = stop
	e.mu.Unlock()
}

// SignOut ends the session. In-memory and local progress are kept; the
// granted set and lab cache are dropped, and queued jobs for the old
// session become no-ops.
func (e *Engine) SignOut() {
	e.mu.Lock()
	if !e.session.signedIn() {
		e.mu.Unlock()
		return
	}
	old := e.session
	e.session = session{gen: old.gen + 1}
	e.granted = make(map[string]bool)
	e.labs = make(map[ledger.LabKey]ledger.LabCompletion)
	e.clock.Next()
	e.mu.Unlock()

	if old.unsubscribe != nil {
		old.unsubscribe()
	}
	slog.Info("session ended", "user_id", old.userID, "session_id", old.id)
}

// Follow applies a stream of auth transitions until ctx is done or the
// channel closes. An empty id means signed out.
func (e *Engine) Follow(ctx context.Context, auth <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case userID, ok := <-auth:
			if !ok {
				return nil
			}
			if strings.TrimSpace(userID) == "" {
				e.SignOut()
				continue
			}
			e.SignIn(ctx, userID)
		}
	}
}

// UserID returns the signed-in user, or "" when signed out.
func (e *Engine) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.userID
}
