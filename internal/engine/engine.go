package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/ledger"
	"github.com/roach88/cyberquest/internal/snapshot"
)

// RemoteStore is the authoritative progression backend.
//
// InsertAward and InsertLabCompletion are "insert if absent": a uniqueness
// conflict returns inserted=false with a nil error. Implemented by
// store.Store (SQLite) and firestore.Repository.
type RemoteStore interface {
	ReadPoints(ctx context.Context, userID string) (int, error)
	WritePoints(ctx context.Context, userID string, points int) error
	GrantedAchievements(ctx context.Context, userID string) ([]string, error)
	InsertAward(ctx context.Context, award ledger.Award) (bool, error)
	LabCompletions(ctx context.Context, userID string) ([]ledger.LabCompletion, error)
	InsertLabCompletion(ctx context.Context, rec ledger.LabCompletion) (bool, error)
	SubscribeLabCompletions(ctx context.Context, userID string, onChange func()) (cancel func(), err error)
}

// Engine is the progression engine for one device.
//
// Thread-safety model:
//   - Mutations, Evaluate, SignIn/SignOut and Summary: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// INVARIANTS:
//   - points, every counter and the challenge set never decrease
//   - an achievement is reported to the Sink only after this engine's insert
//     created its ledger row
//   - no job created under one session writes after that session ends
type Engine struct {
	catalog   *catalog.Catalog
	remote    RemoteStore
	local     snapshot.Store
	persister Persister
	notify    *dispatcher
	merge     MergePolicy
	ids       SessionIDGenerator
	now       func() time.Time
	clock     *Clock

	mu      sync.Mutex
	state   progression
	session session
	granted map[string]bool
	labs    map[ledger.LabKey]ledger.LabCompletion
}

// session is the signed-in user. A zero userID means signed out.
type session struct {
	userID      string
	id          string
	gen         uint64
	unsubscribe func()
}

func (s session) signedIn() bool {
	return s.userID != ""
}

// Option configures an Engine.
type Option func(*Engine)

// WithPersister replaces the default QueuePersister.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persister = p }
}

// WithSink sets the notification sink. Defaults to one that dismisses
// immediately.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.notify = newDispatcher(s) }
}

// WithMergePolicy replaces MergePoints for sign-in reconciliation. The
// result is never allowed to lower the in-memory total.
func WithMergePolicy(m MergePolicy) Option {
	return func(e *Engine) { e.merge = m }
}

// WithSessionIDs sets the session id generator. Defaults to UUIDv7.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithNow sets the timestamp source for lab completion records.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a signed-out engine hydrated from the local snapshot.
func New(cat *catalog.Catalog, remote RemoteStore, local snapshot.Store, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		remote:  remote,
		local:   local,
		notify:  newDispatcher(nil),
		merge:   MergePoints,
		ids:     UUIDv7Generator{},
		now:     func() time.Time { return time.Now().UTC() },
		clock:   NewClock(),
		state:   newProgression(),
		granted: make(map[string]bool),
		labs:    make(map[ledger.LabKey]ledger.LabCompletion),
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.persister == nil {
		e.persister = NewQueuePersister()
	}

	e.state.absorb(snapshot.Load(local))
	return e
}

// Run processes background persistence until ctx is cancelled or Close is
// called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")
	err := e.persister.Run(ctx)
	slog.Info("engine stopped")
	return err
}

// Flush waits for every queued remote write to finish.
func (e *Engine) Flush(ctx context.Context) error {
	return e.persister.Flush(ctx)
}

// Close ends the lab subscription and stops accepting background work.
// Local state stays on disk; the user is not signed out remotely.
func (e *Engine) Close() {
	e.mu.Lock()
	unsubscribe := e.session.unsubscribe
	e.session.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.persister.Close()
}

// Catalog returns the achievement catalog the engine evaluates.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Summary is a point-in-time view of the engine state.
type Summary struct {
	UserID        string                      `json:"user_id,omitempty"`
	SessionID     string                      `json:"session_id,omitempty"`
	Points        int                         `json:"points"`
	Level         int                         `json:"level"`
	LevelProgress int                         `json:"level_progress"`
	Challenges    []string                    `json:"challenges"`
	Counters      map[catalog.CounterKind]int `json:"counters"`
	Achievements  []string                    `json:"achievements"`
	Labs          []ledger.LabCompletion      `json:"labs"`
	Revision      int64                       `json:"revision"`
}

// Summary returns a copy of the current state. Slices are sorted.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	achievements := make([]string, 0, len(e.granted))
	for id := range e.granted {
		achievements = append(achievements, id)
	}
	sort.Strings(achievements)

	labs := make([]ledger.LabCompletion, 0, len(e.labs))
	for _, rec := range e.labs {
		labs = append(labs, rec)
	}
	sort.Slice(labs, func(i, j int) bool {
		if labs[i].LabType != labs[j].LabType {
			return labs[i].LabType < labs[j].LabType
		}
		return labs[i].LabID < labs[j].LabID
	})

	return Summary{
		UserID:        e.session.userID,
		SessionID:     e.session.id,
		Points:        e.state.points,
		Level:         Level(e.state.points),
		LevelProgress: e.state.points % PointsPerLevel,
		Challenges:    e.state.challengeIDs(),
		Counters:      e.state.counterCopy(),
		Achievements:  achievements,
		Labs:          labs,
		Revision:      e.clock.Current(),
	}
}

// submit hands jobs to the persister. Must not be called with e.mu held.
func (e *Engine) submit(jobs ...Job) {
	for _, j := range jobs {
		e.persister.Submit(j)
	}
}

// current reports whether gen is still the live session generation.
func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.signedIn() && e.session.gen == gen
}

// pointsJob writes a points total captured at submission time. Writes are
// not versioned, so concurrent devices race and the last write wins.
func (e *Engine) pointsJob(s session, points int) Job {
	return Job{
		Op:     "write_points",
		UserID: s.userID,
		Run: func(ctx context.Context) error {
			if !e.current(s.gen) {
				slog.Debug("dropping stale job", "op", "write_points", "user_id", s.userID)
				return nil
			}
			return e.remote.WritePoints(ctx, s.userID, points)
		},
	}
}
