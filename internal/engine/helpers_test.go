package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/ledger"
	"github.com/roach88/cyberquest/internal/snapshot"
	"github.com/roach88/cyberquest/internal/store"
	"github.com/roach88/cyberquest/internal/testutil"
)

var testEpoch = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// testCatalog is small enough to reason about point totals by hand.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Achievement{
		{ID: "first_blood", Name: "First Blood", Points: 50, RequirementType: catalog.KindChallenges, RequirementValue: 1},
		{ID: "script_kiddie", Name: "Script Kiddie", Points: 0, RequirementType: catalog.KindPoints, RequirementValue: 1000},
		{ID: "codebreaker", Name: "Codebreaker", Points: 0, RequirementType: catalog.KindCryptoPuzzles, RequirementValue: 1},
		{ID: "crypto_master", Name: "Crypto Master", Points: 300, RequirementType: catalog.KindCryptoMaster, RequirementValue: 1},
		{ID: "sql_specialist", Name: "Query Breaker", Points: 200, RequirementType: catalog.KindSQLLevels, RequirementValue: 5},
	}, []catalog.MasteryRule{
		{Counter: catalog.KindCryptoPuzzles, Total: 3, Grants: catalog.KindCryptoMaster},
	})
	require.NoError(t, err)
	return c
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	clock := testutil.NewSteppingClock(testEpoch, time.Second)
	ids := testutil.NewSequentialIDs("row")
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(clock.Now),
		store.WithIDs(ids.Next),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeRemote wraps a real store; any non-nil func field replaces the
// corresponding call.
type fakeRemote struct {
	*store.Store

	readPointsFn  func(context.Context, string) (int, error)
	writePointsFn func(context.Context, string, int) error
	grantedFn     func(context.Context, string) ([]string, error)
	insertAwardFn func(context.Context, ledger.Award) (bool, error)
	insertLabFn   func(context.Context, ledger.LabCompletion) (bool, error)
}

func (f *fakeRemote) ReadPoints(ctx context.Context, userID string) (int, error) {
	if f.readPointsFn != nil {
		return f.readPointsFn(ctx, userID)
	}
	return f.Store.ReadPoints(ctx, userID)
}

func (f *fakeRemote) WritePoints(ctx context.Context, userID string, points int) error {
	if f.writePointsFn != nil {
		return f.writePointsFn(ctx, userID, points)
	}
	return f.Store.WritePoints(ctx, userID, points)
}

func (f *fakeRemote) GrantedAchievements(ctx context.Context, userID string) ([]string, error) {
	if f.grantedFn != nil {
		return f.grantedFn(ctx, userID)
	}
	return f.Store.GrantedAchievements(ctx, userID)
}

func (f *fakeRemote) InsertAward(ctx context.Context, award ledger.Award) (bool, error) {
	if f.insertAwardFn != nil {
		return f.insertAwardFn(ctx, award)
	}
	return f.Store.InsertAward(ctx, award)
}

func (f *fakeRemote) InsertLabCompletion(ctx context.Context, rec ledger.LabCompletion) (bool, error) {
	if f.insertLabFn != nil {
		return f.insertLabFn(ctx, rec)
	}
	return f.Store.InsertLabCompletion(ctx, rec)
}

type harness struct {
	engine *Engine
	remote *fakeRemote
	local  *snapshot.Memory
	sink   *testutil.RecordingSink
}

// newHarness builds an engine over a fresh SQLite store with inline
// persistence, so every effect has happened when a call returns.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		remote: &fakeRemote{Store: setupTestStore(t)},
		local:  snapshot.NewMemory(nil),
		sink:   testutil.NewRecordingSink(),
	}
	clock := testutil.NewSteppingClock(testEpoch, time.Minute)
	base := []Option{
		WithPersister(NewInlinePersister()),
		WithSink(h.sink),
		WithSessionIDs(testutil.NewFixedSessionGenerator("session-test")),
		WithNow(clock.Now),
	}
	h.engine = New(testCatalog(t), h.remote, h.local, append(base, opts...)...)
	t.Cleanup(h.engine.Close)
	return h
}

func (h *harness) signIn(t *testing.T, userID string) {
	t.Helper()
	h.engine.SignIn(context.Background(), userID)
	require.Equal(t, userID, h.engine.UserID())
}

func (h *harness) remotePoints(t *testing.T, userID string) int {
	t.Helper()
	p, err := h.remote.Store.ReadPoints(context.Background(), userID)
	require.NoError(t, err)
	return p
}

func (h *harness) awards(t *testing.T, userID string) []string {
	t.Helper()
	ids, err := h.remote.Store.GrantedAchievements(context.Background(), userID)
	require.NoError(t, err)
	return ids
}
