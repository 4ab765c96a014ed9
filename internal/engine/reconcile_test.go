package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/ledger"
	"github.com/roach88/cyberquest/internal/snapshot"
)

func TestSignIn_LocalAhead(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.remote.Store.WritePoints(context.Background(), "u1", 300))
	h.engine.AddPoints(500)

	h.signIn(t, "u1")

	assert.Equal(t, 500, h.engine.Summary().Points)
	assert.Equal(t, 500, h.remotePoints(t, "u1"), "remote is raised to the merged total")
}

func TestSignIn_RemoteAhead(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.remote.Store.WritePoints(context.Background(), "u1", 500))
	h.engine.AddPoints(300)

	h.signIn(t, "u1")

	assert.Equal(t, 500, h.engine.Summary().Points)
	v, _ := h.local.Get(snapshot.KeyPoints)
	assert.Equal(t, "500", v)
}

func TestSignIn_RemoteReadFailureKeepsLocal(t *testing.T) {
	h := newHarness(t)
	h.remote.readPointsFn = func(context.Context, string) (int, error) {
		return 0, errors.New("deadline exceeded")
	}
	h.engine.AddPoints(250)

	h.signIn(t, "u1")

	assert.Equal(t, 250, h.engine.Summary().Points)
	assert.Equal(t, 0, h.remotePoints(t, "u1"), "no write without knowing the remote value")
}

func TestSignIn_MergePolicyCannotLowerPoints(t *testing.T) {
	h := newHarness(t, WithMergePolicy(func(local, remote int) int { return min(local, remote) }))
	require.NoError(t, h.remote.Store.WritePoints(context.Background(), "u1", 300))
	h.engine.AddPoints(500)

	h.signIn(t, "u1")

	assert.Equal(t, 500, h.engine.Summary().Points)
}

func TestSignIn_LoadsGrantedSet(t *testing.T) {
	h := newHarness(t)
	_, err := h.remote.Store.InsertAward(context.Background(), ledger.Award{UserID: "u1", AchievementID: "first_blood"})
	require.NoError(t, err)

	attempts := 0
	h.remote.insertAwardFn = func(ctx context.Context, a ledger.Award) (bool, error) {
		attempts++
		return h.remote.Store.InsertAward(ctx, a)
	}

	h.signIn(t, "u1")
	h.engine.CompleteChallenge("xss-1")

	assert.Equal(t, 0, attempts, "granted achievements are never re-inserted")
	assert.Equal(t, []string{"first_blood"}, h.engine.Summary().Achievements)
	assert.Empty(t, h.sink.Shown())
}

func TestSignIn_GrantedReadFailureFallsBackToLedger(t *testing.T) {
	h := newHarness(t)
	_, err := h.remote.Store.InsertAward(context.Background(), ledger.Award{UserID: "u1", AchievementID: "first_blood"})
	require.NoError(t, err)
	h.remote.grantedFn = func(context.Context, string) ([]string, error) {
		return nil, errors.New("unavailable")
	}

	h.signIn(t, "u1")
	h.engine.CompleteChallenge("xss-1")

	assert.Empty(t, h.sink.Shown(), "the unique ledger row still blocks a second award")
	assert.Equal(t, []string{"first_blood"}, h.engine.Summary().Achievements)
}

func TestSignIn_CatchesUpOfflineProgress(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.engine.IncrementCounter(catalog.KindSQLLevels)
	}
	h.engine.CompleteChallenge("a")
	require.Empty(t, h.sink.Shown())

	h.signIn(t, "u1")

	// 100 (challenge) + 50 (first_blood) + 200 (sql_specialist)
	assert.Equal(t, 350, h.engine.Summary().Points)
	assert.Equal(t, []string{"first_blood", "sql_specialist"}, h.awards(t, "u1"))
	assert.Equal(t, 350, h.remotePoints(t, "u1"))
}

func TestSignIn_SameUserIsNoop(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")
	before := h.engine.Summary()

	h.engine.SignIn(context.Background(), "  u1 ")

	assert.Equal(t, before.Revision, h.engine.Summary().Revision)
}

func TestSignIn_EmptyIDSignsOut(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")

	h.engine.SignIn(context.Background(), " ")

	assert.Equal(t, "", h.engine.UserID())
}

func TestSignOut_KeepsLocalProgress(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")
	h.engine.CompleteChallenge("a")

	h.engine.SignOut()
	h.engine.SignOut()

	sum := h.engine.Summary()
	assert.Equal(t, "", sum.UserID)
	assert.Equal(t, 150, sum.Points)
	assert.Equal(t, []string{"a"}, sum.Challenges)
	assert.Empty(t, sum.Achievements, "granted set belongs to the session")
	assert.Empty(t, sum.Labs)
}

func TestSignOut_DropsQueuedWrites(t *testing.T) {
	p := NewQueuePersister()
	h := newHarness(t, WithPersister(p))
	h.signIn(t, "u1")

	h.engine.AddPoints(75)
	require.Equal(t, 1, p.Pending())
	h.engine.SignOut()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- h.engine.Run(ctx) }()
	require.NoError(t, h.engine.Flush(context.Background()))
	cancel()
	<-runDone

	assert.Equal(t, 0, h.remotePoints(t, "u1"))
	assert.Equal(t, 75, h.engine.Summary().Points)
}

func TestSignIn_SwitchUsers(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")
	h.engine.CompleteChallenge("a")
	require.Equal(t, []string{"first_blood"}, h.awards(t, "u1"))

	h.signIn(t, "u2")

	// Local progress is per device, so u2 inherits it and earns the same
	// threshold achievement on its own ledger.
	assert.Equal(t, []string{"first_blood"}, h.awards(t, "u2"))
	assert.Equal(t, []string{"first_blood", "first_blood"}, h.sink.Shown())
}

func TestFollow(t *testing.T) {
	h := newHarness(t)
	auth := make(chan string, 4)
	auth <- "u1"
	auth <- ""
	auth <- "u2"
	close(auth)

	require.NoError(t, h.engine.Follow(context.Background(), auth))
	assert.Equal(t, "u2", h.engine.UserID())
}

func TestFollow_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.engine.Follow(ctx, make(chan string))
	assert.ErrorIs(t, err, context.Canceled)
}
