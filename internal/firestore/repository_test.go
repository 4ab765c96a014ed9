package firestore

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberquest/internal/ledger"
)

func TestLabDocID(t *testing.T) {
	tests := []struct {
		labType, labID, want string
	}{
		{"sql_injection", "level-1", "sql_injection~level-1"},
		{"mission", "act/2", "mission~act%2F2"},
		{"terminal", "flag 3", "terminal~flag%203"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, labDocID(tt.labType, tt.labID))
	}
}

// openEmulator connects to the Firestore emulator, skipping when it is not
// configured.
func openEmulator(t *testing.T) *Repository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	repo, err := Open(context.Background(), "cyberquest-test", "")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testUser() string {
	return "user-" + uuid.NewString()
}

func TestEmulator_Points(t *testing.T) {
	repo := openEmulator(t)
	ctx := context.Background()
	user := testUser()

	got, err := repo.ReadPoints(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	require.NoError(t, repo.WritePoints(ctx, user, 1200))
	require.NoError(t, repo.WritePoints(ctx, user, 800))

	got, err = repo.ReadPoints(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 800, got)
}

func TestEmulator_AwardAtMostOnce(t *testing.T) {
	repo := openEmulator(t)
	ctx := context.Background()
	user := testUser()

	inserted, err := repo.InsertAward(ctx, ledger.Award{UserID: user, AchievementID: "first_blood"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertAward(ctx, ledger.Award{UserID: user, AchievementID: "first_blood"})
	require.NoError(t, err)
	assert.False(t, inserted)

	ids, err := repo.GrantedAchievements(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_blood"}, ids)
}

func TestEmulator_LabLedgerAndListener(t *testing.T) {
	repo := openEmulator(t)
	ctx := context.Background()
	user := testUser()

	var changes atomic.Int32
	cancel, err := repo.SubscribeLabCompletions(ctx, user, func() { changes.Add(1) })
	require.NoError(t, err)
	defer cancel()

	rec := ledger.LabCompletion{UserID: user, LabID: "level-1", LabType: "sql_injection", PointsEarned: 100}
	inserted, err := repo.InsertLabCompletion(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertLabCompletion(ctx, rec)
	require.NoError(t, err)
	assert.False(t, inserted)

	records, err := repo.LabCompletions(ctx, user)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100, records[0].PointsEarned)

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
}
