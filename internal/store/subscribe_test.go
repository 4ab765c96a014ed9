package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberquest/internal/ledger"
)

func TestSubscribeLabCompletions_NotifiesOnInsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var u1, u2 atomic.Int32
	cancel1, err := s.SubscribeLabCompletions(ctx, "u1", func() { u1.Add(1) })
	require.NoError(t, err)
	defer cancel1()
	cancel2, err := s.SubscribeLabCompletions(ctx, "u2", func() { u2.Add(1) })
	require.NoError(t, err)
	defer cancel2()

	rec := ledger.LabCompletion{UserID: "u1", LabID: "l1", LabType: "sql_injection"}
	_, err = s.InsertLabCompletion(ctx, rec)
	require.NoError(t, err)

	// Duplicate inserts change nothing and publish nothing.
	_, err = s.InsertLabCompletion(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, int32(1), u1.Load())
	assert.Equal(t, int32(0), u2.Load())
}

func TestSubscribeLabCompletions_Cancel(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var calls atomic.Int32
	cancel, err := s.SubscribeLabCompletions(ctx, "u1", func() { calls.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 1, s.broker.count("u1"))

	cancel()
	cancel()
	assert.Equal(t, 0, s.broker.count("u1"))

	_, err = s.InsertLabCompletion(ctx, ledger.LabCompletion{UserID: "u1", LabID: "l1", LabType: "t"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSubscribeLabCompletions_ContextDone(t *testing.T) {
	s := createTestStore(t)
	ctx, cancelCtx := context.WithCancel(context.Background())

	_, err := s.SubscribeLabCompletions(ctx, "u1", func() {})
	require.NoError(t, err)

	_, err = s.SubscribeLabCompletions(ctx, "u1", func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, s.broker.count("u1"))

	cancelCtx()
	assert.Eventually(t, func() bool { return s.broker.count("u1") == 0 }, time.Second, 5*time.Millisecond)

	_, err = s.SubscribeLabCompletions(ctx, "u1", func() {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscribeLabCompletions_DeletePublishes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.InsertLabCompletion(ctx, ledger.LabCompletion{UserID: "u1", LabID: "l1", LabType: "t"})
	require.NoError(t, err)

	var calls atomic.Int32
	cancel, err := s.SubscribeLabCompletions(ctx, "u1", func() { calls.Add(1) })
	require.NoError(t, err)
	defer cancel()

	_, err = s.DeleteLabCompletions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
