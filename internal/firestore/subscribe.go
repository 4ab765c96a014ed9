package firestore

import (
	"context"
	"log/slog"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SubscribeLabCompletions listens to the user's lab ledger and calls
// onChange for every change after the initial snapshot. The listener stops
// when cancel is called or ctx is done; cancel waits for it to exit.
func (r *Repository) SubscribeLabCompletions(ctx context.Context, userID string, onChange func()) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listenCtx, stop := context.WithCancel(ctx)
	it := r.labs(userID).Snapshots(listenCtx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer it.Stop()

		initial := true
		for {
			snap, err := it.Next()
			if err != nil {
				if listenCtx.Err() == nil && status.Code(err) != codes.Canceled {
					slog.Warn("lab completion listener stopped", "user_id", userID, "error", err)
				}
				return
			}
			if initial {
				initial = false
				continue
			}
			if len(snap.Changes) > 0 {
				onChange()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
		})
	}, nil
}
