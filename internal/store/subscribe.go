package store

import (
	"context"
	"sync"
)

// SubscribeLabCompletions calls onChange after every committed change to the
// user's lab completions. The subscription ends when cancel is called or ctx
// is done. onChange runs on the writer's goroutine and must not block.
func (s *Store) SubscribeLabCompletions(ctx context.Context, userID string, onChange func()) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unsubscribe := s.broker.subscribe(userID, onChange)
	stop := context.AfterFunc(ctx, unsubscribe)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			unsubscribe()
		})
	}, nil
}

// broker fans change notifications out to per-user subscribers.
type broker struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func()
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[int]func())}
}

func (b *broker) subscribe(userID string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]func())
	}
	b.subs[userID][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[userID], id)
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
	}
}

// publish invokes the user's callbacks outside the lock so a callback may
// subscribe or unsubscribe.
func (b *broker) publish(userID string) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs[userID]))
	for _, fn := range b.subs[userID] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (b *broker) count(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}
