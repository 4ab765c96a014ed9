package notify

import (
	"sync"

	"github.com/roach88/cyberquest/internal/catalog"
)

// Inbox holds the achievement currently on screen until a client collects
// it. Collecting dismisses it, which lets the engine hand over the next one.
type Inbox struct {
	mu      sync.Mutex
	current *catalog.Achievement
	dismiss func()
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Show parks a until Next is called.
func (b *Inbox) Show(a catalog.Achievement, dismiss func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = &a
	b.dismiss = dismiss
}

// Next returns the waiting achievement and dismisses it. ok is false when
// nothing is waiting.
func (b *Inbox) Next() (a catalog.Achievement, ok bool) {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return catalog.Achievement{}, false
	}
	a = *b.current
	dismiss := b.dismiss
	b.current, b.dismiss = nil, nil
	b.mu.Unlock()

	// May call Show again synchronously.
	dismiss()
	return a, true
}

// Peek returns the waiting achievement without dismissing it.
func (b *Inbox) Peek() (catalog.Achievement, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return catalog.Achievement{}, false
	}
	return *b.current, true
}
