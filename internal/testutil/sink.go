package testutil

import (
	"sync"

	"github.com/roach88/cyberquest/internal/catalog"
)

// RecordingSink records every achievement shown to it.
//
// With AutoDismiss the sink dismisses inside Show. Otherwise each shown
// achievement stays on screen until Dismiss is called, which lets tests
// observe the one-at-a-time contract.
type RecordingSink struct {
	AutoDismiss bool

	mu      sync.Mutex
	shown   []catalog.Achievement
	dismiss func()
	overlap bool
}

// NewRecordingSink creates a sink that dismisses immediately.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{AutoDismiss: true}
}

// Show records a and dismisses it when AutoDismiss is set.
func (s *RecordingSink) Show(a catalog.Achievement, dismiss func()) {
	s.mu.Lock()
	if s.dismiss != nil {
		s.overlap = true
	}
	s.shown = append(s.shown, a)
	auto := s.AutoDismiss
	if !auto {
		s.dismiss = dismiss
	}
	s.mu.Unlock()

	if auto {
		dismiss()
	}
}

// Dismiss closes the achievement on screen. Returns false if none is.
func (s *RecordingSink) Dismiss() bool {
	s.mu.Lock()
	fn := s.dismiss
	s.dismiss = nil
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Shown returns the ids shown so far, in order.
func (s *RecordingSink) Shown() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.shown))
	for i, a := range s.shown {
		ids[i] = a.ID
	}
	return ids
}

// Overlapped reports whether Show was ever called while a previous
// achievement was still on screen.
func (s *RecordingSink) Overlapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlap
}
