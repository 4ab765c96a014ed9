package engine

import (
	"sync"

	"github.com/roach88/cyberquest/internal/catalog"
)

// Sink displays unlocked achievements one at a time. Show must eventually
// call dismiss exactly once; the engine does not hand it another
// achievement before then.
type Sink interface {
	Show(a catalog.Achievement, dismiss func())
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(a catalog.Achievement, dismiss func())

// Show calls f.
func (f SinkFunc) Show(a catalog.Achievement, dismiss func()) {
	f(a, dismiss)
}

// discardSink dismisses everything immediately.
type discardSink struct{}

func (discardSink) Show(_ catalog.Achievement, dismiss func()) { dismiss() }

// dispatcher serializes unlock notifications into a Sink. Unlocks that
// arrive while one is on screen wait in FIFO order.
type dispatcher struct {
	sink Sink

	mu      sync.Mutex
	waiting []catalog.Achievement
	showing bool
}

func newDispatcher(sink Sink) *dispatcher {
	if sink == nil {
		sink = discardSink{}
	}
	return &dispatcher{sink: sink}
}

// push queues a for display and shows it if nothing is on screen.
func (d *dispatcher) push(a catalog.Achievement) {
	d.mu.Lock()
	if d.showing {
		d.waiting = append(d.waiting, a)
		d.mu.Unlock()
		return
	}
	d.showing = true
	d.mu.Unlock()

	d.show(a)
}

func (d *dispatcher) show(a catalog.Achievement) {
	var once sync.Once
	d.sink.Show(a, func() { once.Do(d.dismissed) })
}

func (d *dispatcher) dismissed() {
	d.mu.Lock()
	if len(d.waiting) == 0 {
		d.showing = false
		d.mu.Unlock()
		return
	}
	next := d.waiting[0]
	d.waiting = d.waiting[1:]
	d.mu.Unlock()

	d.show(next)
}

// backlog returns the number of unlocks waiting behind the one on screen.
func (d *dispatcher) backlog() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiting)
}
