package engine

import (
	"context"
	"log/slog"
	"sync"
)

// Persister runs remote persistence jobs on behalf of the engine.
//
// Submit must not block and must not call back into the engine while
// holding its own locks. Implementations decide ordering, concurrency and
// retry policy; the engine does not observe job errors.
type Persister interface {
	// Submit schedules a job. Returns false if the persister is closed.
	Submit(job Job) bool

	// Run processes jobs until ctx is cancelled or Close is called.
	Run(ctx context.Context) error

	// Flush blocks until every submitted job has finished or ctx is done.
	Flush(ctx context.Context) error

	// Close stops accepting jobs. Jobs already queued are still run.
	Close()
}

// QueuePersister runs jobs one at a time, in submission order, on the
// goroutine that calls Run.
//
// ERROR HANDLING: a failed job is logged and dropped. There is no retry:
// a retried award insert could race a later evaluation, and a retried
// points write could land after a newer one.
type QueuePersister struct {
	queue *jobQueue

	mu      sync.Mutex
	pending int
	idle    []chan struct{}
}

// NewQueuePersister creates an empty persister. Call Run to start it.
func NewQueuePersister() *QueuePersister {
	return &QueuePersister{queue: newJobQueue()}
}

// Submit enqueues a job. Thread-safe: may be called from any goroutine,
// including from inside a running job.
func (p *QueuePersister) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.queue.Enqueue(job) {
		slog.Warn("persister closed, dropping job", "op", job.Op, "user_id", job.UserID)
		return false
	}
	p.pending++
	return true
}

// Run starts the job loop. Blocks until ctx is cancelled or the persister
// is closed and drained.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (p *QueuePersister) Run(ctx context.Context) error {
	slog.Debug("persister starting")

	for {
		if job, ok := p.queue.TryDequeue(); ok {
			runJob(ctx, job)
			p.finish()
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("persister stopping: context cancelled")
			p.queue.Close()
			return ctx.Err()

		case <-p.queue.Wait():
			// The signal channel closes with the queue; a stale signal from
			// an already consumed job just loops back to TryDequeue.
			if p.queue.Drained() {
				slog.Debug("persister stopping: queue closed")
				return nil
			}
		}
	}
}

// Flush waits until no submitted job is outstanding.
func (p *QueuePersister) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.pending == 0 {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.idle = append(p.idle, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of submitted jobs that have not finished.
func (p *QueuePersister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Close stops accepting jobs. Run drains the queue and returns.
func (p *QueuePersister) Close() {
	p.queue.Close()
}

func (p *QueuePersister) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending--
	if p.pending > 0 {
		return
	}
	for _, ch := range p.idle {
		close(ch)
	}
	p.idle = nil
}

// InlinePersister runs each job synchronously inside Submit. It gives tests
// and scripted scenarios a deterministic order of effects.
type InlinePersister struct {
	closeOnce sync.Once
	closed    chan struct{}
}

// NewInlinePersister creates an InlinePersister.
func NewInlinePersister() *InlinePersister {
	return &InlinePersister{closed: make(chan struct{})}
}

// Submit runs the job immediately.
func (p *InlinePersister) Submit(job Job) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	runJob(context.Background(), job)
	return true
}

// Run blocks until ctx is cancelled or Close is called.
func (p *InlinePersister) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return nil
	}
}

// Flush is a no-op: every job has finished by the time Submit returns.
func (p *InlinePersister) Flush(context.Context) error {
	return nil
}

// Close stops accepting jobs.
func (p *InlinePersister) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

// runJob executes a job and logs its failure.
// Design: "log and continue". Background sync never surfaces errors.
func runJob(ctx context.Context, job Job) {
	if err := job.Run(ctx); err != nil {
		slog.Warn("remote sync failed",
			"op", job.Op,
			"user_id", job.UserID,
			"error", err,
		)
	}
}
