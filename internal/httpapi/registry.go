package httpapi

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/cyberquest/internal/catalog"
	"github.com/roach88/cyberquest/internal/engine"
	"github.com/roach88/cyberquest/internal/notify"
	"github.com/roach88/cyberquest/internal/snapshot"
)

// Registry keeps one signed-in engine per user. Each engine has its own
// snapshot store, persister goroutine and notification inbox.
type Registry struct {
	catalog  *catalog.Catalog
	remote   engine.RemoteStore
	newLocal func(userID string) (snapshot.Store, error)
	opts     func(userID string) []engine.Option

	mu       sync.Mutex
	sessions map[string]*userSession
	wg       sync.WaitGroup
	closed   bool
}

type userSession struct {
	engine *engine.Engine
	inbox  *notify.Inbox
	cancel context.CancelFunc
	ready  chan struct{}
}

// NewRegistry creates an empty registry. newLocal supplies the snapshot
// store for a user's engine and opts its engine options; either may be nil.
// opts is called once per engine so stateful options such as a persister
// are never shared.
func NewRegistry(cat *catalog.Catalog, remote engine.RemoteStore, newLocal func(string) (snapshot.Store, error), opts func(string) []engine.Option) *Registry {
	if newLocal == nil {
		newLocal = func(string) (snapshot.Store, error) { return snapshot.NewMemory(nil), nil }
	}
	if opts == nil {
		opts = func(string) []engine.Option { return nil }
	}
	return &Registry{
		catalog:  cat,
		remote:   remote,
		newLocal: newLocal,
		opts:     opts,
		sessions: make(map[string]*userSession),
	}
}

// session returns the user's engine, creating and signing it in on first
// use. Sign-in runs outside r.mu so a slow backend for one user does not
// hold up other users; concurrent callers for the same user wait on ready.
func (r *Registry) session(ctx context.Context, userID string) (*userSession, error) {
	r.mu.Lock()
	if s, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return s, s.wait(ctx)
	}
	if r.closed {
		r.mu.Unlock()
		return nil, errRegistryClosed
	}

	local, err := r.newLocal(userID)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	inbox := notify.NewInbox()
	opts := append(r.opts(userID), engine.WithSink(inbox))
	eng := engine.New(r.catalog, r.remote, local, opts...)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := eng.Run(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("engine stopped", "user_id", userID, "error", err)
		}
	}()

	s := &userSession{engine: eng, inbox: inbox, cancel: cancel, ready: make(chan struct{})}
	r.sessions[userID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	eng.SignIn(ctx, userID)
	close(s.ready)
	slog.Info("user session opened", "user_id", userID, "sessions", n)
	return s, nil
}

// wait blocks until the session's sign-in has finished.
func (s *userSession) wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close flushes and stops every engine.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*userSession)
	r.mu.Unlock()

	for userID, s := range sessions {
		if err := s.wait(ctx); err != nil {
			slog.Warn("sign-in still running on shutdown", "user_id", userID, "error", err)
		}
		if err := s.engine.Flush(ctx); err != nil {
			slog.Warn("flush on shutdown failed", "user_id", userID, "error", err)
		}
		s.engine.Close()
		s.cancel()
	}
	r.wg.Wait()
}
