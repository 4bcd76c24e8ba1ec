package report

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned by Start when a run is already in flight.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// Session coordinates one report run at a time. It is the two-state
// Idle/Running toggle behind the run control. While Running, delete
// and export are unavailable; they become available again when the run
// function returns, whether it completed, failed, or was cancelled.
type Session struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Start transitions Idle to Running and invokes run in a new goroutine with
// a cancellable child context. Returns ErrAlreadyRunning if a run is in
// flight. The session returns to Idle when run returns, regardless of
// outcome.
func (s *Session) Start(ctx context.Context, run func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.runErr = nil

	done := s.done
	go func() {
		err := run(runCtx)
		cancel()

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.runErr = err
		s.mu.Unlock()

		close(done)
	}()

	return nil
}

// Toggle is the run control's click handler: starts a run when idle,
// requests cancellation when running. Returns true if a run was started.
func (s *Session) Toggle(ctx context.Context, run func(context.Context) error) (bool, error) {
	if err := s.Start(ctx, run); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.Cancel()
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Cancel requests cooperative cancellation of the in-flight run.
// It does not forcibly terminate work: the session stays Running until
// the run function observes the context and returns. No-op when idle.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Running reports whether a run is in flight.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ActionsEnabled reports whether delete/export actions are available.
// They are disabled exactly while a run is in flight.
func (s *Session) ActionsEnabled() bool {
	return !s.Running()
}

// Guard is the navigation guard: callers leaving the session must
// confirm and Cancel first when it reports true.
func (s *Session) Guard() bool {
	return s.Running()
}

// Wait blocks until the current run (if any) has returned and reports
// its error. Returns nil immediately when no run was started.
func (s *Session) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}
