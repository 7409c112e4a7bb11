package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/logger"
)

// ErrBusy signals a run request while another run is active. Requests are
// rejected, never queued.
var ErrBusy = errors.New("a flow run is already active")

// Supervisor runs flows on one dedicated worker goroutine, at most one at
// a time. It is the concurrency boundary of the engine: no two flows, and
// therefore no two steps, ever execute concurrently.
type Supervisor struct {
	config RunnerConfig
	log    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSupervisor creates a supervisor with shared run wiring.
func NewSupervisor(cfg RunnerConfig) *Supervisor {
	return &Supervisor{
		config: cfg,
		log:    logger.WithComponent("supervisor"),
	}
}

// Start launches f on the worker. It fails with ErrBusy while a run is
// active. OnRunFinished fires after the supervisor is idle again, so a
// handler may immediately start the next run.
func (s *Supervisor) Start(f flow.Flow, trigger string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	runner := NewFlowRunner(f, trigger, s.withoutFinishEvent())
	go func() {
		status := runner.Run(ctx)
		cancel()

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()

		if s.config.Events.OnRunFinished != nil {
			s.config.Events.OnRunFinished(f, trigger, status)
		}
		close(done)
	}()
	return nil
}

// RequestStop asks the active run to stop at its next step boundary.
// Idempotent and safe to call when idle.
func (s *Supervisor) RequestStop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		s.log.Info("stop requested")
		cancel()
	}
}

// IsBusy reports whether a run is active.
func (s *Supervisor) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until the current run reaches a terminal state or the
// timeout elapses. Returns true when the worker is idle.
func (s *Supervisor) Wait(timeout time.Duration) bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Shutdown requests a stop and waits for the worker to reach a terminal
// state. Returns false when the run is still active after the timeout.
func (s *Supervisor) Shutdown(timeout time.Duration) bool {
	s.RequestStop()
	return s.Wait(timeout)
}

// withoutFinishEvent strips OnRunFinished from the runner's config; the
// supervisor emits it itself once the worker slot is free.
func (s *Supervisor) withoutFinishEvent() RunnerConfig {
	cfg := s.config
	cfg.Events.OnRunFinished = nil
	return cfg
}
