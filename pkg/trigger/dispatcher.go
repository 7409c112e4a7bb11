package trigger

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/engine"
	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/logger"
	"github.com/devicelab-dev/deskflow/pkg/runlog"
)

// ErrDispatcherStopped is returned for requests made after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

type requestKind int

const (
	reqRun requestKind = iota
	reqChain
	reqStop
	reqFinished
)

type request struct {
	kind    requestKind
	flow    flow.Flow
	chain   []flow.Flow
	trigger string
	reply   chan error
}

// Dispatcher is the single funnel for run requests. Manual commands,
// hotkey presses and schedule firings all land on one loop goroutine
// that owns the only Start call sites into the supervisor, so the busy
// check is never raced. A run request while a run is active is rejected,
// never queued; the one exception is a startup chain, whose remaining
// flows wait in a FIFO and start back to back as each run finishes.
type Dispatcher struct {
	supervisor *engine.Supervisor
	log        *slog.Logger

	requests chan request
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewDispatcher builds the supervisor from cfg and starts the request
// loop. The caller's OnRunFinished handler keeps firing; the dispatcher
// additionally observes finishes to advance chains.
func NewDispatcher(cfg engine.RunnerConfig) *Dispatcher {
	d := &Dispatcher{
		log:      logger.WithComponent("dispatcher"),
		requests: make(chan request),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	finished := cfg.Events.OnRunFinished
	cfg.Events.OnRunFinished = func(f flow.Flow, trigger string, status runlog.Status) {
		if finished != nil {
			finished(f, trigger, status)
		}
		d.notifyFinished(f, trigger)
	}
	d.supervisor = engine.NewSupervisor(cfg)
	go d.loop()
	return d
}

// Run starts a single flow. It returns engine.ErrBusy while another run
// is active; a successful non-chain start clears any queued chain.
func (d *Dispatcher) Run(f flow.Flow, trigger string) error {
	return d.send(request{kind: reqRun, flow: f, trigger: trigger, reply: make(chan error, 1)})
}

// RunChain starts the first flow of a chain and queues the rest; each
// runs as the previous finishes, all under the same trigger label. The
// whole chain is rejected with engine.ErrBusy while a run is active.
func (d *Dispatcher) RunChain(flows []flow.Flow, trigger string) error {
	return d.send(request{kind: reqChain, chain: flows, trigger: trigger, reply: make(chan error, 1)})
}

// RequestStop stops the active run at its next step boundary and clears
// any queued chain flows. Safe to call when idle.
func (d *Dispatcher) RequestStop() {
	_ = d.send(request{kind: reqStop, reply: make(chan error, 1)})
}

// Busy reports whether a run is active.
func (d *Dispatcher) Busy() bool {
	return d.supervisor.IsBusy()
}

// Wait blocks until the active run finishes or the timeout elapses.
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	return d.supervisor.Wait(timeout)
}

// Shutdown stops the active run, waits up to timeout for the worker to
// finish, then stops the request loop. Returns false when the run was
// still active after the timeout.
func (d *Dispatcher) Shutdown(timeout time.Duration) bool {
	d.RequestStop()
	settled := d.supervisor.Wait(timeout)
	d.Stop()
	return settled
}

// Stop terminates the request loop. Pending and later requests get
// ErrDispatcherStopped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	<-d.doneCh
}

func (d *Dispatcher) send(req request) error {
	select {
	case d.requests <- req:
	case <-d.stopCh:
		return ErrDispatcherStopped
	}
	select {
	case err := <-req.reply:
		return err
	case <-d.stopCh:
		return ErrDispatcherStopped
	}
}

func (d *Dispatcher) notifyFinished(f flow.Flow, trigger string) {
	select {
	case d.requests <- request{kind: reqFinished, flow: f, trigger: trigger}:
	case <-d.stopCh:
	}
}

func (d *Dispatcher) loop() {
	defer close(d.doneCh)

	// The pending flows of the one active chain, oldest first.
	var chain []flow.Flow
	var chainTrigger string

	clearChain := func(reason string) {
		if len(chain) == 0 {
			return
		}
		d.log.Info("chain cleared",
			slog.String("reason", reason),
			slog.Int("dropped", len(chain)))
		chain = nil
		chainTrigger = ""
	}

	for {
		select {
		case <-d.stopCh:
			return
		case req := <-d.requests:
			switch req.kind {
			case reqRun:
				err := d.supervisor.Start(req.flow, req.trigger)
				if err == nil {
					clearChain("superseded by " + req.trigger + " run")
				}
				req.reply <- err

			case reqChain:
				if len(req.chain) == 0 {
					req.reply <- nil
					continue
				}
				err := d.supervisor.Start(req.chain[0], req.trigger)
				if err == nil {
					clearChain("replaced")
					chain = append([]flow.Flow(nil), req.chain[1:]...)
					chainTrigger = req.trigger
				}
				req.reply <- err

			case reqStop:
				clearChain("stop requested")
				d.supervisor.RequestStop()
				req.reply <- nil

			case reqFinished:
				if len(chain) == 0 || req.trigger != chainTrigger {
					continue
				}
				next := chain[0]
				chain = chain[1:]
				if err := d.supervisor.Start(next, chainTrigger); err != nil {
					d.log.Warn("chain interrupted",
						slog.String("flow", next.ID),
						slog.Any("error", err))
					clearChain("supervisor redirected")
					continue
				}
				d.log.Info("chain advanced",
					slog.String("flow", next.ID),
					slog.Int("remaining", len(chain)))
				if len(chain) == 0 {
					chainTrigger = ""
				}
			}
		}
	}
}
