// Package engine executes flows. A FlowRunner drives one flow's steps to a
// terminal status with fail-fast semantics; the Supervisor serializes runs
// on a single worker and is the only component allowed to start one.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/action"
	"github.com/devicelab-dev/deskflow/pkg/driver"
	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/logger"
	"github.com/devicelab-dev/deskflow/pkg/runlog"
)

// Trigger source labels recorded on runs.
const (
	TriggerManual   = "manual"
	TriggerHotkey   = "hotkey"
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

// DefaultHotkeySettleDelay is how long a hotkey-triggered run waits before
// its first step, giving the user time to release the physical keys so
// held modifiers cannot bleed into injected input.
const DefaultHotkeySettleDelay = 500 * time.Millisecond

// Events carries live progress callbacks. All fields are optional and are
// invoked from the worker goroutine; handlers must return quickly and must
// not start runs synchronously.
type Events struct {
	OnRunStarted   func(f flow.Flow, trigger string)
	OnStepStarted  func(index int, kind flow.Kind)
	OnStepFinished func(index int, status runlog.StepStatus)
	OnRunFinished  func(f flow.Flow, trigger string, status runlog.Status)
}

// RunnerConfig is the shared wiring for flow runs.
type RunnerConfig struct {
	Logger  *runlog.Logger
	Input   driver.Input
	Windows driver.Windows
	Browser *action.Controller

	// BrowserDefaults seed browser_open options.
	BrowserDefaults driver.Options
	// CloseBrowserOnFinish releases the browser at run end instead of
	// retaining it for the next run.
	CloseBrowserOnFinish bool
	// HotkeySettleDelay delays hotkey- and startup-triggered runs so held
	// modifier keys are released first. Zero disables the delay.
	HotkeySettleDelay time.Duration

	Events Events
}

// FlowRunner executes a single flow sequentially. States are
// Idle -> Running -> {Completed, Failed, Stopped}; all three end states are
// terminal. Cancellation is cooperative and sampled only at step
// boundaries: a blocking step always runs to its own completion first.
type FlowRunner struct {
	flow    flow.Flow
	trigger string
	config  RunnerConfig
	log     *slog.Logger
}

// NewFlowRunner creates a runner for one flow execution.
func NewFlowRunner(f flow.Flow, trigger string, cfg RunnerConfig) *FlowRunner {
	return &FlowRunner{
		flow:    f,
		trigger: trigger,
		config:  cfg,
		log:     logger.WithComponent("engine"),
	}
}

// Run executes the flow and returns its terminal status. A step failure
// stops iteration immediately: remaining steps never run, with no retry
// and no partial continuation, because later steps depend on the UI state
// earlier steps were meant to produce.
func (r *FlowRunner) Run(ctx context.Context) runlog.Status {
	if r.config.HotkeySettleDelay > 0 && (r.trigger == TriggerHotkey || r.trigger == TriggerStartup) {
		time.Sleep(r.config.HotkeySettleDelay)
	}

	actx := &action.Context{
		Input:                r.config.Input,
		Windows:              r.config.Windows,
		Browser:              r.config.Browser,
		BrowserDefaults:      r.config.BrowserDefaults,
		CloseBrowserOnFinish: r.config.CloseBrowserOnFinish,
		RequireWindowFocus:   r.flow.RequireWindowFocus,
		ShouldStop:           func() bool { return ctx.Err() != nil },
	}

	r.config.Logger.StartRun(r.flow.ID, r.flow.Name, r.trigger)
	r.emitRunStarted()
	r.log.Info("run started",
		slog.String("flow_id", r.flow.ID),
		slog.String("flow", r.flow.Name),
		slog.String("trigger", r.trigger))

	status := runlog.StatusCompleted
	for i, step := range r.flow.Steps {
		if ctx.Err() != nil {
			status = runlog.StatusStopped
			break
		}

		act, err := action.New(step)
		if err != nil {
			// Unknown kind: record the fault against this step's index
			// and fail the run without executing anything further.
			r.config.Logger.LogStepStart(i, string(step.Action), nil)
			r.config.Logger.LogStepFinish(i, runlog.StepFailed, err.Error())
			r.log.Error("step rejected",
				slog.Int("index", i),
				slog.String("action", string(step.Action)),
				slog.String("error", err.Error()))
			status = runlog.StatusFailed
			break
		}

		r.emitStepStarted(i, step.Action)
		r.config.Logger.LogStepStart(i, string(step.Action), act.Summary())

		if err := act.Execute(actx); err != nil {
			r.config.Logger.LogStepFinish(i, runlog.StepFailed, err.Error())
			r.emitStepFinished(i, runlog.StepFailed)
			r.log.Error("step failed",
				slog.Int("index", i),
				slog.String("action", string(step.Action)),
				slog.String("error", err.Error()))
			status = runlog.StatusFailed
			break
		}

		r.config.Logger.LogStepFinish(i, runlog.StepSuccess, "")
		r.emitStepFinished(i, runlog.StepSuccess)
	}

	if r.config.CloseBrowserOnFinish && r.config.Browser != nil {
		if err := r.config.Browser.Close(); err != nil {
			r.log.Warn("browser close failed", slog.String("error", err.Error()))
		}
	}

	if _, err := r.config.Logger.FinishRun(status); err != nil {
		r.log.Warn("run record not persisted", slog.String("error", err.Error()))
	}
	r.log.Info("run finished",
		slog.String("flow_id", r.flow.ID),
		slog.String("status", string(status)))
	return status
}

func (r *FlowRunner) emitRunStarted() {
	if r.config.Events.OnRunStarted != nil {
		r.config.Events.OnRunStarted(r.flow, r.trigger)
	}
}

func (r *FlowRunner) emitStepStarted(index int, kind flow.Kind) {
	if r.config.Events.OnStepStarted != nil {
		r.config.Events.OnStepStarted(index, kind)
	}
}

func (r *FlowRunner) emitStepFinished(index int, status runlog.StepStatus) {
	if r.config.Events.OnStepFinished != nil {
		r.config.Events.OnStepFinished(index, status)
	}
}
