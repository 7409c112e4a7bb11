// Package app wires flows, settings, triggers and the run engine into
// one long-running automation service.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/action"
	"github.com/devicelab-dev/deskflow/pkg/driver"
	"github.com/devicelab-dev/deskflow/pkg/engine"
	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/logger"
	"github.com/devicelab-dev/deskflow/pkg/runlog"
	"github.com/devicelab-dev/deskflow/pkg/settings"
	"github.com/devicelab-dev/deskflow/pkg/trigger"
)

// defaultEmergencyHotkey stops the active run when no combination is
// configured.
var defaultEmergencyHotkey = []string{"ctrl", "alt", "esc"}

// watchDebounce coalesces editor save bursts into one reload.
const watchDebounce = 300 * time.Millisecond

// Config carries the injectable pieces of the service.
type Config struct {
	FlowsPath    string
	SettingsPath string

	Input   driver.Input
	Windows driver.Windows
	Browser driver.Browser

	// Hook receives global hotkey bindings. Defaults to trigger.NopHook.
	Hook trigger.Hook

	// Events observes run progress, typically for console output.
	Events engine.Events
}

// App owns the trigger managers and the dispatcher, and rebuilds the
// trigger registrations whenever the flow file changes.
type App struct {
	cfg      Config
	settings settings.Settings
	log      *slog.Logger

	dispatcher *trigger.Dispatcher
	browser    *action.Controller

	mu        sync.Mutex
	flows     []flow.Flow
	hotkeys   *trigger.HotkeyManager
	scheduler *trigger.SchedulerManager
	watcher   *flowsWatcher
}

// New loads settings and flows, builds the engine wiring and registers
// every trigger. Trigger conflicts are logged and skipped, never fatal.
func New(cfg Config) (*App, error) {
	if cfg.Hook == nil {
		cfg.Hook = trigger.NopHook{}
	}

	s, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		settings: s,
		log:      logger.WithComponent("app"),
		browser:  action.NewController(cfg.Browser),
	}

	a.dispatcher = trigger.NewDispatcher(engine.RunnerConfig{
		Logger:               runlog.NewLogger(s.ResolvedLogPath()),
		Input:                cfg.Input,
		Windows:              cfg.Windows,
		Browser:              a.browser,
		BrowserDefaults:      s.BrowserOptions(),
		CloseBrowserOnFinish: s.CloseBrowserOnFinish,
		HotkeySettleDelay:    s.SettleDelay(),
		Events:               cfg.Events,
	})
	a.hotkeys = trigger.NewHotkeyManager(cfg.Hook)
	a.scheduler = trigger.NewSchedulerManager()

	if err := a.Reload(); err != nil {
		a.dispatcher.Stop()
		a.scheduler.Stop()
		return nil, err
	}
	return a, nil
}

// Reload re-reads the flow file and rebuilds every trigger registration.
// The old hotkey hook and scheduler are torn down completely before the
// new ones start, matching the behavior of loading a fresh flow file.
func (a *App) Reload() error {
	flows, err := flow.Load(a.cfg.FlowsPath)
	if err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}
	for _, issue := range flow.ValidateAll(flows) {
		a.log.Warn("flow validation issue", slog.String("error", issue.Error()))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.hotkeys.Stop()
	a.scheduler.Stop()
	a.hotkeys = trigger.NewHotkeyManager(a.cfg.Hook)
	a.scheduler = trigger.NewSchedulerManager()
	a.flows = flows
	a.registerLocked()

	a.log.Info("flows loaded",
		slog.String("path", a.cfg.FlowsPath),
		slog.Int("count", len(flows)))
	return nil
}

// registerLocked installs the emergency-stop binding, one binding per
// flow hotkey, one schedule job per flow schedule and one binding per
// startup trigger. Callers hold a.mu.
func (a *App) registerLocked() {
	emergency := a.settings.EmergencyHotkey
	if len(emergency) == 0 {
		emergency = defaultEmergencyHotkey
	}
	if err := a.hotkeys.Register("emergency_stop", emergency, a.dispatcher.RequestStop); err != nil {
		a.log.Warn("emergency hotkey not registered", slog.Any("error", err))
	}

	for _, f := range a.flows {
		f := f
		if f.Hotkey != nil {
			err := a.hotkeys.Register("flow:"+f.ID, f.Hotkey.Keys, func() {
				a.dispatch(f, engine.TriggerHotkey)
			})
			if err != nil {
				a.log.Warn("flow hotkey not registered",
					slog.String("flow", f.ID),
					slog.Any("error", err))
			}
		}
		if f.Schedule != nil {
			err := a.scheduler.Schedule("schedule:"+f.ID, *f.Schedule, func() {
				a.dispatch(f, engine.TriggerSchedule)
			})
			if err != nil {
				a.log.Warn("flow schedule not registered",
					slog.String("flow", f.ID),
					slog.Any("error", err))
			}
		}
	}

	for i, st := range a.settings.StartupTriggers {
		st := st
		name := fmt.Sprintf("startup:%d", i)
		err := a.hotkeys.Register(name, st.Hotkey, func() {
			a.dispatchChain(st.FlowIDs)
		})
		if err != nil {
			a.log.Warn("startup trigger not registered",
				slog.String("binding", name),
				slog.Any("error", err))
		}
	}
}

func (a *App) dispatch(f flow.Flow, label string) {
	if err := a.dispatcher.Run(f, label); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			a.log.Warn("run request rejected, a flow is already running",
				slog.String("flow", f.ID),
				slog.String("trigger", label))
			return
		}
		a.log.Error("run request failed",
			slog.String("flow", f.ID),
			slog.Any("error", err))
	}
}

// dispatchChain resolves the id list against the current flows and runs
// them back to back. Unknown ids are logged and skipped.
func (a *App) dispatchChain(flowIDs []string) {
	a.mu.Lock()
	var chain []flow.Flow
	for _, id := range flowIDs {
		f, ok := flow.FindByID(a.flows, id)
		if !ok {
			a.log.Warn("startup trigger references unknown flow", slog.String("flow", id))
			continue
		}
		chain = append(chain, *f)
	}
	a.mu.Unlock()

	if len(chain) == 0 {
		return
	}
	if err := a.dispatcher.RunChain(chain, engine.TriggerStartup); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			a.log.Warn("startup chain rejected, a flow is already running")
			return
		}
		a.log.Error("startup chain failed", slog.Any("error", err))
	}
}

// Watch starts reloading registrations whenever the flow file changes.
func (a *App) Watch() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.watcher != nil {
		return nil
	}
	w, err := newFlowsWatcher(a.cfg.FlowsPath, watchDebounce, func() {
		if err := a.Reload(); err != nil {
			a.log.Error("flow reload failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// RunFlow resolves ref by flow id, then by name, and dispatches it as a
// manual run.
func (a *App) RunFlow(ref string) error {
	f, ok := a.FindFlow(ref)
	if !ok {
		return fmt.Errorf("flow %q not found", ref)
	}
	return a.dispatcher.Run(f, engine.TriggerManual)
}

// StopRun stops the active run at its next step boundary.
func (a *App) StopRun() {
	a.dispatcher.RequestStop()
}

// Busy reports whether a run is active.
func (a *App) Busy() bool {
	return a.dispatcher.Busy()
}

// Wait blocks until the active run finishes or the timeout elapses.
func (a *App) Wait(timeout time.Duration) bool {
	return a.dispatcher.Wait(timeout)
}

// Flows returns a copy of the loaded flows.
func (a *App) Flows() []flow.Flow {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]flow.Flow(nil), a.flows...)
}

// FindFlow resolves ref by id first, then by name.
func (a *App) FindFlow(ref string) (flow.Flow, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := flow.Lookup(a.flows, ref)
	if !ok {
		return flow.Flow{}, false
	}
	return *f, true
}

// Settings returns the loaded settings.
func (a *App) Settings() settings.Settings {
	return a.settings
}

// Bindings returns the current hotkey bindings.
func (a *App) Bindings() []trigger.Binding {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hotkeys.Bindings()
}

// Jobs returns the current schedule registrations.
func (a *App) Jobs() []trigger.JobInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scheduler.Jobs()
}

// Shutdown tears the service down: stop watching, stop the active run
// and wait up to timeout for it, remove the key hook, stop the
// scheduler, then close the browser. The order keeps the OS hook and the
// browser alive until the worker is done with them.
func (a *App) Shutdown(timeout time.Duration) {
	a.mu.Lock()
	watcher := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if watcher != nil {
		watcher.stop()
	}

	if !a.dispatcher.Shutdown(timeout) {
		a.log.Warn("run still active after shutdown timeout")
	}

	a.mu.Lock()
	hotkeys := a.hotkeys
	scheduler := a.scheduler
	a.mu.Unlock()
	hotkeys.Stop()
	scheduler.Stop()

	if err := a.browser.Close(); err != nil {
		a.log.Warn("browser shutdown failed", slog.Any("error", err))
	}
	a.log.Info("shutdown complete")
}
