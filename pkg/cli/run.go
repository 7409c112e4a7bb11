package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/deskflow/pkg/action"
	"github.com/devicelab-dev/deskflow/pkg/driver/mock"
	"github.com/devicelab-dev/deskflow/pkg/engine"
	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/runlog"
	"github.com/devicelab-dev/deskflow/pkg/settings"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run one flow and wait for it to finish",
	ArgsUsage: "<flow-id-or-name>",
	Description: `Run a single flow by id or name with the manual trigger and exit when
it reaches a terminal state. The exit code is non-zero unless the run
completes.

Examples:
  deskflow run morning-routine
  deskflow run "Morning routine" --flows flows.json
  deskflow run morning-routine --dry-run`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Use the mock driver regardless of --driver",
		},
	},
	Action: runRun,
}

func runRun(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one flow id or name is required")
	}
	ref := c.Args().First()

	s, err := settings.Load(settingsPath(c))
	if err != nil {
		return err
	}
	flows, err := flow.Load(flowsPath(c, s))
	if err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}
	target, ok := flow.Lookup(flows, ref)
	if !ok {
		return fmt.Errorf("flow %q not found", ref)
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("flow %q is invalid: %w", target.ID, err)
	}

	var d *mock.Driver
	if c.Bool("dry-run") {
		d = mock.New(mock.Config{})
	} else {
		d, err = buildDriver(c)
		if err != nil {
			return err
		}
	}

	// A one-shot run wants no hotkey or schedule registrations, so it
	// drives a supervisor directly instead of going through the app.
	browser := action.NewController(d)
	defer browser.Close()

	done := make(chan runlog.Status, 1)
	events := consoleEvents()
	events.OnRunFinished = func(f flow.Flow, trigger string, status runlog.Status) {
		fmt.Printf("  %s\n\n", statusLabel(status))
		done <- status
	}

	supervisor := engine.NewSupervisor(engine.RunnerConfig{
		Logger:               runlog.NewLogger(s.ResolvedLogPath()),
		Input:                d,
		Windows:              d,
		Browser:              browser,
		BrowserDefaults:      s.BrowserOptions(),
		CloseBrowserOnFinish: s.CloseBrowserOnFinish,
		HotkeySettleDelay:    s.SettleDelay(),
		Events:               events,
	})
	if err := supervisor.Start(*target, engine.TriggerManual); err != nil {
		return err
	}

	status := <-done
	supervisor.Wait(time.Second)
	if status != runlog.StatusCompleted {
		return fmt.Errorf("run finished with status %s", status)
	}
	return nil
}
