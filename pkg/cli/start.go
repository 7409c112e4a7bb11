package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/deskflow/pkg/app"
	"github.com/devicelab-dev/deskflow/pkg/logger"
	"github.com/devicelab-dev/deskflow/pkg/settings"
)

// shutdownTimeout bounds how long start waits for an active run to stop
// at a step boundary before exiting anyway.
const shutdownTimeout = 2 * time.Second

var startCommand = &cli.Command{
	Name:  "start",
	Usage: "Register triggers and dispatch flows until interrupted",
	Description: `Load the flow library, register every hotkey, schedule and startup
trigger, then block until SIGINT or SIGTERM. Runs are printed as they
happen. With --watch the flow file is reloaded whenever it changes on
disk.

Examples:
  deskflow start
  deskflow start --watch
  deskflow start --flows flows.json --watch`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "Reload triggers when the flow file changes",
		},
	},
	Action: runStart,
}

func runStart(c *cli.Context) error {
	log := logger.WithComponent("cli")

	spath := settingsPath(c)
	s, err := settings.Load(spath)
	if err != nil {
		return err
	}
	fpath := flowsPath(c, s)

	// Remember an explicitly chosen flow file so later invocations
	// without --flows land on the same library.
	if c.String("flows") != "" && s.LastFlowsFile != fpath {
		s.LastFlowsFile = fpath
		if err := settings.Save(spath, s); err != nil {
			log.Warn("failed to persist last flows file", "error", err)
		}
	}

	d, err := buildDriver(c)
	if err != nil {
		return err
	}

	a, err := app.New(app.Config{
		FlowsPath:    fpath,
		SettingsPath: spath,
		Input:        d,
		Windows:      d,
		Browser:      d,
		Events:       consoleEvents(),
	})
	if err != nil {
		return err
	}
	if c.Bool("watch") {
		if err := a.Watch(); err != nil {
			a.Shutdown(shutdownTimeout)
			return err
		}
	}

	printRegistrations(a, fpath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	fmt.Printf("\nReceived %v, shutting down...\n", sig)
	a.Shutdown(shutdownTimeout)
	return nil
}

func printRegistrations(a *app.App, fpath string) {
	flows := a.Flows()
	fmt.Printf("%sDeskflow %s%s\n", color(colorBold), Version, color(colorReset))
	fmt.Printf("  Flows:     %d (%s)\n", len(flows), fpath)
	for _, b := range a.Bindings() {
		fmt.Printf("  Hotkey:    %-24s %s\n", b.Name, strings.Join(b.Keys, "+"))
	}
	for _, j := range a.Jobs() {
		fmt.Printf("  Schedule:  %-24s %s\n", j.ID, j.Description)
	}
	fmt.Printf("Press Ctrl+C to stop\n")
}
