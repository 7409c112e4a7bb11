// Package cli provides the command-line interface for deskflow.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/deskflow/pkg/driver/mock"
	"github.com/devicelab-dev/deskflow/pkg/logger"
	"github.com/devicelab-dev/deskflow/pkg/settings"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "flows",
		Aliases: []string{"f"},
		Usage:   "Flow library file (JSON or YAML)",
		EnvVars: []string{"DESKFLOW_FLOWS"},
	},
	&cli.StringFlag{
		Name:    "settings",
		Usage:   "Settings file",
		EnvVars: []string{"DESKFLOW_SETTINGS"},
	},
	&cli.StringFlag{
		Name:    "driver",
		Aliases: []string{"d"},
		Usage:   "Desktop driver to use (mock)",
		Value:   "mock",
		EnvVars: []string{"DESKFLOW_DRIVER"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"DESKFLOW_LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:    "log-format",
		Usage:   "Log format (text, json)",
		EnvVars: []string{"DESKFLOW_LOG_FORMAT"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "deskflow",
		Usage:   "Desktop automation flows triggered by hotkeys and schedules",
		Version: Version,
		Description: `Deskflow executes flows of desktop automation steps (keyboard, mouse,
window and browser actions) and dispatches them from manual runs,
global hotkeys and cron schedules.

Examples:
  deskflow run morning-routine
  deskflow list --flows flows.json
  deskflow validate
  deskflow history --limit 10
  deskflow start --watch`,
		Flags:  GlobalFlags,
		Before: setup,
		Commands: []*cli.Command{
			runCommand,
			listCommand,
			validateCommand,
			historyCommand,
			startCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup configures logging and output before any command runs. Flag values
// win over DESKFLOW_* environment variables.
func setup(c *cli.Context) error {
	cfg := logger.FromEnv()
	if v := c.String("log-level"); v != "" {
		cfg.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Format = logger.Format(v)
	}
	logger.Init(cfg)

	if c.Bool("no-ansi") {
		colorsEnabled = false
	}
	return nil
}

// settingsPath resolves the settings file path from the flag or the
// default location under the deskflow home.
func settingsPath(c *cli.Context) string {
	if p := c.String("settings"); p != "" {
		return p
	}
	return settings.DefaultSettingsPath()
}

// flowsPath resolves the flow library path: the --flows flag first, then
// the last file recorded in settings, then <home>/flows.json.
func flowsPath(c *cli.Context, s settings.Settings) string {
	if p := c.String("flows"); p != "" {
		return p
	}
	if s.LastFlowsFile != "" {
		return s.LastFlowsFile
	}
	return settings.DefaultFlowsPath()
}

// buildDriver constructs the desktop driver named by --driver. The mock
// driver is the only one compiled in; platform drivers plug in through
// the driver interfaces.
func buildDriver(c *cli.Context) (*mock.Driver, error) {
	name := c.String("driver")
	switch name {
	case "", "mock":
		return mock.New(mock.Config{}), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q (supported: mock)", name)
	}
}
