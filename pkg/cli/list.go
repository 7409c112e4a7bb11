package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/settings"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the flows in the flow library",
	Description: `List every flow with its step count and configured triggers.

Examples:
  deskflow list
  deskflow list --flows flows.json`,
	Action: runList,
}

func runList(c *cli.Context) error {
	s, err := settings.Load(settingsPath(c))
	if err != nil {
		return err
	}
	path := flowsPath(c, s)
	flows, err := flow.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}

	if len(flows) == 0 {
		fmt.Printf("No flows in %s\n", path)
		return nil
	}

	fmt.Printf("%s%-20s %-28s %6s  %s%s\n",
		color(colorBold), "ID", "NAME", "STEPS", "TRIGGERS", color(colorReset))
	for _, f := range flows {
		fmt.Printf("%-20s %-28s %6d  %s\n",
			f.ID, f.Name, len(f.Steps), describeTriggers(f))
	}
	fmt.Printf("\n%d flow(s) in %s\n", len(flows), path)
	return nil
}
