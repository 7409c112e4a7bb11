package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/deskflow/pkg/action"
	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/settings"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate the flow library without running anything",
	Description: `Check every flow for structural problems: missing ids or names, unknown
actions, malformed schedule expressions, duplicate ids and conflicting
hotkeys. The exit code is non-zero when any problem is found.

Examples:
  deskflow validate
  deskflow validate --flows flows.json`,
	Action: runValidate,
}

func runValidate(c *cli.Context) error {
	s, err := settings.Load(settingsPath(c))
	if err != nil {
		return err
	}
	path := flowsPath(c, s)
	flows, err := flow.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}

	problems := flow.ValidateAll(flows)
	for _, f := range flows {
		// ValidateAll covers structure; constructing each action catches
		// kinds the factory rejects.
		for i, step := range f.Steps {
			if !step.Action.Valid() {
				continue // already reported
			}
			if _, err := action.New(step); err != nil {
				problems = append(problems,
					fmt.Errorf("flow %s: step %d: %w", f.ID, i, err))
			}
		}
	}

	if len(problems) == 0 {
		fmt.Printf("%s✓%s %d flow(s) in %s are valid\n",
			color(colorGreen), color(colorReset), len(flows), path)
		return nil
	}
	for _, p := range problems {
		fmt.Printf("%s✗%s %v\n", color(colorRed), color(colorReset), p)
	}
	return fmt.Errorf("%d problem(s) found in %s", len(problems), path)
}
