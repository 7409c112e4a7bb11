package cli

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/deskflow/pkg/runlog"
	"github.com/devicelab-dev/deskflow/pkg/settings"
)

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "Show past runs from the run log",
	Description: `Print recent run records from the JSONL run log, newest last. With
--jq each record is piped through a jq expression instead, one JSON
value per output line.

Examples:
  deskflow history
  deskflow history --limit 5
  deskflow history --flow morning-routine
  deskflow history --jq 'select(.status == "failed") | .run_id'`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of runs to show (0 = all)",
			Value: 20,
		},
		&cli.StringFlag{
			Name:  "flow",
			Usage: "Only show runs of this flow id",
		},
		&cli.StringFlag{
			Name:  "jq",
			Usage: "jq expression applied to each record",
		},
	},
	Action: runHistory,
}

func runHistory(c *cli.Context) error {
	s, err := settings.Load(settingsPath(c))
	if err != nil {
		return err
	}
	records, err := runlog.ReadHistory(s.ResolvedLogPath())
	if err != nil {
		return err
	}

	if flowID := c.String("flow"); flowID != "" {
		kept := records[:0]
		for _, r := range records {
			if r.FlowID == flowID {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	if limit := c.Int("limit"); limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	if expr := c.String("jq"); expr != "" {
		values, err := runlog.Query(records, expr)
		if err != nil {
			return err
		}
		for _, v := range values {
			line, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode query result: %w", err)
			}
			fmt.Println(string(line))
		}
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	for _, r := range records {
		durStr := "-"
		if r.FinishedAt != nil {
			durStr = formatDuration(r.FinishedAt.Sub(r.StartedAt).Milliseconds())
		}
		fmt.Printf("%s%s%s  %-20s %-8s %-14s %6s  (%d steps)\n",
			color(colorGray), r.StartedAt.Format("2006-01-02 15:04:05"), color(colorReset),
			r.FlowID, r.Trigger, statusLabel(r.Status), durStr, len(r.StepLogs))
	}
	return nil
}
