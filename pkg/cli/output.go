package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/engine"
	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/runlog"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// runPrinter renders live run progress to stdout. Step kind and start time
// arrive on the step-start event and are held until the finish event for
// the same index.
type runPrinter struct {
	mu      sync.Mutex
	kinds   map[int]flow.Kind
	started map[int]time.Time
}

// consoleEvents returns progress callbacks that print each run the way the
// floating status window renders it: a header, one line per step, and a
// colored status footer.
func consoleEvents() engine.Events {
	p := &runPrinter{
		kinds:   make(map[int]flow.Kind),
		started: make(map[int]time.Time),
	}
	return engine.Events{
		OnRunStarted:   p.runStarted,
		OnStepStarted:  p.stepStarted,
		OnStepFinished: p.stepFinished,
		OnRunFinished:  p.runFinished,
	}
}

func (p *runPrinter) runStarted(f flow.Flow, trigger string) {
	fmt.Printf("\n  %s▶%s %s%s%s %s(trigger: %s, %d steps)%s\n",
		color(colorCyan), color(colorReset),
		color(colorBold), f.Name, color(colorReset),
		color(colorGray), trigger, len(f.Steps), color(colorReset))
	fmt.Println(strings.Repeat("─", 60))
}

func (p *runPrinter) stepStarted(index int, kind flow.Kind) {
	p.mu.Lock()
	p.kinds[index] = kind
	p.started[index] = time.Now()
	p.mu.Unlock()
}

func (p *runPrinter) stepFinished(index int, status runlog.StepStatus) {
	p.mu.Lock()
	kind := p.kinds[index]
	durationMs := int64(0)
	if startedAt, ok := p.started[index]; ok {
		durationMs = time.Since(startedAt).Milliseconds()
	}
	p.mu.Unlock()

	durStr := formatDuration(durationMs)
	if status == runlog.StepSuccess {
		fmt.Printf("    %s✓%s %d. %s %s(%s)%s\n",
			color(colorGreen), color(colorReset), index+1, kind,
			color(colorDim), durStr, color(colorReset))
		return
	}
	fmt.Printf("    %s✗%s %d. %s (%s)\n",
		color(colorRed), color(colorReset), index+1, kind, durStr)
}

func (p *runPrinter) runFinished(f flow.Flow, trigger string, status runlog.Status) {
	fmt.Printf("  %s\n\n", statusLabel(status))
}

// statusLabel renders a run status with its color: green for completed,
// red for failed, yellow for stopped.
func statusLabel(status runlog.Status) string {
	switch status {
	case runlog.StatusCompleted:
		return color(colorGreen) + "✓ completed" + color(colorReset)
	case runlog.StatusFailed:
		return color(colorRed) + "✗ failed" + color(colorReset)
	case runlog.StatusStopped:
		return color(colorYellow) + "⚠ stopped" + color(colorReset)
	default:
		return string(status)
	}
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}

// describeTriggers renders a flow's trigger column for listings, for
// example "hotkey ctrl+alt+f, daily@09:30".
func describeTriggers(f flow.Flow) string {
	var parts []string
	if f.Hotkey != nil && len(f.Hotkey.Keys) > 0 {
		parts = append(parts, "hotkey "+f.Hotkey.String())
	}
	if f.Schedule != nil {
		parts = append(parts, fmt.Sprintf("%s@%s", f.Schedule.Type, f.Schedule.Expression))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
