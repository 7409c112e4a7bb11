// Package action turns flow steps into executable capabilities. Each step
// kind maps to one Action variant; the set is closed and construction fails
// fast on unknown kinds.
package action

import (
	"fmt"

	"github.com/devicelab-dev/deskflow/pkg/driver"
	"github.com/devicelab-dev/deskflow/pkg/flow"
)

// Action is the capability behind one step: execute it against the run's
// context, and describe its parameters for logging. Execute is not
// interruptible mid-call; a blocking action runs to its own completion or
// internal timeout before the runner re-checks cancellation.
type Action interface {
	Execute(ctx *Context) error
	Summary() map[string]any
}

// Context is the per-run state shared by all steps of one run. It is owned
// by exactly one runner invocation; because runs never overlap, no field
// needs synchronization beyond ordered access.
type Context struct {
	// Input injects keyboard and mouse events.
	Input driver.Input
	// Windows focuses desktop windows.
	Windows driver.Windows
	// Browser owns the shared browser session, lazily launched on the
	// first browser step.
	Browser *Controller
	// BrowserDefaults seed browser_open options when use_defaults is set.
	BrowserDefaults driver.Options
	// CloseBrowserOnFinish releases the browser at run end instead of
	// retaining it for the next run.
	CloseBrowserOnFinish bool
	// RequireWindowFocus carries the flow's focus policy flag.
	RequireWindowFocus bool
	// ShouldStop is the read-only view of the cooperative stop flag.
	// Sampled by the runner at step boundaries only.
	ShouldStop func() bool
}

// UnsupportedError reports a step kind outside the closed action vocabulary.
// It is fatal to the run it occurs in, never to the process.
type UnsupportedError struct {
	Kind flow.Kind
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported action: %s", e.Kind)
}

// previewLen bounds text previews in summaries so large or sensitive
// payloads never reach the run log.
const previewLen = 32

// preview truncates text for summaries.
func preview(text string) string {
	if len(text) <= previewLen {
		return text
	}
	return text[:previewLen] + "..."
}
