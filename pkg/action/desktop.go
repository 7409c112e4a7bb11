package action

import "time"

// TypeTextAction types text via key injection or a clipboard paste.
type TypeTextAction struct {
	Text       string
	Mode       string // "key_in" or "paste"
	IntervalMs *int
}

func (a *TypeTextAction) Execute(ctx *Context) error {
	if a.Mode == "paste" {
		return ctx.Input.PasteText(a.Text)
	}
	var interval time.Duration
	if a.IntervalMs != nil {
		interval = time.Duration(*a.IntervalMs) * time.Millisecond
	}
	return ctx.Input.TypeText(a.Text, interval)
}

// Summary reports the text length, never the text itself.
func (a *TypeTextAction) Summary() map[string]any {
	return map[string]any{
		"mode":        a.Mode,
		"length":      len(a.Text),
		"interval_ms": optInt(a.IntervalMs),
	}
}

// KeyPressAction presses and releases a single key.
type KeyPressAction struct {
	Key string
}

func (a *KeyPressAction) Execute(ctx *Context) error {
	return ctx.Input.KeyPress(a.Key)
}

func (a *KeyPressAction) Summary() map[string]any {
	return map[string]any{"key": a.Key}
}

// HotkeyAction presses a key combination.
type HotkeyAction struct {
	Keys []string
}

func (a *HotkeyAction) Execute(ctx *Context) error {
	return ctx.Input.Hotkey(a.Keys)
}

func (a *HotkeyAction) Summary() map[string]any {
	return map[string]any{"keys": a.Keys}
}

// ClickAction clicks at screen coordinates.
type ClickAction struct {
	X      int
	Y      int
	Button string
	Clicks int
}

func (a *ClickAction) Execute(ctx *Context) error {
	return ctx.Input.Click(a.X, a.Y, a.Button, a.Clicks)
}

func (a *ClickAction) Summary() map[string]any {
	return map[string]any{"x": a.X, "y": a.Y, "button": a.Button, "clicks": a.Clicks}
}

// ScrollAction scrolls by delta notches, optionally at a fixed point.
type ScrollAction struct {
	Delta int
	X     *int
	Y     *int
}

func (a *ScrollAction) Execute(ctx *Context) error {
	return ctx.Input.Scroll(a.Delta, a.X, a.Y)
}

func (a *ScrollAction) Summary() map[string]any {
	return map[string]any{"delta": a.Delta, "x": optInt(a.X), "y": optInt(a.Y)}
}

// WaitAction sleeps for a fixed duration. The sleep always runs to
// completion; stop requests take effect at the next step boundary.
type WaitAction struct {
	Ms int
}

func (a *WaitAction) Execute(ctx *Context) error {
	time.Sleep(time.Duration(a.Ms) * time.Millisecond)
	return nil
}

func (a *WaitAction) Summary() map[string]any {
	return map[string]any{"ms": a.Ms}
}

// FocusWindowAction activates the first window whose title contains the
// given substring. An empty title makes the step a no-op.
type FocusWindowAction struct {
	TitleContains string
}

func (a *FocusWindowAction) Execute(ctx *Context) error {
	if a.TitleContains == "" {
		return nil
	}
	return ctx.Windows.FocusWindow(a.TitleContains)
}

func (a *FocusWindowAction) Summary() map[string]any {
	return map[string]any{"title_contains": a.TitleContains}
}

// MoveMouseAction moves the cursor to screen coordinates.
type MoveMouseAction struct {
	X          int
	Y          int
	DurationMs *int
}

func (a *MoveMouseAction) Execute(ctx *Context) error {
	return ctx.Input.MoveMouse(a.X, a.Y, msDuration(a.DurationMs))
}

func (a *MoveMouseAction) Summary() map[string]any {
	return map[string]any{"x": a.X, "y": a.Y, "duration_ms": optInt(a.DurationMs)}
}

// DragMouseAction drags from one point to another with the button held.
type DragMouseAction struct {
	FromX      int
	FromY      int
	ToX        int
	ToY        int
	DurationMs *int
}

func (a *DragMouseAction) Execute(ctx *Context) error {
	return ctx.Input.DragMouse(a.FromX, a.FromY, a.ToX, a.ToY, msDuration(a.DurationMs))
}

func (a *DragMouseAction) Summary() map[string]any {
	return map[string]any{
		"from_x":      a.FromX,
		"from_y":      a.FromY,
		"to_x":        a.ToX,
		"to_y":        a.ToY,
		"duration_ms": optInt(a.DurationMs),
	}
}

// msDuration converts an optional millisecond count, nil meaning instant.
func msDuration(ms *int) time.Duration {
	if ms == nil {
		return 0
	}
	return time.Duration(*ms) * time.Millisecond
}

// optInt keeps nil visible in summaries instead of collapsing it to zero.
func optInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
