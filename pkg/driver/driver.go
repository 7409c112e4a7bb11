// Package driver defines the desktop automation capabilities flows execute
// against: input injection, window focus, and browser sessions. The engine
// and actions are written against these interfaces; concrete implementations
// (OS hooks, a WebDriver client) and the in-memory mock live in subpackages.
package driver

import "time"

// Input injects keyboard and mouse events on the desktop. Calls block until
// the injection completes; they are not interruptible mid-call.
type Input interface {
	// TypeText types text character by character, pausing interval between
	// keystrokes. A zero interval types as fast as the OS accepts.
	TypeText(text string, interval time.Duration) error

	// PasteText places text on the clipboard and issues the paste chord.
	PasteText(text string) error

	// KeyPress presses and releases a single named key.
	KeyPress(key string) error

	// Hotkey holds the keys down in order and releases them in reverse.
	Hotkey(keys []string) error

	// Click clicks at screen coordinates with the given button
	// ("left", "right", "middle") the given number of times.
	Click(x, y int, button string, clicks int) error

	// Scroll scrolls by delta notches. When x and y are non-nil the cursor
	// is moved there first, otherwise scrolling happens at the current
	// cursor position.
	Scroll(delta int, x, y *int) error

	// MoveMouse moves the cursor to screen coordinates over duration.
	MoveMouse(x, y int, duration time.Duration) error

	// DragMouse presses at the start point, drags to the end point over
	// duration, and releases.
	DragMouse(fromX, fromY, toX, toY int, duration time.Duration) error
}

// Windows locates and focuses desktop windows.
type Windows interface {
	// FocusWindow activates the first window whose title contains the
	// given substring. Returns ErrWindowNotFound when nothing matches.
	FocusWindow(titleContains string) error
}

// ResolveBy canonicalizes a selector strategy name. Anything outside the
// known set resolves to "css".
func ResolveBy(by string) string {
	switch by {
	case "css", "xpath", "id", "name":
		return by
	default:
		return "css"
	}
}

// Options configures a browser session launch.
type Options struct {
	Headless    bool
	UserDataDir string
	ProfileDir  string
}

// Browser launches browser automation sessions.
type Browser interface {
	Launch(opts Options) (Session, error)
}

// Session is one live browser session. Sessions are used by at most one
// flow run at a time, so implementations need no internal locking.
type Session interface {
	// Open navigates to url.
	Open(url string) error

	// Click clicks the first element matched by selector. by is one of
	// "css", "xpath", "id", "name"; unknown values fall back to "css".
	Click(selector, by string) error

	// Type sends text to the matched element, clearing it first when
	// clearFirst is set.
	Type(selector, text string, clearFirst bool, by string) error

	// WaitFor polls until the selector matches an element or the timeout
	// elapses, returning ErrWaitTimeout in the latter case.
	WaitFor(selector, by string, timeout time.Duration) error

	// Press sends named keys (enter, tab, escape) to the focused element.
	Press(keys []string) error

	// Close ends the session and the underlying browser process.
	Close() error
}
