// Package mock provides in-memory drivers for exercising flows without
// touching the real desktop. Every call is recorded for assertions, and
// failures can be injected at any call position.
package mock

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/driver"
)

// Config configures mock driver behavior.
type Config struct {
	// FailOnCall makes call N fail (1-indexed). 0 = never fail.
	FailOnCall int
	// CallDelay adds artificial delay per call.
	CallDelay time.Duration
	// WindowTitles are the window titles FocusWindow matches against.
	WindowTitles []string
	// MissingSelectors lists selectors the browser session never finds.
	MissingSelectors []string
}

// Driver is a mock implementation of driver.Input, driver.Windows and
// driver.Browser backed by an in-memory call log.
type Driver struct {
	Config Config

	mu           sync.Mutex
	calls        []string
	callCount    int
	sessionsOpen int
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	return &Driver{Config: cfg}
}

// Calls returns a copy of the recorded call log.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// CallCount returns the number of driver calls made so far.
func (d *Driver) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.callCount
}

// OpenSessions returns the number of browser sessions launched and not
// yet closed.
func (d *Driver) OpenSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionsOpen
}

// record logs one call and injects the configured failure.
func (d *Driver) record(call string) error {
	d.mu.Lock()
	d.callCount++
	n := d.callCount
	d.calls = append(d.calls, call)
	d.mu.Unlock()

	if d.Config.CallDelay > 0 {
		time.Sleep(d.Config.CallDelay)
	}
	if d.Config.FailOnCall > 0 && n == d.Config.FailOnCall {
		return driver.NewFault(driver.CategoryInput, "mock_failure",
			fmt.Sprintf("mock failure on call %d", n))
	}
	return nil
}

func (d *Driver) missing(selector string) bool {
	for _, s := range d.Config.MissingSelectors {
		if s == selector {
			return true
		}
	}
	return false
}

// TypeText implements driver.Input.
func (d *Driver) TypeText(text string, interval time.Duration) error {
	return d.record(fmt.Sprintf("type_text(%q,%s)", text, interval))
}

// PasteText implements driver.Input.
func (d *Driver) PasteText(text string) error {
	return d.record(fmt.Sprintf("paste_text(%q)", text))
}

// KeyPress implements driver.Input.
func (d *Driver) KeyPress(key string) error {
	return d.record(fmt.Sprintf("key_press(%s)", key))
}

// Hotkey implements driver.Input.
func (d *Driver) Hotkey(keys []string) error {
	return d.record(fmt.Sprintf("hotkey(%s)", strings.Join(keys, "+")))
}

// Click implements driver.Input.
func (d *Driver) Click(x, y int, button string, clicks int) error {
	return d.record(fmt.Sprintf("click(%d,%d,%s,%d)", x, y, button, clicks))
}

// Scroll implements driver.Input.
func (d *Driver) Scroll(delta int, x, y *int) error {
	if x != nil && y != nil {
		return d.record(fmt.Sprintf("scroll(%d,%d,%d)", delta, *x, *y))
	}
	return d.record(fmt.Sprintf("scroll(%d)", delta))
}

// MoveMouse implements driver.Input.
func (d *Driver) MoveMouse(x, y int, duration time.Duration) error {
	return d.record(fmt.Sprintf("move_mouse(%d,%d,%s)", x, y, duration))
}

// DragMouse implements driver.Input.
func (d *Driver) DragMouse(fromX, fromY, toX, toY int, duration time.Duration) error {
	return d.record(fmt.Sprintf("drag_mouse(%d,%d,%d,%d,%s)", fromX, fromY, toX, toY, duration))
}

// FocusWindow implements driver.Windows.
func (d *Driver) FocusWindow(titleContains string) error {
	if err := d.record(fmt.Sprintf("focus_window(%q)", titleContains)); err != nil {
		return err
	}
	for _, title := range d.Config.WindowTitles {
		if strings.Contains(title, titleContains) {
			return nil
		}
	}
	return driver.ErrWindowNotFound.WithDetails(map[string]any{"title_contains": titleContains})
}

// Launch implements driver.Browser.
func (d *Driver) Launch(opts driver.Options) (driver.Session, error) {
	if err := d.record(fmt.Sprintf("browser_launch(headless=%t)", opts.Headless)); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.sessionsOpen++
	d.mu.Unlock()
	return &session{driver: d}, nil
}

// session is a mock browser session sharing its parent's call log.
type session struct {
	driver *Driver
	closed bool
}

func (s *session) Open(url string) error {
	return s.driver.record(fmt.Sprintf("browser_open(%s)", url))
}

func (s *session) Click(selector, by string) error {
	if err := s.driver.record(fmt.Sprintf("browser_click(%s,%s)", selector, by)); err != nil {
		return err
	}
	if s.driver.missing(selector) {
		return driver.ErrElementNotFound.WithDetails(map[string]any{"selector": selector})
	}
	return nil
}

func (s *session) Type(selector, text string, clearFirst bool, by string) error {
	if err := s.driver.record(fmt.Sprintf("browser_type(%s,%q,clear=%t,%s)", selector, text, clearFirst, by)); err != nil {
		return err
	}
	if s.driver.missing(selector) {
		return driver.ErrElementNotFound.WithDetails(map[string]any{"selector": selector})
	}
	return nil
}

func (s *session) WaitFor(selector, by string, timeout time.Duration) error {
	if err := s.driver.record(fmt.Sprintf("browser_wait(%s,%s,%s)", selector, by, timeout)); err != nil {
		return err
	}
	if s.driver.missing(selector) {
		return driver.ErrWaitTimeout.WithDetails(map[string]any{"selector": selector, "timeout": timeout.String()})
	}
	return nil
}

func (s *session) Press(keys []string) error {
	return s.driver.record(fmt.Sprintf("browser_press(%s)", strings.Join(keys, "+")))
}

func (s *session) Close() error {
	if err := s.driver.record("browser_close()"); err != nil {
		return err
	}
	if !s.closed {
		s.closed = true
		s.driver.mu.Lock()
		s.driver.sessionsOpen--
		s.driver.mu.Unlock()
	}
	return nil
}
