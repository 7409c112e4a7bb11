package action

import (
	"time"

	"github.com/devicelab-dev/deskflow/pkg/driver"
)

// Controller owns the single shared browser session. The session is
// launched lazily on the first browser_open step, reused by later steps of
// the same run and, unless the close-on-finish policy says otherwise, by
// subsequent runs. Runs never overlap, so the controller is only ever
// accessed in order and needs no lock.
type Controller struct {
	browser driver.Browser
	session driver.Session
}

// NewController creates a controller launching sessions from b.
func NewController(b driver.Browser) *Controller {
	return &Controller{browser: b}
}

// Ensure returns the live session, launching one with opts if none exists.
// Options only apply to the launch; an already-running session is returned
// as-is.
func (c *Controller) Ensure(opts driver.Options) (driver.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	session, err := c.browser.Launch(opts)
	if err != nil {
		return nil, err
	}
	c.session = session
	return session, nil
}

// Session returns the live session or ErrBrowserNotStarted.
func (c *Controller) Session() (driver.Session, error) {
	if c.session == nil {
		return nil, driver.ErrBrowserNotStarted
	}
	return c.session, nil
}

// Active reports whether a session is live.
func (c *Controller) Active() bool {
	return c.session != nil
}

// Close ends the session if one is live. Safe to call repeatedly.
func (c *Controller) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// BrowserOpenAction launches the browser if needed and navigates to a URL.
type BrowserOpenAction struct {
	URL         string
	Headless    *bool
	UserDataDir string
	ProfileDir  string
	UseDefaults bool
}

func (a *BrowserOpenAction) Execute(ctx *Context) error {
	var opts driver.Options
	if a.UseDefaults {
		opts = ctx.BrowserDefaults
	}
	if a.Headless != nil {
		opts.Headless = *a.Headless
	}
	if a.UserDataDir != "" {
		opts.UserDataDir = a.UserDataDir
	}
	if a.ProfileDir != "" {
		opts.ProfileDir = a.ProfileDir
	}
	session, err := ctx.Browser.Ensure(opts)
	if err != nil {
		return err
	}
	return session.Open(a.URL)
}

func (a *BrowserOpenAction) Summary() map[string]any {
	return map[string]any{
		"url":          preview(a.URL),
		"use_defaults": a.UseDefaults,
	}
}

// BrowserClickAction clicks an element in the live session.
type BrowserClickAction struct {
	Selector string
	By       string
}

func (a *BrowserClickAction) Execute(ctx *Context) error {
	session, err := ctx.Browser.Session()
	if err != nil {
		return err
	}
	return session.Click(a.Selector, a.By)
}

func (a *BrowserClickAction) Summary() map[string]any {
	return map[string]any{"selector": a.Selector, "by": a.By}
}

// BrowserTypeAction sends text to an element in the live session.
type BrowserTypeAction struct {
	Selector   string
	Text       string
	By         string
	ClearFirst bool
}

func (a *BrowserTypeAction) Execute(ctx *Context) error {
	session, err := ctx.Browser.Session()
	if err != nil {
		return err
	}
	return session.Type(a.Selector, a.Text, a.ClearFirst, a.By)
}

// Summary reports the text length, never the text itself.
func (a *BrowserTypeAction) Summary() map[string]any {
	return map[string]any{
		"selector":    a.Selector,
		"by":          a.By,
		"clear_first": a.ClearFirst,
		"length":      len(a.Text),
	}
}

// BrowserWaitAction polls until an element appears or the timeout elapses.
type BrowserWaitAction struct {
	Selector string
	By       string
	TimeoutS int
}

func (a *BrowserWaitAction) Execute(ctx *Context) error {
	session, err := ctx.Browser.Session()
	if err != nil {
		return err
	}
	return session.WaitFor(a.Selector, a.By, time.Duration(a.TimeoutS)*time.Second)
}

func (a *BrowserWaitAction) Summary() map[string]any {
	return map[string]any{"selector": a.Selector, "by": a.By, "timeout_s": a.TimeoutS}
}

// BrowserPressAction sends named keys to the focused element.
type BrowserPressAction struct {
	Keys []string
}

func (a *BrowserPressAction) Execute(ctx *Context) error {
	session, err := ctx.Browser.Session()
	if err != nil {
		return err
	}
	return session.Press(a.Keys)
}

func (a *BrowserPressAction) Summary() map[string]any {
	return map[string]any{"keys": a.Keys}
}

// BrowserCloseAction ends the live session. A no-op when none is running.
type BrowserCloseAction struct{}

func (a *BrowserCloseAction) Execute(ctx *Context) error {
	return ctx.Browser.Close()
}

func (a *BrowserCloseAction) Summary() map[string]any {
	return map[string]any{}
}
