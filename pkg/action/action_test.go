package action

import (
	"errors"
	"strings"
	"testing"

	"github.com/devicelab-dev/deskflow/pkg/driver"
	"github.com/devicelab-dev/deskflow/pkg/driver/mock"
	"github.com/devicelab-dev/deskflow/pkg/flow"
)

func newTestContext(d *mock.Driver) *Context {
	return &Context{
		Input:   d,
		Windows: d,
		Browser: NewController(d),
	}
}

func TestDesktopActions_DriveInput(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)

	steps := []flow.Step{
		{Action: flow.KindClick, Params: map[string]any{"x": 5, "y": 5}},
		{Action: flow.KindKeyPress, Params: map[string]any{"key": "enter"}},
		{Action: flow.KindHotkey, Params: map[string]any{"keys": []any{"ctrl", "s"}}},
		{Action: flow.KindMoveMouse, Params: map[string]any{"x": 1, "y": 2}},
	}
	for _, step := range steps {
		a, err := New(step)
		if err != nil {
			t.Fatalf("New(%s): %v", step.Action, err)
		}
		if err := a.Execute(ctx); err != nil {
			t.Fatalf("Execute(%s): %v", step.Action, err)
		}
	}

	calls := d.Calls()
	want := []string{"click(5,5,left,1)", "key_press(enter)", "hotkey(ctrl+s)", "move_mouse(1,2,0s)"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(calls), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestTypeTextAction_PasteMode(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)

	a, _ := New(flow.Step{
		Action: flow.KindTypeText,
		Params: map[string]any{"text": "hello", "mode": "paste"},
	})
	if err := a.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := d.Calls()
	if len(calls) != 1 || !strings.HasPrefix(calls[0], "paste_text") {
		t.Errorf("expected paste_text call, got %v", calls)
	}
}

func TestFocusWindowAction_EmptyTitleIsNoop(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)

	a, _ := New(flow.Step{Action: flow.KindFocusWindow})
	if err := a.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := d.CallCount(); n != 0 {
		t.Errorf("expected no driver calls, got %d", n)
	}
}

func TestFocusWindowAction_WindowNotFound(t *testing.T) {
	d := mock.New(mock.Config{WindowTitles: []string{"Notes - Editor"}})
	ctx := newTestContext(d)

	a, _ := New(flow.Step{
		Action: flow.KindFocusWindow,
		Params: map[string]any{"title_contains": "Notes"},
	})
	if err := a.Execute(ctx); err != nil {
		t.Fatalf("expected match, got %v", err)
	}

	a, _ = New(flow.Step{
		Action: flow.KindFocusWindow,
		Params: map[string]any{"title_contains": "Browser"},
	})
	err := a.Execute(ctx)
	if !errors.Is(err, driver.ErrWindowNotFound) {
		t.Errorf("expected ErrWindowNotFound, got %v", err)
	}
}

func TestBrowserActions_RequireOpenSession(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)

	a, _ := New(flow.Step{
		Action: flow.KindBrowserClick,
		Params: map[string]any{"selector": "#go"},
	})
	err := a.Execute(ctx)
	if !errors.Is(err, driver.ErrBrowserNotStarted) {
		t.Fatalf("expected ErrBrowserNotStarted, got %v", err)
	}
}

func TestBrowserOpen_LaunchesOnce(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)

	open, _ := New(flow.Step{
		Action: flow.KindBrowserOpen,
		Params: map[string]any{"url": "https://example.com"},
	})
	if err := open.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := open.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := d.OpenSessions(); got != 1 {
		t.Errorf("expected 1 open session, got %d", got)
	}

	launches := 0
	for _, c := range d.Calls() {
		if strings.HasPrefix(c, "browser_launch") {
			launches++
		}
	}
	if launches != 1 {
		t.Errorf("expected exactly 1 launch, got %d", launches)
	}
}

func TestBrowserOpen_DefaultsAndOverrides(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)
	ctx.BrowserDefaults = driver.Options{Headless: true, ProfileDir: "Default"}

	open, _ := New(flow.Step{
		Action: flow.KindBrowserOpen,
		Params: map[string]any{"url": "https://example.com", "headless": false},
	})
	if err := open.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := d.Calls()
	if calls[0] != "browser_launch(headless=false)" {
		t.Errorf("expected step override to win, got %q", calls[0])
	}
}

func TestBrowserClose_IdempotentWithoutSession(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)

	a, _ := New(flow.Step{Action: flow.KindBrowserClose})
	if err := a.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := d.CallCount(); n != 0 {
		t.Errorf("expected no driver calls, got %d", n)
	}
}

func TestBrowserSession_SharedAcrossSteps(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx := newTestContext(d)

	script := []flow.Step{
		{Action: flow.KindBrowserOpen, Params: map[string]any{"url": "https://example.com"}},
		{Action: flow.KindBrowserType, Params: map[string]any{"selector": "#q", "text": "cats"}},
		{Action: flow.KindBrowserPress, Params: map[string]any{"keys": []any{"enter"}}},
		{Action: flow.KindBrowserWait, Params: map[string]any{"selector": "#results"}},
		{Action: flow.KindBrowserClose},
	}
	for _, step := range script {
		a, err := New(step)
		if err != nil {
			t.Fatalf("New(%s): %v", step.Action, err)
		}
		if err := a.Execute(ctx); err != nil {
			t.Fatalf("Execute(%s): %v", step.Action, err)
		}
	}

	if got := d.OpenSessions(); got != 0 {
		t.Errorf("expected session closed, got %d open", got)
	}
	if ctx.Browser.Active() {
		t.Error("expected controller to drop the session after close")
	}
}

func TestBrowserWait_Timeout(t *testing.T) {
	d := mock.New(mock.Config{MissingSelectors: []string{"#never"}})
	ctx := newTestContext(d)

	open, _ := New(flow.Step{Action: flow.KindBrowserOpen, Params: map[string]any{"url": "https://example.com"}})
	if err := open.Execute(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wait, _ := New(flow.Step{
		Action: flow.KindBrowserWait,
		Params: map[string]any{"selector": "#never", "timeout_s": 1},
	})
	err := wait.Execute(ctx)
	if !errors.Is(err, driver.ErrWaitTimeout) {
		t.Errorf("expected ErrWaitTimeout, got %v", err)
	}
}
