package action

import (
	"github.com/devicelab-dev/deskflow/pkg/driver"
	"github.com/devicelab-dev/deskflow/pkg/flow"
)

// New constructs the Action for a step. Missing parameters take their
// documented defaults; an unknown kind fails with *UnsupportedError.
func New(step flow.Step) (Action, error) {
	p := params(step.Params)
	switch step.Action {
	case flow.KindTypeText:
		return &TypeTextAction{
			Text:       p.str("text", ""),
			Mode:       p.str("mode", "key_in"),
			IntervalMs: p.optInt("interval_ms"),
		}, nil

	case flow.KindKeyPress:
		return &KeyPressAction{Key: p.str("key", "")}, nil

	case flow.KindHotkey:
		return &HotkeyAction{Keys: p.strs("keys")}, nil

	case flow.KindClick:
		return &ClickAction{
			X:      p.num("x", 0),
			Y:      p.num("y", 0),
			Button: p.str("button", "left"),
			Clicks: p.num("clicks", 1),
		}, nil

	case flow.KindScroll:
		return &ScrollAction{
			Delta: p.num("delta", 0),
			X:     p.optInt("x"),
			Y:     p.optInt("y"),
		}, nil

	case flow.KindWait:
		return &WaitAction{Ms: p.num("ms", 0)}, nil

	case flow.KindFocusWindow:
		return &FocusWindowAction{TitleContains: p.str("title_contains", "")}, nil

	case flow.KindMoveMouse:
		return &MoveMouseAction{
			X:          p.num("x", 0),
			Y:          p.num("y", 0),
			DurationMs: p.optInt("duration_ms"),
		}, nil

	case flow.KindDragMouse:
		return &DragMouseAction{
			FromX:      p.num("from_x", 0),
			FromY:      p.num("from_y", 0),
			ToX:        p.num("to_x", 0),
			ToY:        p.num("to_y", 0),
			DurationMs: p.optInt("duration_ms"),
		}, nil

	case flow.KindBrowserOpen:
		return &BrowserOpenAction{
			URL:         p.str("url", ""),
			Headless:    p.optBool("headless"),
			UserDataDir: p.str("user_data_dir", ""),
			ProfileDir:  p.str("profile_dir", ""),
			UseDefaults: p.boolean("use_defaults", true),
		}, nil

	case flow.KindBrowserClick:
		return &BrowserClickAction{
			Selector: p.str("selector", ""),
			By:       driver.ResolveBy(p.str("by", "css")),
		}, nil

	case flow.KindBrowserType:
		return &BrowserTypeAction{
			Selector:   p.str("selector", ""),
			Text:       p.str("text", ""),
			By:         driver.ResolveBy(p.str("by", "css")),
			ClearFirst: p.boolean("clear_first", true),
		}, nil

	case flow.KindBrowserWait:
		return &BrowserWaitAction{
			Selector: p.str("selector", ""),
			By:       driver.ResolveBy(p.str("by", "css")),
			TimeoutS: p.num("timeout_s", 10),
		}, nil

	case flow.KindBrowserPress:
		return &BrowserPressAction{Keys: p.strs("keys")}, nil

	case flow.KindBrowserClose:
		return &BrowserCloseAction{}, nil
	}
	return nil, &UnsupportedError{Kind: step.Action}
}

// params wraps a step's parameter map with typed accessors. JSON decoding
// yields float64 numbers and YAML yields ints, so numeric lookups accept
// both.
type params map[string]any

func (p params) str(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

func (p params) num(key string, def int) int {
	if v, ok := toInt(p[key]); ok {
		return v
	}
	return def
}

func (p params) optInt(key string) *int {
	if v, ok := toInt(p[key]); ok {
		return &v
	}
	return nil
}

func (p params) boolean(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

func (p params) optBool(key string) *bool {
	if v, ok := p[key].(bool); ok {
		return &v
	}
	return nil
}

func (p params) strs(key string) []string {
	raw, ok := p[key].([]any)
	if !ok {
		if v, ok := p[key].([]string); ok {
			return v
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
