package flow

// Kind is a step's action tag. The vocabulary is a fixed wire contract:
// unknown kinds are rejected at validation and again at action construction.
type Kind string

const (
	KindTypeText    Kind = "type_text"
	KindKeyPress    Kind = "key_press"
	KindHotkey      Kind = "hotkey"
	KindClick       Kind = "click"
	KindScroll      Kind = "scroll"
	KindWait        Kind = "wait"
	KindFocusWindow Kind = "focus_window"
	KindMoveMouse   Kind = "move_mouse"
	KindDragMouse   Kind = "drag_mouse"

	KindBrowserOpen  Kind = "browser_open"
	KindBrowserClick Kind = "browser_click"
	KindBrowserType  Kind = "browser_type"
	KindBrowserWait  Kind = "browser_wait"
	KindBrowserPress Kind = "browser_press"
	KindBrowserClose Kind = "browser_close"
)

// kindOrder lists the vocabulary in wire-contract order.
var kindOrder = []Kind{
	KindTypeText,
	KindKeyPress,
	KindHotkey,
	KindClick,
	KindScroll,
	KindWait,
	KindFocusWindow,
	KindMoveMouse,
	KindDragMouse,
	KindBrowserOpen,
	KindBrowserClick,
	KindBrowserType,
	KindBrowserWait,
	KindBrowserPress,
	KindBrowserClose,
}

var knownKinds = func() map[Kind]bool {
	m := make(map[Kind]bool, len(kindOrder))
	for _, k := range kindOrder {
		m[k] = true
	}
	return m
}()

// Valid reports whether k is part of the closed action vocabulary.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// Kinds returns the full action vocabulary in wire-contract order.
// The result is a copy and safe to modify.
func Kinds() []Kind {
	out := make([]Kind, len(kindOrder))
	copy(out, kindOrder)
	return out
}
