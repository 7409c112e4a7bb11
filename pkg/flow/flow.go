// Package flow handles parsing, validation and persistence of deskflow
// automation flows. A flow is a named, ordered list of steps with optional
// hotkey and schedule triggers.
package flow

import (
	"encoding/json"
	"strings"
)

// Flow is a reusable automation sequence. Step order is significant and
// preserved through serialization.
type Flow struct {
	ID                 string           `json:"id" yaml:"id"`
	Name               string           `json:"name" yaml:"name"`
	Steps              []Step           `json:"steps" yaml:"steps"`
	Hotkey             *HotkeyTrigger   `json:"hotkey" yaml:"hotkey"`
	Schedule           *ScheduleTrigger `json:"schedule" yaml:"schedule"`
	RequireWindowFocus bool             `json:"require_window_focus" yaml:"require_window_focus"`
}

// Step is one action kind plus its kind-specific parameters.
// Parameter keys are unique; values are typed per kind (see the action package).
type Step struct {
	Action Kind           `json:"action" yaml:"action"`
	Params map[string]any `json:"params" yaml:"params"`
}

// MarshalJSON always emits a params object, never null, matching the
// flow file wire schema.
func (s Step) MarshalJSON() ([]byte, error) {
	type alias Step
	a := alias(s)
	if a.Params == nil {
		a.Params = map[string]any{}
	}
	return json.Marshal(a)
}

// HotkeyTrigger is a global key combination that starts the flow.
type HotkeyTrigger struct {
	Keys []string `json:"keys" yaml:"keys"`
}

// Normalized returns the key tuple lowercased and trimmed, order preserved.
// Two triggers conflict only when their normalized tuples are exactly equal;
// reordered combinations ("ctrl+alt+s" vs "alt+ctrl+s") are distinct.
func (h *HotkeyTrigger) Normalized() []string {
	keys := make([]string, len(h.Keys))
	for i, k := range h.Keys {
		keys[i] = strings.ToLower(strings.TrimSpace(k))
	}
	return keys
}

// String renders the combination as "ctrl+alt+f".
func (h *HotkeyTrigger) String() string {
	return strings.Join(h.Normalized(), "+")
}

// ScheduleType selects how a schedule expression is interpreted.
type ScheduleType string

const (
	// ScheduleDaily fires every day; expression is "HH:MM".
	ScheduleDaily ScheduleType = "daily"
	// ScheduleWeekly fires on listed weekdays; expression is "mon,tue@HH:MM".
	ScheduleWeekly ScheduleType = "weekly"
	// ScheduleCron fires per a five-field cron expression.
	ScheduleCron ScheduleType = "cron"
)

// Valid reports whether t is a known schedule type.
func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleDaily, ScheduleWeekly, ScheduleCron:
		return true
	}
	return false
}

// ScheduleTrigger starts the flow on a timer.
type ScheduleTrigger struct {
	Type       ScheduleType `json:"type" yaml:"type"`
	Expression string       `json:"expression" yaml:"expression"`
}

// FindByID returns the flow with the given id.
func FindByID(flows []Flow, id string) (*Flow, bool) {
	for i := range flows {
		if flows[i].ID == id {
			return &flows[i], true
		}
	}
	return nil, false
}

// Lookup resolves a flow by id first, then by display name.
func Lookup(flows []Flow, key string) (*Flow, bool) {
	if f, ok := FindByID(flows, key); ok {
		return f, true
	}
	for i := range flows {
		if flows[i].Name == key {
			return &flows[i], true
		}
	}
	return nil, false
}
