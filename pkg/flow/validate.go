package flow

import (
	"fmt"
	"strings"
)

// ValidationError reports an invalid flow definition.
type ValidationError struct {
	FlowID  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.FlowID == "" {
		return e.Message
	}
	return fmt.Sprintf("flow %s: %s", e.FlowID, e.Message)
}

// Validate checks a single flow definition: identity fields, step kinds
// against the closed vocabulary, and trigger shapes. It returns the first
// problem found.
func (f *Flow) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return &ValidationError{Message: "missing id"}
	}
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{FlowID: f.ID, Message: "missing name"}
	}
	for i, step := range f.Steps {
		if !step.Action.Valid() {
			return &ValidationError{
				FlowID:  f.ID,
				Message: fmt.Sprintf("step %d: unknown action %q (known: %s)", i, step.Action, kindList()),
			}
		}
	}
	if f.Hotkey != nil && len(f.Hotkey.Keys) == 0 {
		return &ValidationError{FlowID: f.ID, Message: "hotkey trigger has no keys"}
	}
	if f.Schedule != nil {
		if !f.Schedule.Type.Valid() {
			return &ValidationError{
				FlowID:  f.ID,
				Message: fmt.Sprintf("unknown schedule type %q", f.Schedule.Type),
			}
		}
		if _, err := f.Schedule.CronSpec(); err != nil {
			return &ValidationError{FlowID: f.ID, Message: err.Error()}
		}
	}
	return nil
}

// ValidateAll validates each flow and the cross-flow invariants: ids are
// unique, and no two flows claim the same exact hotkey tuple.
func ValidateAll(flows []Flow) []error {
	var errs []error
	seenIDs := make(map[string]bool, len(flows))
	seenHotkeys := make(map[string]string, len(flows))

	for i := range flows {
		f := &flows[i]
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seenIDs[f.ID] {
			errs = append(errs, &ValidationError{FlowID: f.ID, Message: "duplicate id"})
			continue
		}
		seenIDs[f.ID] = true
		if f.Hotkey != nil {
			combo := f.Hotkey.String()
			if prev, taken := seenHotkeys[combo]; taken {
				errs = append(errs, &ValidationError{
					FlowID:  f.ID,
					Message: fmt.Sprintf("hotkey %q already used by flow %s", combo, prev),
				})
				continue
			}
			seenHotkeys[combo] = f.ID
		}
	}
	return errs
}

func kindList() string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
