// Package trigger connects global hotkeys and cron schedules to flow
// runs. All trigger callbacks funnel through one Dispatcher so that the
// busy check is made in a single place.
package trigger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/logger"
)

// ErrHotkeyConflict is returned when a key combination is already bound.
var ErrHotkeyConflict = errors.New("hotkey conflict")

// Hook is the OS-level key listener behind HotkeyManager. Start installs
// a single hook covering every binding, keyed by the canonical
// "+"-joined combination. Stop removes the hook entirely.
type Hook interface {
	Start(bindings map[string]func()) error
	Stop()
}

// NopHook satisfies Hook without installing an OS-level listener.
// Bindings are still tracked and conflict-checked, which keeps flow
// validation and trigger registration working on hosts with no key-hook
// backend.
type NopHook struct{}

func (NopHook) Start(map[string]func()) error { return nil }

func (NopHook) Stop() {}

// Binding is one named key combination. Keys are stored normalized
// (trimmed, lowercased) in their registered order.
type Binding struct {
	Name string
	Keys []string

	callback func()
}

func (b Binding) combo() string {
	return strings.Join(b.Keys, "+")
}

// HotkeyManager keeps named key bindings and rebuilds the underlying
// hook whenever the set changes. The rebuild stops the old hook before
// starting the new one so the two never overlap. Conflicts compare the
// exact ordered key sequence: ctrl+alt+s and alt+ctrl+s are distinct
// bindings.
type HotkeyManager struct {
	mu       sync.Mutex
	hook     Hook
	bindings map[string]Binding
	log      *slog.Logger
}

// NewHotkeyManager wraps the given hook. Pass NopHook{} on hosts without
// a key-hook backend.
func NewHotkeyManager(hook Hook) *HotkeyManager {
	return &HotkeyManager{
		hook:     hook,
		bindings: make(map[string]Binding),
		log:      logger.WithComponent("hotkeys"),
	}
}

// Register adds a binding and rebuilds the hook. It fails with
// ErrHotkeyConflict when any existing binding holds the same ordered
// combination, regardless of the name it was registered under.
func (m *HotkeyManager) Register(name string, keys []string, callback func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	normalized := (&flow.HotkeyTrigger{Keys: keys}).Normalized()
	if len(normalized) == 0 {
		return fmt.Errorf("hotkey for %q has no keys", name)
	}
	combo := strings.Join(normalized, "+")
	for _, b := range m.bindings {
		if b.combo() == combo {
			return fmt.Errorf("%w: %s is already bound as %q", ErrHotkeyConflict, combo, b.Name)
		}
	}

	m.bindings[name] = Binding{Name: name, Keys: normalized, callback: callback}
	return m.rebuild()
}

// Unregister removes the named binding and rebuilds the hook. Unknown
// names are a no-op.
func (m *HotkeyManager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bindings[name]; !ok {
		return nil
	}
	delete(m.bindings, name)
	return m.rebuild()
}

// Bindings returns the current bindings sorted by name.
func (m *HotkeyManager) Bindings() []Binding {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Binding, 0, len(m.bindings))
	for _, b := range m.bindings {
		out = append(out, Binding{Name: b.Name, Keys: append([]string(nil), b.Keys...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop removes the hook and drops every binding.
func (m *HotkeyManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hook.Stop()
	m.bindings = make(map[string]Binding)
}

// rebuild replaces the installed hook with one covering the current
// binding set. Callers hold m.mu.
func (m *HotkeyManager) rebuild() error {
	m.hook.Stop()
	if len(m.bindings) == 0 {
		return nil
	}
	table := make(map[string]func(), len(m.bindings))
	for _, b := range m.bindings {
		table[b.combo()] = m.dispatch(b.Name, b.callback)
	}
	if err := m.hook.Start(table); err != nil {
		return fmt.Errorf("failed to start hotkey hook: %w", err)
	}
	return nil
}

// dispatch hands a key press off to a fresh goroutine so flow work never
// runs on the OS hook thread.
func (m *HotkeyManager) dispatch(name string, callback func()) func() {
	return func() {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("hotkey callback panicked",
						slog.String("binding", name),
						slog.Any("panic", r))
				}
			}()
			callback()
		}()
	}
}
