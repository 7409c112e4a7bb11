// Package settings persists application preferences as a JSON document.
// Loading a missing file yields defaults, and legacy single-hotkey fields
// are migrated into the startup-trigger list so old files keep working.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/driver"
	"github.com/devicelab-dev/deskflow/pkg/flow"
)

// StartupTrigger binds one hotkey combination to an ordered list of flow
// ids. Pressing the combination runs the flows back to back.
type StartupTrigger struct {
	Hotkey  []string `json:"hotkey"`
	FlowIDs []string `json:"flow_ids"`
}

// Settings holds every user-tunable preference.
type Settings struct {
	LogPath              string                `json:"log_path"`
	CloseBrowserOnFinish bool                  `json:"close_browser_on_finish"`
	BrowserHeadless      bool                  `json:"browser_headless"`
	BrowserUserDataDir   string                `json:"browser_user_data_dir,omitempty"`
	BrowserProfileDir    string                `json:"browser_profile_dir,omitempty"`
	StartupHotkey        []string              `json:"startup_hotkey"` // superseded by StartupTriggers
	EmergencyHotkey      []string              `json:"emergency_hotkey"`
	StartupSchedule      *flow.ScheduleTrigger `json:"startup_schedule,omitempty"`
	StartupFlowIDs       []string              `json:"startup_flow_ids"` // superseded by StartupTriggers
	StartupTriggers      []StartupTrigger      `json:"startup_triggers"`
	HotkeyTriggerDelay   float64               `json:"hotkey_trigger_delay"`
	LastFlowsFile        string                `json:"last_flows_file,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		LogPath:              "data/runs.jsonl",
		CloseBrowserOnFinish: true,
		HotkeyTriggerDelay:   0.5,
	}
}

// Load reads settings from path. A missing file yields Default().
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path) //#nosec G304 -- user-provided settings file
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	s.migrate()
	return s, nil
}

// Save writes settings to path, creating parent directories as needed.
func Save(path string, s Settings) error {
	// Older readers expect the legacy list fields to be arrays, never null.
	if s.StartupHotkey == nil {
		s.StartupHotkey = []string{}
	}
	if s.EmergencyHotkey == nil {
		s.EmergencyHotkey = []string{}
	}
	if s.StartupFlowIDs == nil {
		s.StartupFlowIDs = []string{}
	}
	if s.StartupTriggers == nil {
		s.StartupTriggers = []StartupTrigger{}
	}
	for i := range s.StartupTriggers {
		if s.StartupTriggers[i].Hotkey == nil {
			s.StartupTriggers[i].Hotkey = []string{}
		}
		if s.StartupTriggers[i].FlowIDs == nil {
			s.StartupTriggers[i].FlowIDs = []string{}
		}
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// migrate folds the legacy startup_hotkey/startup_flow_ids pair into
// startup_triggers when the new list is empty. The legacy fields are kept
// as read so the file round-trips unchanged.
func (s *Settings) migrate() {
	if len(s.StartupTriggers) > 0 {
		return
	}
	if len(s.StartupHotkey) == 0 || len(s.StartupFlowIDs) == 0 {
		return
	}
	s.StartupTriggers = []StartupTrigger{{
		Hotkey:  append([]string(nil), s.StartupHotkey...),
		FlowIDs: append([]string(nil), s.StartupFlowIDs...),
	}}
}

// SettleDelay converts the hotkey trigger delay (seconds) to a Duration.
func (s Settings) SettleDelay() time.Duration {
	return time.Duration(s.HotkeyTriggerDelay * float64(time.Second))
}

// BrowserOptions assembles the default browser launch options.
func (s Settings) BrowserOptions() driver.Options {
	return driver.Options{
		Headless:    s.BrowserHeadless,
		UserDataDir: s.BrowserUserDataDir,
		ProfileDir:  s.BrowserProfileDir,
	}
}

// ResolvedLogPath returns LogPath anchored at the deskflow home when it
// is relative.
func (s Settings) ResolvedLogPath() string {
	if s.LogPath == "" {
		return filepath.Join(GetHome(), "data", "runs.jsonl")
	}
	if filepath.IsAbs(s.LogPath) {
		return s.LogPath
	}
	return filepath.Join(GetHome(), s.LogPath)
}
