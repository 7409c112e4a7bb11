package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/flow"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.LogPath != "data/runs.jsonl" {
		t.Errorf("LogPath = %q, want data/runs.jsonl", s.LogPath)
	}
	if !s.CloseBrowserOnFinish {
		t.Error("CloseBrowserOnFinish should default to true")
	}
	if s.BrowserHeadless {
		t.Error("BrowserHeadless should default to false")
	}
	if s.HotkeyTriggerDelay != 0.5 {
		t.Errorf("HotkeyTriggerDelay = %v, want 0.5", s.HotkeyTriggerDelay)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"browser_headless": true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !s.BrowserHeadless {
		t.Error("BrowserHeadless not applied")
	}
	if !s.CloseBrowserOnFinish {
		t.Error("absent close_browser_on_finish must keep its default")
	}
	if s.LogPath != "data/runs.jsonl" {
		t.Errorf("LogPath = %q, want default", s.LogPath)
	}
}

func TestLoad_ExplicitFalseHonored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"close_browser_on_finish": false}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.CloseBrowserOnFinish {
		t.Error("explicit false was overridden by the default")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_LegacyMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	payload := `{
		"startup_hotkey": ["ctrl", "alt", "1"],
		"startup_flow_ids": ["f1", "f2"]
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.StartupTriggers) != 1 {
		t.Fatalf("expected 1 migrated trigger, got %d", len(s.StartupTriggers))
	}
	got := s.StartupTriggers[0]
	if !reflect.DeepEqual(got.Hotkey, []string{"ctrl", "alt", "1"}) {
		t.Errorf("migrated hotkey = %v", got.Hotkey)
	}
	if !reflect.DeepEqual(got.FlowIDs, []string{"f1", "f2"}) {
		t.Errorf("migrated flow ids = %v", got.FlowIDs)
	}
	// Legacy fields survive as read.
	if len(s.StartupHotkey) != 3 || len(s.StartupFlowIDs) != 2 {
		t.Error("legacy fields were dropped during migration")
	}
}

func TestLoad_NoMigrationWhenTriggersPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	payload := `{
		"startup_hotkey": ["ctrl", "alt", "1"],
		"startup_flow_ids": ["old"],
		"startup_triggers": [{"hotkey": ["ctrl", "alt", "2"], "flow_ids": ["new"]}]
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.StartupTriggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(s.StartupTriggers))
	}
	if s.StartupTriggers[0].FlowIDs[0] != "new" {
		t.Errorf("legacy fields must not override startup_triggers, got %v", s.StartupTriggers[0])
	}
}

func TestLoad_NoMigrationWithoutBothLegacyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"startup_hotkey": ["ctrl", "1"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.StartupTriggers) != 0 {
		t.Errorf("hotkey without flow ids must not migrate, got %v", s.StartupTriggers)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	want := Default()
	want.LogPath = "logs/history.jsonl"
	want.BrowserHeadless = true
	want.BrowserUserDataDir = "/tmp/profile"
	want.EmergencyHotkey = []string{"ctrl", "alt", "esc"}
	want.StartupSchedule = &flow.ScheduleTrigger{Type: flow.ScheduleDaily, Expression: "08:00"}
	want.StartupTriggers = []StartupTrigger{{
		Hotkey:  []string{"ctrl", "alt", "1"},
		FlowIDs: []string{"f1", "f2"},
	}}
	want.LastFlowsFile = "flows.json"

	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Save normalizes nil list fields to empty arrays.
	want.StartupHotkey = []string{}
	want.StartupFlowIDs = []string{}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestSave_WritesLegacyArrays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, key := range []string{`"startup_hotkey": []`, `"startup_flow_ids": []`, `"startup_triggers": []`} {
		if !strings.Contains(text, key) {
			t.Errorf("saved settings missing %s", key)
		}
	}
}

func TestSettleDelay(t *testing.T) {
	s := Settings{HotkeyTriggerDelay: 0.5}
	if got := s.SettleDelay(); got != 500*time.Millisecond {
		t.Errorf("SettleDelay() = %v, want 500ms", got)
	}
	s.HotkeyTriggerDelay = 0
	if got := s.SettleDelay(); got != 0 {
		t.Errorf("SettleDelay() = %v, want 0", got)
	}
}

func TestBrowserOptions(t *testing.T) {
	s := Settings{
		BrowserHeadless:    true,
		BrowserUserDataDir: "/data",
		BrowserProfileDir:  "Profile 1",
	}
	opts := s.BrowserOptions()
	if !opts.Headless || opts.UserDataDir != "/data" || opts.ProfileDir != "Profile 1" {
		t.Errorf("BrowserOptions() = %+v", opts)
	}
}

func TestResolvedLogPath(t *testing.T) {
	ResetHome()
	t.Setenv("DESKFLOW_HOME", "/srv/deskflow")
	defer ResetHome()

	s := Settings{LogPath: "data/runs.jsonl"}
	if got := s.ResolvedLogPath(); got != filepath.Join("/srv/deskflow", "data", "runs.jsonl") {
		t.Errorf("ResolvedLogPath() = %q", got)
	}

	s.LogPath = "/var/log/runs.jsonl"
	if got := s.ResolvedLogPath(); got != "/var/log/runs.jsonl" {
		t.Errorf("absolute path must pass through, got %q", got)
	}
}
