package settings

import (
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("DESKFLOW_HOME", "/custom/path")

	if got := GetHome(); got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("DESKFLOW_HOME", "/first")

	first := GetHome()

	// Change env — should NOT affect cached value
	t.Setenv("DESKFLOW_HOME", "/second")
	second := GetHome()

	if first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestGetHome_FallbackNotEmpty(t *testing.T) {
	ResetHome()
	t.Setenv("DESKFLOW_HOME", "")

	if got := GetHome(); got == "" {
		t.Error("GetHome() returned empty string")
	}
}

func TestDefaultPaths(t *testing.T) {
	ResetHome()
	t.Setenv("DESKFLOW_HOME", "/test/home")

	if got := DefaultSettingsPath(); got != filepath.Join("/test/home", "settings.json") {
		t.Errorf("DefaultSettingsPath() = %q", got)
	}
	if got := DefaultFlowsPath(); got != filepath.Join("/test/home", "flows.json") {
		t.Errorf("DefaultFlowsPath() = %q", got)
	}
}
