package runlog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	l := NewLogger(path)

	l.StartRun("f1", "Morning report", "manual")
	l.LogStepStart(0, "wait", map[string]any{"ms": 10})
	l.LogStepFinish(0, StepSuccess, "")
	if _, err := l.FinishRun(StatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.StartRun("f2", "Broken flow", "hotkey")
	l.LogStepStart(0, "browser_open", map[string]any{"url": "bad"})
	l.LogStepFinish(0, StepFailed, "launch failed")
	if _, err := l.FinishRun(StatusFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestReadHistory(t *testing.T) {
	path := writeHistory(t)

	records, err := ReadHistory(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].FlowID != "f1" || records[1].FlowID != "f2" {
		t.Errorf("expected oldest-first order, got %s then %s", records[0].FlowID, records[1].FlowID)
	}
	if records[1].Status != StatusFailed {
		t.Errorf("expected failed status, got %q", records[1].Status)
	}
	if records[1].StepLogs[0].Error != "launch failed" {
		t.Errorf("expected step error preserved, got %q", records[1].StepLogs[0].Error)
	}
}

func TestReadHistory_MissingFile(t *testing.T) {
	records, err := ReadHistory(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records != nil {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestReadHistory_SkipsPartialLines(t *testing.T) {
	path := writeHistory(t)

	// Simulate a crash mid-append.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.WriteString(`{"run_id":"truncat`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Close()

	records, err := ReadHistory(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected partial line skipped, got %d records", len(records))
	}
}

func TestQuery_Projection(t *testing.T) {
	path := writeHistory(t)
	records, err := ReadHistory(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := Query(records, ".status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 values, got %d", len(out))
	}
	if out[0] != "completed" || out[1] != "failed" {
		t.Errorf("expected [completed failed], got %v", out)
	}
}

func TestQuery_Select(t *testing.T) {
	path := writeHistory(t)
	records, err := ReadHistory(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := Query(records, `select(.status == "failed") | .flow_name`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0] != "Broken flow" {
		t.Errorf("expected [Broken flow], got %v", out)
	}
}

func TestQuery_EmptyExpressionPassesThrough(t *testing.T) {
	path := writeHistory(t)
	records, err := ReadHistory(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := Query(records, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(records) {
		t.Errorf("expected %d values, got %d", len(records), len(out))
	}
}

func TestQuery_BadExpression(t *testing.T) {
	if _, err := Query(nil, ".status ||| huh"); err == nil {
		t.Error("expected parse error")
	}
}
