// Package runlog records structured execution history. Each run produces
// one RunRecord, held in memory while the run is live and appended to a
// JSONL file when it reaches a terminal status. The log file is append-only
// and never rewritten or compacted.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a run's lifecycle state. It is monotonic: once set to a
// terminal value it is never reverted.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// StepStatus is the outcome of one executed step.
type StepStatus string

// Step statuses.
const (
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// StepLog records one step execution within a run. Indices are 0-based,
// contiguous, and match execution order.
type StepLog struct {
	Index         int            `json:"index"`
	Action        string         `json:"action"`
	ParamsSummary map[string]any `json:"params_summary"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	Status        StepStatus     `json:"status,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// RunRecord is the full history of one flow run.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	FlowID     string     `json:"flow_id"`
	FlowName   string     `json:"flow_name"`
	Trigger    string     `json:"trigger"`
	Status     Status     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	StepLogs   []StepLog  `json:"step_logs"`
}

// Logger tracks the single live run and persists finished records.
// At most one run is live system-wide; the engine enforces that, and the
// logger's misuse guards exist so out-of-order calls degrade to no-ops
// instead of panics.
type Logger struct {
	mu      sync.Mutex
	path    string
	current *RunRecord
}

// NewLogger creates a logger appending to the given JSONL path.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// StartRun opens a new live record with status running.
func (l *Logger) StartRun(flowID, flowName, trigger string) *RunRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &RunRecord{
		RunID:     uuid.NewString(),
		FlowID:    flowID,
		FlowName:  flowName,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	return copyRecord(l.current)
}

// LogStepStart appends a StepLog for the step at index. No-op if no run
// is live.
func (l *Logger) LogStepStart(index int, action string, summary map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return
	}
	l.current.StepLogs = append(l.current.StepLogs, StepLog{
		Index:         index,
		Action:        action,
		ParamsSummary: summary,
		StartedAt:     time.Now().UTC(),
	})
}

// LogStepFinish finalizes the StepLog matching index. No-op if no run is
// live or no step with that index was started.
func (l *Logger) LogStepFinish(index int, status StepStatus, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return
	}
	for i := range l.current.StepLogs {
		if l.current.StepLogs[i].Index != index {
			continue
		}
		now := time.Now().UTC()
		l.current.StepLogs[i].FinishedAt = &now
		l.current.StepLogs[i].Status = status
		l.current.StepLogs[i].Error = errMsg
		return
	}
}

// FinishRun sets the terminal status, appends the record to the log file,
// clears the live state and returns the finalized record. Returns
// (nil, nil) if no run is live.
func (l *Logger) FinishRun(status Status) (*RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	l.current.Status = status
	l.current.FinishedAt = &now

	finished := l.current
	l.current = nil

	if err := l.appendRecord(finished); err != nil {
		return copyRecord(finished), err
	}
	return copyRecord(finished), nil
}

// LatestRun returns a copy of the live record, or nil if none.
func (l *Logger) LatestRun() *RunRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyRecord(l.current)
}

// appendRecord writes one serialized record plus newline. Callers hold l.mu.
func (l *Logger) appendRecord(record *RunRecord) error {
	if dir := filepath.Dir(l.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append run record: %w", err)
	}
	return nil
}

func copyRecord(r *RunRecord) *RunRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.StepLogs = make([]StepLog, len(r.StepLogs))
	copy(out.StepLogs, r.StepLogs)
	return &out
}
