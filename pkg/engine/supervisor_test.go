package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devicelab-dev/deskflow/pkg/driver/mock"
	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/runlog"
)

func slowFlow(id string, steps int) flow.Flow {
	f := flow.Flow{ID: id, Name: "Slow " + id}
	for i := 0; i < steps; i++ {
		f.Steps = append(f.Steps, flow.Step{Action: flow.KindWait, Params: map[string]any{"ms": 20}})
	}
	return f
}

func TestSupervisor_RejectsSecondStartWhileBusy(t *testing.T) {
	rig := newTestRig(t, mock.Config{})

	finished := make(chan runlog.Status, 1)
	rig.config.Events = Events{
		OnRunFinished: func(f flow.Flow, trigger string, status runlog.Status) {
			finished <- status
		},
	}

	s := NewSupervisor(rig.config)
	if err := s.Start(slowFlow("f1", 5), TriggerManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(slowFlow("f2", 1), TriggerManual); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	select {
	case status := <-finished:
		if status != runlog.StatusCompleted {
			t.Errorf("first run status = %v, want completed", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	// The rejected start must not have produced a second record.
	records, err := runlog.ReadHistory(rig.logPath)
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].FlowID != "f1" {
		t.Errorf("record flow = %q, want f1", records[0].FlowID)
	}
}

func TestSupervisor_RequestStopEndsRunEarly(t *testing.T) {
	rig := newTestRig(t, mock.Config{})

	finished := make(chan runlog.Status, 1)
	var s *Supervisor
	rig.config.Events = Events{
		OnStepFinished: func(index int, status runlog.StepStatus) {
			if index == 0 {
				s.RequestStop()
			}
		},
		OnRunFinished: func(f flow.Flow, trigger string, status runlog.Status) {
			finished <- status
		},
	}

	s = NewSupervisor(rig.config)
	if err := s.Start(slowFlow("f1", 10), TriggerManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case status := <-finished:
		if status != runlog.StatusStopped {
			t.Errorf("status = %v, want stopped", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	records, err := runlog.ReadHistory(rig.logPath)
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if got := len(records[0].StepLogs); got >= 10 {
		t.Errorf("expected early stop, got %d step logs", got)
	}
}

func TestSupervisor_RequestStopSafeWhenIdle(t *testing.T) {
	rig := newTestRig(t, mock.Config{})
	s := NewSupervisor(rig.config)

	// Must not panic with no run active, and stays safe when repeated.
	s.RequestStop()
	s.RequestStop()
	if s.IsBusy() {
		t.Error("supervisor should be idle")
	}
}

func TestSupervisor_IsBusyLifecycle(t *testing.T) {
	rig := newTestRig(t, mock.Config{})
	s := NewSupervisor(rig.config)

	if s.IsBusy() {
		t.Fatal("new supervisor should be idle")
	}
	if err := s.Start(slowFlow("f1", 3), TriggerManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsBusy() {
		t.Error("supervisor should be busy after Start")
	}
	if !s.Wait(5 * time.Second) {
		t.Fatal("Wait() timed out")
	}
	if s.IsBusy() {
		t.Error("supervisor should be idle after the run finishes")
	}
}

func TestSupervisor_WaitTimesOutWhileRunning(t *testing.T) {
	rig := newTestRig(t, mock.Config{})
	s := NewSupervisor(rig.config)

	if err := s.Start(slowFlow("f1", 10), TriggerManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Wait(time.Millisecond) {
		t.Error("Wait() should time out while the run is active")
	}
	if !s.Wait(5 * time.Second) {
		t.Fatal("Wait() timed out waiting for completion")
	}
}

func TestSupervisor_FinishEventFiresAfterIdle(t *testing.T) {
	// Chaining depends on the supervisor being free to accept the next
	// flow from inside the finish handler.
	rig := newTestRig(t, mock.Config{})

	var s *Supervisor
	done := make(chan struct{})
	rig.config.Events = Events{
		OnRunFinished: func(f flow.Flow, trigger string, status runlog.Status) {
			if f.ID == "f1" {
				if err := s.Start(slowFlow("f2", 1), TriggerStartup); err != nil {
					t.Errorf("chained Start() error = %v", err)
					close(done)
				}
				return
			}
			close(done)
		},
	}

	s = NewSupervisor(rig.config)
	if err := s.Start(slowFlow("f1", 1), TriggerManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("chained run did not finish")
	}

	records, err := runlog.ReadHistory(rig.logPath)
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].FlowID != "f1" || records[1].FlowID != "f2" {
		t.Errorf("unexpected record order: %q then %q", records[0].FlowID, records[1].FlowID)
	}
	if records[1].Trigger != "startup" {
		t.Errorf("chained trigger = %q, want startup", records[1].Trigger)
	}
}

func TestSupervisor_RunnerNeverEmitsFinishDirectly(t *testing.T) {
	// The finish event belongs to the supervisor; a bare runner built from
	// the stripped config stays silent.
	rig := newTestRig(t, mock.Config{})

	fired := 0
	rig.config.Events = Events{
		OnRunFinished: func(f flow.Flow, trigger string, status runlog.Status) { fired++ },
	}

	s := NewSupervisor(rig.config)
	runner := NewFlowRunner(slowFlow("f1", 1), TriggerManual, s.withoutFinishEvent())
	runner.Run(context.Background())

	if fired != 0 {
		t.Errorf("runner emitted finish event %d times", fired)
	}
}
