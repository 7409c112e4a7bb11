package trigger

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/devicelab-dev/deskflow/pkg/flow"
	"github.com/devicelab-dev/deskflow/pkg/logger"
)

// SchedulerManager owns the background cron runner and the jobs
// registered on it. Daily, weekly and raw cron schedules are normalized
// to a five-field cron spec before they reach the runner.
type SchedulerManager struct {
	mu   sync.Mutex
	cron *cron.Cron
	jobs map[string]scheduledJob
	log  *slog.Logger
}

type scheduledJob struct {
	entry cron.EntryID
	desc  string
}

// JobInfo describes one registered schedule.
type JobInfo struct {
	ID          string
	Description string
}

// NewSchedulerManager starts the cron runner. Callbacks fire on the
// runner's own goroutine and must only enqueue work.
func NewSchedulerManager() *SchedulerManager {
	m := &SchedulerManager{
		cron: cron.New(),
		jobs: make(map[string]scheduledJob),
		log:  logger.WithComponent("scheduler"),
	}
	m.cron.Start()
	return m
}

// ScheduleDaily registers callback to fire every day at "HH:MM".
func (m *SchedulerManager) ScheduleDaily(jobID, clock string, callback func()) error {
	return m.Schedule(jobID, flow.ScheduleTrigger{Type: flow.ScheduleDaily, Expression: clock}, callback)
}

// ScheduleWeekly registers callback to fire on the listed weekdays, e.g.
// "mon,tue@08:30".
func (m *SchedulerManager) ScheduleWeekly(jobID, expression string, callback func()) error {
	return m.Schedule(jobID, flow.ScheduleTrigger{Type: flow.ScheduleWeekly, Expression: expression}, callback)
}

// ScheduleCron registers callback with a five-field cron expression.
func (m *SchedulerManager) ScheduleCron(jobID, expression string, callback func()) error {
	return m.Schedule(jobID, flow.ScheduleTrigger{Type: flow.ScheduleCron, Expression: expression}, callback)
}

// Schedule registers callback under jobID, replacing any job already
// registered with that id.
func (m *SchedulerManager) Schedule(jobID string, t flow.ScheduleTrigger, callback func()) error {
	spec, err := t.CronSpec()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.jobs[jobID]; ok {
		m.cron.Remove(existing.entry)
		delete(m.jobs, jobID)
	}
	entry, err := m.cron.AddFunc(spec, m.guard(jobID, callback))
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", jobID, err)
	}
	m.jobs[jobID] = scheduledJob{entry: entry, desc: fmt.Sprintf("%s@%s", t.Type, t.Expression)}
	return nil
}

// RemoveJob drops the job with the given id. Unknown ids are a no-op.
func (m *SchedulerManager) RemoveJob(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	m.cron.Remove(job.entry)
	delete(m.jobs, jobID)
}

// Describe returns the human-readable form of a registered job.
func (m *SchedulerManager) Describe(jobID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return "", false
	}
	return job.desc, true
}

// Jobs returns the registered schedules sorted by id.
func (m *SchedulerManager) Jobs() []JobInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]JobInfo, 0, len(m.jobs))
	for id, job := range m.jobs {
		out = append(out, JobInfo{ID: id, Description: job.desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stop halts the cron runner without waiting for in-flight callbacks and
// drops all jobs.
func (m *SchedulerManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cron.Stop()
	m.jobs = make(map[string]scheduledJob)
}

// guard wraps a job callback with panic recovery so a broken callback
// cannot take down the cron runner goroutine.
func (m *SchedulerManager) guard(jobID string, callback func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("schedule callback panicked",
					slog.String("job", jobID),
					slog.Any("panic", r))
			}
		}()
		callback()
	}
}
