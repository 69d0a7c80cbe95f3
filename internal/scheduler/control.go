package scheduler

import (
	"log/slog"
	"time"
)

// JobStatus is the reported shape of one job.
type JobStatus struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	State   State      `json:"state"`
	NextRun *time.Time `json:"nextRun,omitempty"`
	Trigger string     `json:"trigger"`
}

// StatusReport covers one job or the whole set, with per-state counts over
// the jobs it includes. TotalJobs always equals Active+Paused+Executing.
type StatusReport struct {
	Running       bool        `json:"schedulerRunning"`
	Enabled       bool        `json:"enabled"`
	TotalJobs     int         `json:"totalJobs"`
	ActiveJobs    int         `json:"activeJobs"`
	PausedJobs    int         `json:"pausedJobs"`
	ExecutingJobs int         `json:"executingJobs"`
	Jobs          []JobStatus `json:"jobs"`
}

// ControlResult reports the outcome of a pause or resume.
type ControlResult struct {
	JobID   string `json:"jobId"`
	JobName string `json:"jobName"`
	State   State  `json:"state"`
}

// RemoveResult reports a removal. Removal lasts for the process lifetime
// only: definitions live in the construction call, so a restart recreates
// the default job set.
type RemoveResult struct {
	JobID   string `json:"jobId"`
	JobName string `json:"jobName"`
	Note    string `json:"note"`
}

// TriggerResult reports a manual trigger, including whether a paused job was
// implicitly resumed to fire it.
type TriggerResult struct {
	JobID       string    `json:"jobId"`
	JobName     string    `json:"jobName"`
	TriggeredAt time.Time `json:"triggeredAt"`
	AutoResumed bool      `json:"autoResumed"`
}

// Status reports one job (by id) or all jobs (empty id). Unknown ids fail
// without touching any job.
func (s *Scheduler) Status(jobID string) (*StatusReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.order
	if jobID != "" {
		if _, ok := s.jobs[jobID]; !ok {
			return nil, notFound(jobID)
		}
		ids = []string{jobID}
	}

	report := &StatusReport{
		Running: s.started,
		Enabled: s.isEnabled,
		Jobs:    make([]JobStatus, 0, len(ids)),
	}
	for _, id := range ids {
		j, ok := s.jobs[id]
		if !ok {
			continue // removed
		}
		report.Jobs = append(report.Jobs, s.jobStatus(j))
		switch j.state {
		case StateActive:
			report.ActiveJobs++
		case StatePaused:
			report.PausedJobs++
		case StateExecuting:
			report.ExecutingJobs++
		}
	}
	report.TotalJobs = len(report.Jobs)

	return report, nil
}

// Details returns the status of a single job.
func (s *Scheduler) Details(jobID string) (*JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound(jobID)
	}

	status := s.jobStatus(j)
	return &status, nil
}

// Pause stops a job from firing until resumed. Pausing an executing job
// takes effect when the current run completes.
func (s *Scheduler) Pause(jobID string) (*ControlResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound(jobID)
	}

	j.state = StatePaused
	s.updateGauges()
	slog.Info("scheduler: job paused", "job", jobID)

	return &ControlResult{JobID: jobID, JobName: j.Name, State: j.state}, nil
}

// Resume returns a paused job to the active state with a fresh schedule.
func (s *Scheduler) Resume(jobID string) (*ControlResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound(jobID)
	}

	if j.state == StatePaused {
		j.state = StateActive
		j.nextRun = s.now().Add(j.Interval)
	}
	s.updateGauges()
	slog.Info("scheduler: job resumed", "job", jobID)

	return &ControlResult{JobID: jobID, JobName: j.Name, State: j.state}, nil
}

// Remove deletes the job from the live set.
func (s *Scheduler) Remove(jobID string) (*RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound(jobID)
	}

	delete(s.jobs, jobID)
	for i, id := range s.order {
		if id == jobID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.updateGauges()
	slog.Info("scheduler: job removed", "job", jobID, "name", j.Name)

	return &RemoveResult{
		JobID:   jobID,
		JobName: j.Name,
		Note:    "job will be recreated on application restart",
	}, nil
}

// Trigger schedules the job to fire at the next tick instead of waiting out
// its interval. A paused job is implicitly resumed first. The call never
// blocks on the run itself.
func (s *Scheduler) Trigger(jobID string) (*TriggerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound(jobID)
	}

	autoResumed := false
	if j.state == StatePaused {
		j.state = StateActive
		autoResumed = true
		slog.Info("scheduler: auto-resumed paused job for trigger", "job", jobID)
	}

	now := s.now()
	j.nextRun = now
	s.updateGauges()
	slog.Info("scheduler: job triggered", "job", jobID, "autoResumed", autoResumed)

	return &TriggerResult{
		JobID:       jobID,
		JobName:     j.Name,
		TriggeredAt: now,
		AutoResumed: autoResumed,
	}, nil
}

// jobStatus builds the report entry for one job. Callers hold s.mu.
func (s *Scheduler) jobStatus(j *job) JobStatus {
	status := JobStatus{
		ID:      j.ID,
		Name:    j.Name,
		State:   j.state,
		Trigger: "interval[" + j.Interval.String() + "]",
	}
	// Next-fire time is absent while paused or while the clock is not
	// running; either way the job is not going to fire at that instant.
	if j.state != StatePaused && s.started {
		next := j.nextRun
		status.NextRun = &next
	}
	return status
}
