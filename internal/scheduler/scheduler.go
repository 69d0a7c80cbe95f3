// Package scheduler owns the recurring jobs that drive fetching and
// processing. Job definitions are fixed at construction; the control surface
// (pause, resume, remove, manual trigger, status) operates on that set and
// fails with a not-found error for unknown ids.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atalaykaya/demographics-api/internal/apperror"
	"github.com/atalaykaya/demographics-api/internal/metrics"
)

// State is a job's lifecycle state. Executing is transient: a job returns to
// active when its run finishes, unless it was paused or removed mid-run.
type State string

const (
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateExecuting State = "executing"
)

// Job declares one recurring action. Run receives a context that stays live
// across shutdown; the scheduler waits for in-flight runs instead of
// cancelling them.
type Job struct {
	ID       string
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type job struct {
	Job
	state   State
	nextRun time.Time
}

type Scheduler struct {
	metrics *metrics.Metrics

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	started bool
	stop    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	isEnabled bool
	tick      time.Duration
	now       func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithEnabled controls the global scheduler switch. When off, Start is a
// no-op beyond logging; the job set still exists for status queries.
func WithEnabled(enabled bool) Option {
	return func(s *Scheduler) { s.isEnabled = enabled }
}

// WithTickInterval overrides how often the execution clock checks for due
// jobs.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New registers the given jobs and applies options. A job re-using an ID
// replaces the earlier definition. Jobs do not fire until Start.
func New(m *metrics.Metrics, jobs []Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		metrics:   m,
		jobs:      make(map[string]*job, len(jobs)),
		isEnabled: true,
		tick:      time.Second,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	now := s.now()
	for _, def := range jobs {
		if _, exists := s.jobs[def.ID]; !exists {
			s.order = append(s.order, def.ID)
		}
		s.jobs[def.ID] = &job{
			Job:     def,
			state:   StateActive,
			nextRun: now.Add(def.Interval),
		}
		slog.Info("scheduler: job registered", "job", def.ID, "interval", def.Interval.String())
	}

	s.updateGauges()
	return s
}

// Start activates the execution clock. Idempotent; a disabled scheduler logs
// and keeps its job set without ever firing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isEnabled {
		slog.Info("scheduler disabled in configuration")
		return
	}
	if s.started {
		return
	}

	now := s.now()
	for _, j := range s.jobs {
		if j.state == StateActive {
			j.nextRun = now.Add(j.Interval)
		}
	}

	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)

	slog.Info("scheduler started", "jobs", len(s.jobs), "tick", s.tick.String())
}

// Shutdown stops the clock and waits for in-flight runs to finish, bounded
// by ctx. Safe to call on a scheduler that never started.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		slog.Info("scheduler was not running")
		return nil
	}
	s.started = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		slog.Info("scheduler shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

// fireDue dispatches every active job whose time has come. Each run executes
// in its own goroutine so distinct jobs overlap freely, while an executing
// job is never re-entered by its own tick.
func (s *Scheduler) fireDue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, j := range s.jobs {
		if j.state != StateActive || j.nextRun.After(now) {
			continue
		}
		j.state = StateExecuting
		j.nextRun = now.Add(j.Interval)
		s.wg.Add(1)
		go s.run(j)
	}
	s.updateGauges()
}

func (s *Scheduler) run(j *job) {
	defer s.wg.Done()

	start := s.now()
	slog.Info("scheduler: job starting", "job", j.ID, "name", j.Name)

	err := s.safeRun(j)
	result := "success"
	if err != nil {
		result = "failure"
		slog.Error("scheduler: job failed", "job", j.ID, "error", err, "duration", time.Since(start).String())
	} else {
		slog.Info("scheduler: job completed", "job", j.ID, "duration", time.Since(start).String())
	}
	s.metrics.JobRuns.WithLabelValues(j.ID, result).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Only flip executing back to active. A pause or removal issued mid-run
	// wins over the completion transition.
	if current, ok := s.jobs[j.ID]; ok && current.state == StateExecuting {
		current.state = StateActive
	}
	s.updateGauges()
}

// safeRun converts a panicking action into an error so one bad job never
// takes down the clock.
func (s *Scheduler) safeRun(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return j.Run(context.Background())
}

func (s *Scheduler) updateGauges() {
	var active, paused, executing float64
	for _, j := range s.jobs {
		switch j.state {
		case StateActive:
			active++
		case StatePaused:
			paused++
		case StateExecuting:
			executing++
		}
	}
	s.metrics.JobsByState.WithLabelValues(string(StateActive)).Set(active)
	s.metrics.JobsByState.WithLabelValues(string(StatePaused)).Set(paused)
	s.metrics.JobsByState.WithLabelValues(string(StateExecuting)).Set(executing)
}

func notFound(id string) *apperror.AppError {
	return apperror.New(apperror.NotFound, fmt.Sprintf("job '%s' not found", id))
}
