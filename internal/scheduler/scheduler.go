// Package scheduler runs the console's background jobs on cron schedules and
// tracks the outcome of every run.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	apperrors "superadmin/internal/errors"
	"superadmin/internal/metrics"
)

// Job run states.
const (
	StatusScheduled = "scheduled"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusStopped   = "stopped"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is a unit of scheduled work.
type Job struct {
	Name        string
	Description string
	Spec        string
	// Manual jobs are registered but only scheduled on request.
	Manual bool
	Run    func(ctx context.Context) (interface{}, error)
}

// JobState is the externally visible state of a job.
type JobState struct {
	Status         string      `json:"status"`
	LastRun        *time.Time  `json:"lastRun"`
	NextRun        *time.Time  `json:"nextRun"`
	CronExpression string      `json:"cronExpression"`
	Timezone       string      `json:"timezone"`
	Error          string      `json:"error,omitempty"`
	Result         interface{} `json:"result,omitempty"`
	Description    string      `json:"description"`
}

// Status is a snapshot of the scheduler.
type Status struct {
	Initialized bool                `json:"initialized"`
	Timezone    string              `json:"timezone"`
	CurrentTime string              `json:"currentTime"`
	Jobs        map[string]JobState `json:"jobs"`
}

type entry struct {
	job       Job
	schedule  cron.Schedule
	id        cron.EntryID
	scheduled bool
	state     JobState
}

// Scheduler owns a cron runner and the registered jobs.
type Scheduler struct {
	loc     *time.Location
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	jobs    map[string]*entry
	cron    *cron.Cron
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a stopped scheduler evaluating schedules in loc.
func New(loc *time.Location, m *metrics.Metrics, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		loc:     loc,
		metrics: m,
		log:     log,
		now:     time.Now,
		jobs:    make(map[string]*entry),
	}
}

// Register adds a job. The cron expression is validated immediately.
func (s *Scheduler) Register(job Job) error {
	schedule, err := parser.Parse(job.Spec)
	if err != nil {
		return fmt.Errorf("job %s: invalid cron expression %q: %w", job.Name, job.Spec, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &entry{
		job:      job,
		schedule: schedule,
		state: JobState{
			Status:         StatusStopped,
			CronExpression: job.Spec,
			Timezone:       s.loc.String(),
			Description:    job.Description,
		},
	}
	return nil
}

// Start schedules every non-manual job. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	logger := cronLogger{s.log.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithParser(parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true

	for _, name := range s.sortedNames() {
		e := s.jobs[name]
		if e.job.Manual {
			continue
		}
		if err := s.scheduleLocked(e); err != nil {
			s.running = false
			s.cancel()
			return err
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("timezone", s.loc.String()), zap.Int("jobs", len(s.cron.Entries())))
	return nil
}

func (s *Scheduler) scheduleLocked(e *entry) error {
	name := e.job.Name
	id, err := s.cron.AddFunc(e.job.Spec, func() {
		if _, err := s.execute(name); err != nil {
			s.log.Debug("scheduled run skipped or failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	e.id = id
	e.scheduled = true
	if e.state.Status != StatusRunning {
		e.state.Status = StatusScheduled
	}
	return nil
}

// Stop halts scheduling and waits for in-flight runs. When ctx expires first,
// running jobs are cancelled and Stop still waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c, cancel := s.cron, s.cancel
	for _, e := range s.jobs {
		e.scheduled = false
		if e.state.Status != StatusRunning {
			e.state.Status = StatusStopped
		}
	}
	s.mu.Unlock()

	cronDone := c.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		cancel()
		<-done
	}
	cancel()
	s.log.Info("scheduler stopped")
	return err
}

// Restart stops and starts the scheduler.
func (s *Scheduler) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start()
}

// Trigger runs a job immediately and waits for it to finish. The cron does not
// have to be running.
func (s *Scheduler) Trigger(name string) (interface{}, error) {
	return s.execute(name)
}

// Schedule adds a registered job to the running cron.
func (s *Scheduler) Schedule(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return apperrors.ErrSchedulerNotRunning
	}
	e, ok := s.jobs[name]
	if !ok {
		return apperrors.ErrUnknownJob
	}
	if e.scheduled {
		return nil
	}
	return s.scheduleLocked(e)
}

// Unschedule removes a job from the cron. Its last state is kept.
func (s *Scheduler) Unschedule(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return apperrors.ErrUnknownJob
	}
	if e.scheduled && s.cron != nil {
		s.cron.Remove(e.id)
	}
	e.scheduled = false
	if e.state.Status != StatusRunning {
		e.state.Status = StatusStopped
	}
	return nil
}

// SetLastRun seeds a job's last run time when it has none.
func (s *Scheduler) SetLastRun(name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return apperrors.ErrUnknownJob
	}
	if e.state.LastRun == nil {
		t := at.In(s.loc)
		e.state.LastRun = &t
	}
	return nil
}

// Status returns a snapshot of all jobs.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().In(s.loc)
	out := Status{
		Initialized: s.running,
		Timezone:    s.loc.String(),
		CurrentTime: now.Format(time.RFC3339),
		Jobs:        make(map[string]JobState, len(s.jobs)),
	}
	for name, e := range s.jobs {
		state := e.state
		if e.scheduled {
			next := e.schedule.Next(now)
			state.NextRun = &next
		}
		out.Jobs[name] = state
	}
	return out
}

// execute runs a job once. Runs while the cron is stopped use a background
// context and are not awaited by Stop.
func (s *Scheduler) execute(name string) (interface{}, error) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.ErrUnknownJob
	}
	if e.state.Status == StatusRunning {
		s.mu.Unlock()
		return nil, apperrors.ErrJobRunning
	}
	started := s.now().In(s.loc)
	e.state.Status = StatusRunning
	e.state.LastRun = &started
	e.state.Error = ""
	ctx, tracked := context.Background(), s.running
	if tracked {
		ctx = s.ctx
		s.wg.Add(1)
	}
	s.mu.Unlock()
	if tracked {
		defer s.wg.Done()
	}

	s.log.Info("job started", zap.String("job", name))
	begin := time.Now()
	result, err := safeRun(ctx, e.job)
	took := time.Since(begin)
	s.metrics.ObserveJob(name, err == nil, took)

	s.mu.Lock()
	if err != nil {
		e.state.Status = StatusFailed
		e.state.Error = err.Error()
		e.state.Result = nil
	} else {
		e.state.Status = StatusCompleted
		e.state.Result = result
	}
	if !s.running && !e.scheduled {
		e.state.Status = StatusStopped
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Duration("took", took), zap.Error(err))
		return nil, err
	}
	s.log.Info("job completed", zap.String("job", name), zap.Duration("took", took))
	return result, nil
}

func safeRun(ctx context.Context, job Job) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}

func (s *Scheduler) sortedNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
