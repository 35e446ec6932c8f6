package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

var (
	ErrTickInProgress = errors.New("a tick of this job is already running")
	ErrUnknownJob     = errors.New("unknown job")
	ErrNotRunning     = errors.New("scheduler is not running")
)

// Job is one periodic cadence. Ticks of the same job never overlap: a tick
// that comes due while the previous one is still running is skipped.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	// RunAtStart fires one tick as soon as the scheduler starts.
	RunAtStart bool
	// Aligned fires on wall-clock multiples of Interval (e.g. every full
	// hour) instead of Interval after start.
	Aligned bool
	Run     func(ctx context.Context) error

	running atomic.Bool
}

// Scheduler owns the job loops. Start it once at boot and Stop it on
// shutdown; Stop cancels in-flight ticks and waits for them.
type Scheduler struct {
	jobs   map[string]*Job
	order  []*Job
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewScheduler(logger *zap.Logger, jobs ...*Job) *Scheduler {
	s := &Scheduler{
		jobs:   make(map[string]*Job, len(jobs)),
		logger: logger,
		now:    time.Now,
	}
	for _, j := range jobs {
		s.jobs[j.Name] = j
		s.order = append(s.order, j)
	}
	return s
}

// Start launches every job loop. Calling it again is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, j := range s.order {
		s.logger.Info("scheduler job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval),
			zap.Bool("aligned", j.Aligned),
			zap.Bool("run_at_start", j.RunAtStart))
		s.wg.Add(1)
		go s.loop(s.ctx, j)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger runs one tick of the named job now, outside its schedule.
func (s *Scheduler) Trigger(name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return ErrNotRunning
	}
	if !s.tick(s.ctx, j) {
		return ErrTickInProgress
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, j *Job) {
	defer s.wg.Done()

	if j.RunAtStart {
		s.tick(ctx, j)
	}

	if !j.Aligned {
		ticker := time.NewTicker(j.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx, j)
			}
		}
	}

	for {
		timer := time.NewTimer(untilNextBoundary(s.now(), j.Interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.tick(ctx, j)
		}
	}
}

// tick starts a run unless one is in flight. It reports whether it started.
func (s *Scheduler) tick(ctx context.Context, j *Job) bool {
	if !j.running.CompareAndSwap(false, true) {
		metrics.RecordTickSkipped(j.Name)
		s.logger.Warn("previous tick still running, skipping", zap.String("job", j.Name))
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer j.running.Store(false)
		s.execute(ctx, j)
	}()
	return true
}

func (s *Scheduler) execute(ctx context.Context, j *Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked", zap.String("job", j.Name), zap.Any("panic", r))
		}
		metrics.ObserveTick(j.Name, time.Since(start).Seconds())
	}()

	tctx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	if err := j.Run(tctx); err != nil {
		s.logger.Error("tick failed", zap.String("job", j.Name), zap.Error(err))
		return
	}
	s.logger.Debug("tick finished", zap.String("job", j.Name), zap.Duration("elapsed", time.Since(start)))
}

// untilNextBoundary is the wait until the next multiple of interval. A time
// exactly on a boundary waits a full interval.
func untilNextBoundary(now time.Time, interval time.Duration) time.Duration {
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
