package scheduler

import (
	"context"
	"sync"
	"time"

	"tracksync/internal/utils"
)

// Probe reports whether the network (and the remote service) is reachable.
// It must return quickly; callers gate periodic work on it.
type Probe func(ctx context.Context) bool

// Callback is one unit of scheduled work
type Callback func(ctx context.Context)

type job struct {
	interval        time.Duration
	networkRequired bool
	fn              Callback
}

// Scheduler invokes registered callbacks periodically and on demand. It is
// the only trigger source of the sync engine: the engine itself never
// assumes any particular OS job-scheduling facility.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []job
	probe   Probe
	started bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a scheduler. A nil probe means the network is assumed
// reachable and networkRequired jobs always fire.
func New(probe Probe) *Scheduler {
	return &Scheduler{probe: probe}
}

// RegisterPeriodic schedules fn to run at least once per interval. With
// networkRequired set, ticks where the probe fails are skipped; the job
// fires again on the next tick once connectivity returns.
// Must be called before Run.
func (s *Scheduler) RegisterPeriodic(interval time.Duration, networkRequired bool, fn Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job{interval: interval, networkRequired: networkRequired, fn: fn})
}

// TriggerOnce runs fn immediately in the background, independent of any
// periodic registration
func (s *Scheduler) TriggerOnce(ctx context.Context, fn Callback) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// Run starts all periodic jobs and blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		cancel()
		return
	}
	s.started = true
	s.cancel = cancel
	jobs := make([]job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	for _, j := range jobs {
		s.wg.Add(1)
		go s.runJob(ctx, j)
	}

	<-ctx.Done()
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if j.networkRequired && !s.online(ctx) {
				utils.Debugf("scheduler: skipping tick, network unavailable")
				continue
			}
			j.fn(ctx)
		}
	}
}

func (s *Scheduler) online(ctx context.Context) bool {
	if s.probe == nil {
		return true
	}
	return s.probe(ctx)
}

// Shutdown stops periodic jobs and waits for in-flight callbacks, up to the
// given timeout
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		utils.Warnf("scheduler: pending work did not complete within %v", timeout)
	}
}
