// Package refresh keeps client-visible reservation state fresh without a push
// channel: a set of named recurring tasks re-derives statuses, sweeps finished
// reservations into history, and drives the countdown notifications.
package refresh

import (
	"context"
	"log"
	"sync"
	"time"
)

// task is one named recurring job with its own period.
type task struct {
	name   string
	period time.Duration
	fn     func(context.Context)
}

// Scheduler owns a set of named recurring tasks. Each task runs on its own
// timer, can be cancelled on its own, and no task survives the context the
// scheduler was started with.
type Scheduler struct {
	mu      sync.Mutex
	tasks   []task
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{cancels: make(map[string]context.CancelFunc)}
}

// Add registers a task. Must be called before Start.
func (s *Scheduler) Add(name string, period time.Duration, fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task{name: name, period: period, fn: fn})
}

// Start launches every registered task. Each runs once immediately and then on
// its period until its own cancellation or until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	for _, t := range s.tasks {
		taskCtx, cancel := context.WithCancel(ctx)
		s.cancels[t.name] = cancel
		s.wg.Add(1)
		go s.run(taskCtx, t)
	}
}

func (s *Scheduler) run(ctx context.Context, t task) {
	defer s.wg.Done()
	log.Printf("refresh task %q started (period %s)", t.name, t.period)

	t.fn(ctx)

	timer := time.NewTimer(t.period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("refresh task %q stopped", t.name)
			return
		case <-timer.C:
			t.fn(ctx)
			timer.Reset(t.period)
		}
	}
}

// Cancel stops a single task by name. Other tasks keep running.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[name]; ok {
		cancel()
		delete(s.cancels, name)
	}
}

// Wait blocks until every task goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
