package refresh

import (
	"context"
	"log"
	"sync"
	"time"

	"devlab-reservation-backend/config"
	"devlab-reservation-backend/internal/model"
	"devlab-reservation-backend/internal/notification"
	"devlab-reservation-backend/internal/status"
	"devlab-reservation-backend/internal/store"
)

// Service reconciles a local reservation snapshot against the store and drives
// the sweep and countdown tasks. The snapshot is a disposable read replica:
// the store stays authoritative, and the countdown keeps working from the
// stale snapshot when a re-fetch fails.
type Service struct {
	cfg     *config.Config
	store   store.Store
	clock   status.Clock
	pool    *notification.WorkerPool
	tracker *notification.Tracker

	mu       sync.RWMutex
	snapshot []model.Reservation
}

// NewService wires the refresh tasks over the given store and worker pool.
func NewService(cfg *config.Config, s store.Store, pool *notification.WorkerPool, clock status.Clock) *Service {
	if clock == nil {
		clock = status.RealClock{}
	}
	return &Service{
		cfg:     cfg,
		store:   s,
		clock:   clock,
		pool:    pool,
		tracker: notification.NewTracker(nil),
	}
}

// Run starts the worker pool and the recurring tasks, blocking until ctx is
// cancelled and every task has stopped.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Refresh.Enabled {
		log.Println("Refresh service is disabled. Not starting.")
		return
	}
	log.Println("Starting refresh service...")

	s.pool.Start(ctx)

	sched := NewScheduler()
	sched.Add("reservations", s.cfg.Refresh.ListInterval, s.Reconcile)
	sched.Add("sweep", s.cfg.Refresh.SweepInterval, s.Sweep)
	sched.Add("countdown", s.cfg.Refresh.CountdownInterval, s.Countdown)
	sched.Start(ctx)
	sched.Wait()
}

// Reconcile re-fetches the full working set from the store. On failure the
// previous snapshot is kept so local derivation degrades to stale-but-correct.
func (s *Service) Reconcile(ctx context.Context) {
	current, err := s.store.ListCurrent(ctx)
	if err != nil {
		log.Printf("Reservation re-fetch failed, keeping previous snapshot: %v", err)
		return
	}

	s.mu.Lock()
	previous := s.snapshot
	s.snapshot = current
	s.mu.Unlock()

	// Firing state for reservations that left the working set is dropped so
	// the tracker cannot grow without bound.
	live := make(map[string]bool, len(current))
	for _, r := range current {
		live[r.ID] = true
	}
	for _, r := range previous {
		if !live[r.ID] {
			s.tracker.Forget(r.ID)
		}
	}
}

// Sweep archives finished reservations and tells subscribers about devices
// that just became free.
func (s *Service) Sweep(ctx context.Context) {
	freed, err := s.store.ArchiveFinished(ctx, s.clock.Now())
	if err != nil {
		log.Printf("Sweep failed: %v", err)
		return
	}

	for _, deviceID := range freed {
		s.pool.Dispatch(notification.Notice{
			DeviceID: deviceID,
			Message:  "Device " + deviceID + " is now available.",
		})
	}
}

// Countdown derives remaining time for every snapshot reservation and fires
// edge-triggered threshold notices. It never touches the store.
func (s *Service) Countdown(ctx context.Context) {
	now := s.clock.Now()

	s.mu.RLock()
	snapshot := s.snapshot
	s.mu.RUnlock()

	for i := range snapshot {
		r := &snapshot[i]
		for _, th := range s.tracker.Observe(r, now) {
			s.pool.Dispatch(notification.Notice{
				DeviceID: r.DeviceID,
				Message:  notification.Message(r.DeviceID, th),
			})
		}
	}
}

// Snapshot returns the current locally derived working set with display
// statuses recomputed for this instant.
func (s *Service) Snapshot() []model.Reservation {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := status.Prune(s.snapshot, now)
	for i := range out {
		out[i].Status = status.Derive(&out[i], now)
	}
	return out
}
