package notification

import (
	"fmt"
	"sync"
	"time"

	"devlab-reservation-backend/internal/model"
	"devlab-reservation-backend/internal/status"
)

// Threshold is a remaining-time mark that fires a one-shot notification when
// an active reservation's countdown first reaches it.
type Threshold struct {
	Name      string
	Remaining time.Duration
}

// DefaultThresholds are the countdown marks for a launched device session.
var DefaultThresholds = []Threshold{
	{Name: "30m", Remaining: 30 * time.Minute},
	{Name: "10m", Remaining: 10 * time.Minute},
	{Name: "expiry", Remaining: 0},
}

// Tracker fires countdown thresholds edge-triggered: each threshold fires at
// most once per reservation lifetime, at the tick where remaining time first
// drops to or below the mark, no matter how often Observe is called after.
type Tracker struct {
	mu         sync.Mutex
	thresholds []Threshold
	fired      map[string]map[string]bool // reservation id -> threshold name
}

// NewTracker creates a tracker over the given thresholds.
func NewTracker(thresholds []Threshold) *Tracker {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	return &Tracker{
		thresholds: thresholds,
		fired:      make(map[string]map[string]bool),
	}
}

// Observe evaluates the reservation at the given instant and returns the
// thresholds newly crossed on this tick. Only active reservations count down;
// terminated ones never fire.
func (t *Tracker) Observe(r *model.Reservation, now time.Time) []Threshold {
	if status.Derive(r, now) != model.StatusActive {
		return nil
	}

	remaining := status.Remaining(r, now)

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := t.fired[r.ID]
	if seen == nil {
		seen = make(map[string]bool)
		t.fired[r.ID] = seen
	}

	var crossed []Threshold
	for _, th := range t.thresholds {
		if remaining <= th.Remaining && !seen[th.Name] {
			seen[th.Name] = true
			crossed = append(crossed, th)
		}
	}
	return crossed
}

// Forget drops per-reservation firing state once the reservation leaves the
// working set, so the map does not grow without bound.
func (t *Tracker) Forget(reservationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.fired, reservationID)
}

// Message renders the user-facing push text for a crossed threshold.
func Message(deviceLabel string, th Threshold) string {
	if th.Remaining <= 0 {
		return fmt.Sprintf("Your session on %s has expired.", deviceLabel)
	}
	return fmt.Sprintf("Your session on %s ends in %d minutes.", deviceLabel, int(th.Remaining.Minutes()))
}
