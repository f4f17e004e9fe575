package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlab-reservation-backend/internal/model"
)

func activeReservation(now time.Time, remaining time.Duration) *model.Reservation {
	return &model.Reservation{
		ID:       "res-1",
		DeviceID: "DEV001",
		Owner:    "alice",
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(remaining),
		Status:   model.StatusUpcoming,
	}
}

// A reservation ending in exactly 31 minutes, observed once per second: the
// 30-minute threshold must fire exactly once, at the first tick where the
// remaining time reaches it, and never again on later ticks.
func TestTracker_EdgeTriggered(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := activeReservation(now, 31*time.Minute)
	tracker := NewTracker(nil)

	var fireTicks []int
	for tick := 0; tick <= 120; tick++ {
		crossed := tracker.Observe(r, now.Add(time.Duration(tick)*time.Second))
		for _, th := range crossed {
			if th.Name == "30m" {
				fireTicks = append(fireTicks, tick)
			}
		}
	}

	// Remaining hits exactly 30m at tick 60.
	assert.Equal(t, []int{60}, fireTicks)
}

func TestTracker_AllThresholdsFireOnce(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := activeReservation(now, 31*time.Minute)
	tracker := NewTracker(nil)

	counts := make(map[string]int)
	for tick := 0; tick <= 32*60; tick++ {
		for _, th := range tracker.Observe(r, now.Add(time.Duration(tick)*time.Second)) {
			counts[th.Name]++
		}
	}

	assert.Equal(t, map[string]int{"30m": 1, "10m": 1, "expiry": 1}, counts)
}

func TestTracker_UpcomingDoesNotFire(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := &model.Reservation{
		ID:       "future",
		DeviceID: "DEV001",
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(75 * time.Minute), // only 75m away, but not yet active
		Status:   model.StatusUpcoming,
	}

	tracker := NewTracker(nil)
	assert.Empty(t, tracker.Observe(r, now))
}

func TestTracker_TerminatedNeverFires(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := activeReservation(now, 5*time.Minute)
	r.Status = model.StatusTerminated

	tracker := NewTracker(nil)
	assert.Empty(t, tracker.Observe(r, now))
}

func TestTracker_ForgetResetsState(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := activeReservation(now, 20*time.Minute)
	tracker := NewTracker(nil)

	crossed := tracker.Observe(r, now)
	require.Len(t, crossed, 1) // already under 30m on first observation
	assert.Empty(t, tracker.Observe(r, now.Add(time.Second)))

	tracker.Forget(r.ID)
	crossed = tracker.Observe(r, now.Add(2*time.Second))
	assert.Len(t, crossed, 1, "forgotten reservation starts from a clean slate")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Your session on DEV001 ends in 30 minutes.", Message("DEV001", Threshold{Name: "30m", Remaining: 30 * time.Minute}))
	assert.Equal(t, "Your session on DEV001 has expired.", Message("DEV001", Threshold{Name: "expiry"}))
}
