// Package status derives the observable lifecycle state of a reservation from
// its stored interval and the current time. Every view and background task
// goes through Derive; the result is never cached across time boundaries.
package status

import (
	"time"

	"devlab-reservation-backend/internal/model"
)

// Clock abstracts wall-clock time so time-dependent logic is testable.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Derive maps a reservation and an instant to its lifecycle state.
// Terminated is sticky and overrides the interval; otherwise the state follows
// the wall clock through upcoming -> active -> completed, never backward.
func Derive(r *model.Reservation, now time.Time) string {
	switch {
	case r.Status == model.StatusTerminated:
		return model.StatusTerminated
	case now.Before(r.StartsAt):
		return model.StatusUpcoming
	case !now.After(r.EndsAt):
		return model.StatusActive
	default:
		return model.StatusCompleted
	}
}

// Prune drops reservations that no longer belong to the current working set:
// terminated ones and those whose end lies in the past.
func Prune(rs []model.Reservation, now time.Time) []model.Reservation {
	out := make([]model.Reservation, 0, len(rs))
	for _, r := range rs {
		switch Derive(&r, now) {
		case model.StatusTerminated, model.StatusCompleted:
			continue
		}
		out = append(out, r)
	}
	return out
}

// Remaining reports the time left until the reservation's end. Negative once
// the end has passed.
func Remaining(r *model.Reservation, now time.Time) time.Duration {
	return r.EndsAt.Sub(now)
}
