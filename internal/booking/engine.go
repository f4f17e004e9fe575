// Package booking classifies device availability for a requested time window
// and enforces the no-overlap invariant at booking time.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"devlab-reservation-backend/internal/model"
	"devlab-reservation-backend/internal/status"
	"devlab-reservation-backend/internal/store"
)

var (
	// ErrInvalidWindow rejects windows with start >= end.
	ErrInvalidWindow = errors.New("reservation window must start before it ends")
	// ErrInPast rejects windows starting before the current time.
	ErrInPast = errors.New("reservation window must not start in the past")
	// ErrDeviceUnavailable surfaces a store conflict: someone else holds an
	// overlapping window on the device.
	ErrDeviceUnavailable = errors.New("device is already booked for the requested window")
	// ErrDeviceNotFound rejects bookings for unknown devices.
	ErrDeviceNotFound = errors.New("device not found")
)

// Availability classifies a device for a requested window.
type Availability string

const (
	Available Availability = "available"
	Booked    Availability = "booked"
)

// Engine is the availability and conflict engine. It owns no state of its own;
// the store remains the single overlap authority.
type Engine struct {
	store store.Store
	clock status.Clock
}

// NewEngine creates an engine backed by the given store.
func NewEngine(s store.Store, clock status.Clock) *Engine {
	if clock == nil {
		clock = status.RealClock{}
	}
	return &Engine{store: s, clock: clock}
}

// CheckAvailability classifies every known device for the window [start, end).
// A device is booked iff at least one non-terminated reservation overlaps.
func (e *Engine) CheckAvailability(ctx context.Context, start, end time.Time) (map[string]Availability, error) {
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}

	devices, err := e.store.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	result := make(map[string]Availability, len(devices))
	for _, d := range devices {
		overlapping, err := e.store.QueryOverlapping(ctx, d.ID, start, end)
		if err != nil {
			return nil, fmt.Errorf("check device %s: %w", d.ID, err)
		}
		if len(overlapping) > 0 {
			result[d.ID] = Booked
		} else {
			result[d.ID] = Available
		}
	}
	return result, nil
}

// Book validates the window, then delegates the conflict decision to the
// store's serialized insert. First successful insert wins; the loser of a race
// gets ErrDeviceUnavailable, never a silent overwrite.
func (e *Engine) Book(ctx context.Context, deviceID string, start, end time.Time, owner string) (*model.Reservation, error) {
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}
	if start.Before(e.clock.Now()) {
		return nil, ErrInPast
	}

	if _, err := e.store.GetDevice(ctx, deviceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("resolve device %s: %w", deviceID, err)
	}

	r := &model.Reservation{
		ID:       uuid.NewString(),
		DeviceID: deviceID,
		Owner:    owner,
		StartsAt: start,
		EndsAt:   end,
		Status:   model.StatusUpcoming,
	}

	if err := e.store.Insert(ctx, r); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDeviceUnavailable
		}
		return nil, fmt.Errorf("insert reservation: %w", err)
	}
	return r, nil
}
