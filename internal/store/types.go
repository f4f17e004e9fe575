package store

import "errors"

// Requester identifies the caller of store operations that are gated by
// ownership. Admins may cancel and list on behalf of anyone.
type Requester struct {
	User  string
	Admin bool
}

var (
	// ErrConflict is returned by Insert when the requested window overlaps a
	// non-terminated reservation on the same device.
	ErrConflict = errors.New("reservation window conflicts with an existing reservation")
	// ErrNotFound is returned when a reservation or device id is unknown.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the requester is neither the owner nor an
	// administrator.
	ErrForbidden = errors.New("requester is not allowed to perform this operation")
)
