package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"devlab-reservation-backend/internal/booking"
	"devlab-reservation-backend/internal/status"
	"devlab-reservation-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *booking.Engine
	clock   status.Clock
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, engine *booking.Engine, clock status.Clock, webpushOptions *webpush.Options) *Handler {
	if clock == nil {
		clock = status.RealClock{}
	}
	return &Handler{
		store:   s,
		engine:  engine,
		clock:   clock,
		webpush: webpushOptions,
	}
}

// abortWithError maps the domain error taxonomy onto HTTP statuses. Booking
// failures keep "slot taken" distinguishable from "malformed request" so the
// client knows whether to retry with a different window or a different device.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidWindow):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "the reservation window must start before it ends"})
	case errors.Is(err, booking.ErrInPast):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "the reservation window must not start in the past"})
	case errors.Is(err, booking.ErrDeviceUnavailable), errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "someone else already booked this device for an overlapping window"})
	case errors.Is(err, booking.ErrDeviceNotFound), errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you are not allowed to perform this operation"})
	default:
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporary backend failure, please retry"})
	}
}
