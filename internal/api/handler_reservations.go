package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devlab-reservation-backend/internal/auth"
	"devlab-reservation-backend/internal/model"
	"devlab-reservation-backend/internal/parse"
	"devlab-reservation-backend/internal/status"
)

type availabilityRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// CheckAvailability handles POST /api/availability: classify every device as
// available or booked for the requested window.
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window, err := parse.ParseWindow(req.Start, req.End)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.CheckAvailability(c.Request.Context(), window.Start, window.End)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": result})
}

type createReservationRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Start    string `json:"start" binding:"required"`
	End      string `json:"end" binding:"required"`
}

// reservationResponse carries a reservation with its display status derived
// for this instant.
type reservationResponse struct {
	model.Reservation
	DisplayStatus string `json:"display_status"`
}

// CreateReservation handles POST /api/reservations. The owner is always the
// authenticated caller; the engine decides the conflict outcome.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window, err := parse.ParseWindow(req.Start, req.End)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requester := auth.Identity(c)
	r, err := h.engine.Book(c.Request.Context(), req.DeviceID, window.Start, window.End, requester.User)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reservationResponse{
		Reservation:   *r,
		DisplayStatus: status.Derive(r, h.clock.Now()),
	})
}

// ListReservations handles GET /api/reservations. Admins may pass ?all=true;
// the store enforces the restriction for everyone else.
func (h *Handler) ListReservations(c *gin.Context) {
	requester := auth.Identity(c)
	all := c.Query("all") == "true"

	reservations, err := h.store.ListForOwner(c.Request.Context(), requester, all)
	if err != nil {
		abortWithError(c, err)
		return
	}

	now := h.clock.Now()
	response := make([]reservationResponse, 0, len(reservations))
	for i := range reservations {
		response = append(response, reservationResponse{
			Reservation:   reservations[i],
			DisplayStatus: status.Derive(&reservations[i], now),
		})
	}
	c.JSON(http.StatusOK, response)
}

// CancelReservation handles DELETE /api/reservations/:id.
func (h *Handler) CancelReservation(c *gin.Context) {
	requester := auth.Identity(c)
	if err := h.store.Cancel(c.Request.Context(), c.Param("id"), requester); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHistory handles GET /api/history, optionally filtered by ?device_id=.
// Regular users see their own archived reservations, admins see everyone's.
func (h *Handler) GetHistory(c *gin.Context) {
	requester := auth.Identity(c)
	records, err := h.store.ListHistory(c.Request.Context(), requester, c.Query("device_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
