package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"devlab-reservation-backend/internal/model"
	"devlab-reservation-backend/internal/status"
)

// deviceStatusResponse is the flattened structure for the device list.
type deviceStatusResponse struct {
	model.Device
	State        string     `json:"state"` // available | booked
	ReservedFrom *time.Time `json:"reserved_from,omitempty"`
	ReservedTo   *time.Time `json:"reserved_to,omitempty"`
}

// GetDevices handles GET /api/devices: every device with its classification at
// the current instant. Statuses are derived on this request, never read from
// the stored field.
func (h *Handler) GetDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	current, err := h.store.ListCurrent(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	now := h.clock.Now()
	activeByDevice := make(map[string]*model.Reservation)
	for i := range current {
		r := &current[i]
		if status.Derive(r, now) == model.StatusActive {
			activeByDevice[r.DeviceID] = r
		}
	}

	response := make([]deviceStatusResponse, 0, len(devices))
	for _, d := range devices {
		entry := deviceStatusResponse{Device: d, State: "available"}
		if r, ok := activeByDevice[d.ID]; ok {
			entry.State = "booked"
			entry.ReservedFrom = &r.StartsAt
			entry.ReservedTo = &r.EndsAt
		}
		response = append(response, entry)
	}
	c.JSON(http.StatusOK, response)
}

type saveDeviceRequest struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name" binding:"required"`
	PCIP         string `json:"pc_ip"`
	RutomatrixIP string `json:"rutomatrix_ip"`
	Pulse1IP     string `json:"pulse1_ip"`
	CT1IP        string `json:"ct1_ip"`
}

// SaveDevice handles POST /api/devices and PUT /api/devices/:id (admin only).
func (h *Handler) SaveDevice(c *gin.Context) {
	var req saveDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if id == "" {
		id = req.ID
	}
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "device id is required"})
		return
	}

	device := model.Device{
		ID:           id,
		DisplayName:  req.DisplayName,
		PCIP:         req.PCIP,
		RutomatrixIP: req.RutomatrixIP,
		Pulse1IP:     req.Pulse1IP,
		CT1IP:        req.CT1IP,
	}
	if err := h.store.SaveDevice(c.Request.Context(), &device); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// DeleteDevice handles DELETE /api/devices/:id (admin only).
func (h *Handler) DeleteDevice(c *gin.Context) {
	if err := h.store.DeleteDevice(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
