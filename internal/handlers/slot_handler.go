package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/httpresp"
	ucSlot "github.com/warpVIT1/tarot-booking-app/internal/usecase/slot"
)

// ======================================================
// HANDLER
// ======================================================

type SlotHandler struct {
	registry *ucSlot.Registry
	tz       string
}

func NewSlotHandler(registry *ucSlot.Registry, tz string) *SlotHandler {
	return &SlotHandler{registry: registry, tz: tz}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateSlotRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// ======================================================
// LIST
// ======================================================

func (h *SlotHandler) List(c *gin.Context) {
	var f ucSlot.Filter

	if s := c.Query("status"); s != "" {
		status, err := slot.ParseStatus(s)
		if err != nil {
			httperr.BadRequest(c, "invalid_status", "Unknown slot status.")
			return
		}
		f.Status = status
	}

	if from := c.Query("from"); from != "" {
		t, err := parseTime(from, h.tz)
		if err != nil {
			httperr.BadRequest(c, "invalid_from", "Invalid date.")
			return
		}
		f.From = t
	}

	slots, err := h.registry.List(c.Request.Context(), f)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List(c, slots)
}

// ======================================================
// CREATE
// ======================================================

func (h *SlotHandler) Create(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return
	}

	start, err := parseTime(req.Start, h.tz)
	if err != nil {
		httperr.BadRequest(c, "invalid_start", "Invalid start time.")
		return
	}
	end, err := parseTime(req.End, h.tz)
	if err != nil {
		httperr.BadRequest(c, "invalid_end", "Invalid end time.")
		return
	}

	s, err := h.registry.Create(c.Request.Context(), start, end)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.Created(c, s)
}
