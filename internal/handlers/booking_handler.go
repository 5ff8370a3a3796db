package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/domain/booking"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/httpresp"
	"github.com/warpVIT1/tarot-booking-app/internal/middleware"
	ucBooking "github.com/warpVIT1/tarot-booking-app/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type BookingHandler struct {
	ledger *ucBooking.Ledger
	tz     string
}

func NewBookingHandler(ledger *ucBooking.Ledger, tz string) *BookingHandler {
	return &BookingHandler{ledger: ledger, tz: tz}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateBookingRequest struct {
	SlotID        string `json:"slot_id" binding:"required"`
	ClientName    string `json:"client_name" binding:"required"`
	ClientContact string `json:"client_contact" binding:"required"`
	Question      string `json:"question"`
	SuggestedTime string `json:"suggested_time"`
}

// ======================================================
// CREATE
// ======================================================

func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return
	}

	fields := booking.Fields{
		ClientName:    req.ClientName,
		ClientContact: req.ClientContact,
		Question:      req.Question,
	}
	if req.SuggestedTime != "" {
		t, err := parseTime(req.SuggestedTime, h.tz)
		if err != nil {
			httperr.BadRequest(c, "invalid_suggested_time", "Invalid suggested time.")
			return
		}
		fields.SuggestedTime = &t
	}

	b, err := h.ledger.Create(c.Request.Context(), middleware.Actor(c), req.SlotID, fields)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.Created(c, b)
}

// ======================================================
// LISTS
// ======================================================

func (h *BookingHandler) ListMine(c *gin.Context) {
	list, err := h.ledger.ListForClient(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List(c, list)
}

func (h *BookingHandler) ListForProvider(c *gin.Context) {
	var status *booking.Status
	if s := c.Query("status"); s != "" {
		parsed, err := booking.ParseStatus(s)
		if err != nil {
			httperr.BadRequest(c, "invalid_status", "Unknown booking status.")
			return
		}
		status = &parsed
	}

	list, err := h.ledger.ListForProvider(c.Request.Context(), status)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List(c, list)
}

// ======================================================
// TRANSITIONS
// ======================================================

func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.ledger.Confirm)
}

func (h *BookingHandler) Reject(c *gin.Context) {
	h.transition(c, h.ledger.Reject)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.ledger.Cancel)
}

type transitionFunc func(ctx context.Context, bookingID string, actor identity.Actor) (booking.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, fn transitionFunc) {
	b, err := fn(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, gin.H{"booking": b})
}
