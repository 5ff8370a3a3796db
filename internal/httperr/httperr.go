package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/logger"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

var statusByError = []struct {
	err     error
	status  int
	message string
}{
	{ErrInvalidRange, http.StatusBadRequest, "Slot end must be after its start."},
	{ErrInvalidInput, http.StatusBadRequest, "Invalid request."},
	{ErrSlotNotFound, http.StatusNotFound, "Slot not found."},
	{ErrBookingNotFound, http.StatusNotFound, "Booking not found."},
	{ErrIdentityNotFound, http.StatusNotFound, "User not found."},
	{ErrConflict, http.StatusConflict, "The slot was changed by someone else. Reload and try again."},
	{ErrSlotUnavailable, http.StatusConflict, "This time is no longer available. Please pick another slot."},
	{ErrInvalidState, http.StatusConflict, "The booking can no longer be changed this way."},
	{ErrTooLate, http.StatusUnprocessableEntity, "It is too late to cancel this booking."},
	{ErrOutsideBookingWindow, http.StatusUnprocessableEntity, "This slot is too close or too far ahead to book."},
	{ErrSelfReferral, http.StatusUnprocessableEntity, "You cannot use your own referral code."},
	{ErrUnknownCode, http.StatusUnprocessableEntity, "Unknown referral code."},
	{ErrForbidden, http.StatusForbidden, "You are not allowed to do this."},
	{ErrIdentityExists, http.StatusConflict, "This account is already registered. Please sign in."},
	{ErrInvalidCredentials, http.StatusUnauthorized, "Wrong account id or password."},
	{ErrBusy, http.StatusServiceUnavailable, "The service is busy. Please try again."},
}

// FromError maps domain errors to responses. Anything else is a 500 and gets logged.
func FromError(c *gin.Context, err error) {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			Write(c, m.status, Code(m.err), m.message)
			return
		}
	}

	logger.Error("request failed", "path", c.FullPath(), "error", err)
	Internal(c, "internal_error", "Something went wrong. Please try again.")
}
