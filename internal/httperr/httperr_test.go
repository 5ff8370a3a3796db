package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsBusinessOnWrappedError(t *testing.T) {
	err := fmt.Errorf("claim slot: %w", ErrSlotUnavailable)

	if !errors.Is(err, ErrSlotUnavailable) {
		t.Error("errors.Is should see through wrapping")
	}
	if !IsBusiness(err, "slot_unavailable") {
		t.Error("IsBusiness should match code")
	}
	if Code(errors.New("disk on fire")) != "" {
		t.Error("plain errors carry no code")
	}
}

func TestFromErrorStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
		{fmt.Errorf("x: %w", ErrSlotNotFound), http.StatusNotFound, "slot_not_found"},
		{ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
		{ErrTooLate, http.StatusUnprocessableEntity, "too_late"},
		{ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrIdentityExists, http.StatusConflict, "identity_exists"},
		{ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("%w: slots contended after 9 attempts", ErrBusy), http.StatusServiceUnavailable, "busy"},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		FromError(c, tc.err)

		if w.Code != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, w.Code)
		}
		var body HTTPError
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Code != tc.code {
			t.Errorf("%v: expected code %q, got %q", tc.err, tc.code, body.Code)
		}
	}
}
