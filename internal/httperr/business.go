package httperr

import "errors"

type BusinessError struct {
	Code string
}

func (e BusinessError) Error() string {
	return e.Code
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// Code returns the business code carried by err, or "" for infrastructure errors.
func Code(err error) string {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Domain error taxonomy. All values are comparable, so errors.Is works on wrapped copies.
var (
	ErrInvalidRange         = ErrBusiness("invalid_range")
	ErrInvalidInput         = ErrBusiness("invalid_input")
	ErrSlotNotFound         = ErrBusiness("slot_not_found")
	ErrBookingNotFound      = ErrBusiness("booking_not_found")
	ErrIdentityNotFound     = ErrBusiness("identity_not_found")
	ErrConflict             = ErrBusiness("conflict")
	ErrSlotUnavailable      = ErrBusiness("slot_unavailable")
	ErrInvalidState         = ErrBusiness("invalid_state")
	ErrTooLate              = ErrBusiness("too_late")
	ErrOutsideBookingWindow = ErrBusiness("outside_booking_window")
	ErrSelfReferral         = ErrBusiness("self_referral")
	ErrUnknownCode          = ErrBusiness("unknown_referral_code")
	ErrForbidden            = ErrBusiness("forbidden")
	ErrIdentityExists       = ErrBusiness("identity_exists")
	ErrInvalidCredentials   = ErrBusiness("invalid_credentials")
	// ErrBusy means the store stayed contended until the request gave up. Safe to retry.
	ErrBusy = ErrBusiness("busy")
)
