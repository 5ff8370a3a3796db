// Package referral derives referral codes and holds the records of the referral graph.
package referral

import (
	"strconv"
	"time"
	"unicode/utf16"
)

// CodeFor derives the referral code of an identity: the id, "_", and up to six
// base-36 digits of a 31-multiplier string hash over its UTF-16 code units.
// Codes are stable but neither unique nor secret.
func CodeFor(identityID string) string {
	var h int32
	for _, u := range utf16.Encode([]rune(identityID)) {
		h = (h << 5) - h + int32(u)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	digits := strconv.FormatInt(abs, 36)
	if len(digits) > 6 {
		digits = digits[:6]
	}
	return identityID + "_" + digits
}

// Edge records that InviterID brought InviteeID in.
type Edge struct {
	InviterID string    `json:"inviter_id"`
	InviteeID string    `json:"invitee_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Bonus is granted at most once per inviter.
type Bonus struct {
	InviterID string    `json:"inviter_id"`
	Amount    int       `json:"amount"`
	GrantedAt time.Time `json:"granted_at"`
}

type Attribution struct {
	InviterID       string `json:"inviter_id"`
	InviteeID       string `json:"invitee_id"`
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	// NoOp is set when the invitee was already attributed.
	NoOp bool `json:"no_op"`
}

type Stats struct {
	Code         string `json:"code"`
	Invited      int    `json:"invited"`
	Threshold    int    `json:"threshold"`
	BonusGranted bool   `json:"bonus_granted"`
	BonusAmount  int    `json:"bonus_amount,omitempty"`
}
