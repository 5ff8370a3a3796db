package handlers

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/fixtures"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/httpresp"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/middleware"
	ucIdentity "github.com/warpVIT1/tarot-booking-app/internal/usecase/identity"
	ucReferral "github.com/warpVIT1/tarot-booking-app/internal/usecase/referral"
)

type AuthHandler struct {
	directory *ucIdentity.Directory
	referrals *ucReferral.Graph
	config    *config.Config
}

func NewAuthHandler(dir *ucIdentity.Directory, referrals *ucReferral.Graph, cfg *config.Config) *AuthHandler {
	return &AuthHandler{directory: dir, referrals: referrals, config: cfg}
}

// --------- Requests ---------

type RegisterRequest struct {
	ID           string `json:"id" binding:"required,max=64"`
	Role         string `json:"role" binding:"required,oneof=client provider"`
	Password     string `json:"password" binding:"required,min=8,max=72"`
	DisplayName  string `json:"display_name" binding:"max=100"`
	ReferralCode string `json:"referral_code"`
	ProviderKey  string `json:"provider_key"`
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type DevLoginRequest struct {
	Role string `json:"role" binding:"required,oneof=client provider"`
}

// --------- Handlers ---------

// Register creates a new password-protected identity and issues a session
// token. A taken ID is refused: returning users sign in through Login. A
// referral code is applied on a best-effort basis: a bad code is reported
// back but never fails the registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return
	}

	if req.Role == string(identity.RoleProvider) && !h.providerKeyValid(req.ProviderKey) {
		httperr.Forbidden(c, "provider_signup_closed", "Reader accounts are created by invitation.")
		return
	}

	ctx := c.Request.Context()

	id, err := h.directory.Enroll(ctx, ucIdentity.Registration{
		ID:          req.ID,
		Role:        identity.Role(req.Role),
		DisplayName: req.DisplayName,
	}, req.Password)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	token, err := middleware.IssueToken(h.config, id)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not sign in.")
		return
	}

	resp := gin.H{
		"identity": id,
		"token":    token,
	}

	if req.ReferralCode != "" {
		attribution, err := h.referrals.Attribute(ctx, id, req.ReferralCode)
		switch {
		case httperr.Code(err) != "":
			resp["referral_error"] = httperr.Code(err)
		case err != nil:
			httperr.FromError(c, err)
			return
		default:
			resp["referral"] = attribution
			if !attribution.NoOp {
				if _, err := h.referrals.RewardIfEligible(ctx, attribution.InviterID); err != nil {
					logger.Warn("referral reward check failed", "inviter", attribution.InviterID, "error", err)
				}
			}
		}
	}

	httpresp.Created(c, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return
	}

	id, err := h.directory.Authenticate(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	token, err := middleware.IssueToken(h.config, id)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not sign in.")
		return
	}

	httpresp.OK(c, gin.H{"identity": id, "token": token})
}

func (h *AuthHandler) providerKeyValid(got string) bool {
	want := h.config.Auth.ProviderSignupKey
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// DevLogin signs in as one of the fixed dev identities. Routed only in dev mode.
func (h *AuthHandler) DevLogin(c *gin.Context) {
	var req DevLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request.")
		return
	}

	reg := ucIdentity.Registration{ID: fixtures.DevClientID, Role: identity.RoleClient, DisplayName: "Test User"}
	if req.Role == string(identity.RoleProvider) {
		reg = ucIdentity.Registration{ID: fixtures.DevProviderID, Role: identity.RoleProvider, DisplayName: "Test Reader"}
	}

	id, err := h.directory.Register(c.Request.Context(), reg)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	token, err := fixtures.DevToken(h.config, id)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not sign in.")
		return
	}

	httpresp.OK(c, gin.H{"identity": id, "token": token})
}
