package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/httpresp"
	"github.com/warpVIT1/tarot-booking-app/internal/middleware"
	ucIdentity "github.com/warpVIT1/tarot-booking-app/internal/usecase/identity"
	ucReferral "github.com/warpVIT1/tarot-booking-app/internal/usecase/referral"
)

type MeHandler struct {
	directory *ucIdentity.Directory
	referrals *ucReferral.Graph
}

func NewMeHandler(dir *ucIdentity.Directory, referrals *ucReferral.Graph) *MeHandler {
	return &MeHandler{directory: dir, referrals: referrals}
}

func (h *MeHandler) GetMe(c *gin.Context) {
	current, ok := middleware.SessionFrom(c).CurrentIdentity()
	if !ok {
		httperr.Unauthorized(c, "user_not_in_context", "Please sign in.")
		return
	}

	id, err := h.directory.FindByID(c.Request.Context(), current.ID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, id)
}

func (h *MeHandler) Referral(c *gin.Context) {
	stats, err := h.referrals.Stats(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, stats)
}
