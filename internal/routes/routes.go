package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/app"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/handlers"
	"github.com/warpVIT1/tarot-booking-app/internal/middleware"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	cfg := a.Config

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(a.Identities, a.Referrals, cfg)
	meHandler := handlers.NewMeHandler(a.Identities, a.Referrals)
	slotHandler := handlers.NewSlotHandler(a.Slots, cfg.Timezone)
	bookingHandler := handlers.NewBookingHandler(a.Bookings, cfg.Timezone)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	providerOnly := middleware.RequireRole(identity.RoleProvider)
	clientOnly := middleware.RequireRole(identity.RoleClient)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		if cfg.DevMode {
			api.POST("/dev/login", authHandler.DevLogin)
		}

		// ------------------------------
		// PRIVATE API
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			secured.GET("/me", meHandler.GetMe)
			secured.GET("/me/referral", meHandler.Referral)
			secured.GET("/me/bookings", bookingHandler.ListMine)

			secured.GET("/slots", slotHandler.List)
			secured.POST("/slots", providerOnly, slotHandler.Create)

			secured.POST("/bookings", clientOnly, bookingHandler.Create)
			secured.PATCH("/bookings/:id/confirm", providerOnly, bookingHandler.Confirm)
			secured.PATCH("/bookings/:id/reject", providerOnly, bookingHandler.Reject)
			secured.PATCH("/bookings/:id/cancel", bookingHandler.Cancel)

			secured.GET("/provider/bookings", providerOnly, bookingHandler.ListForProvider)

			if a.DB != nil {
				auditLogsHandler := handlers.NewAuditLogsHandler(a.DB)
				secured.GET("/audit-logs", providerOnly, auditLogsHandler.List)
			}
		}
	}
}
