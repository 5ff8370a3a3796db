package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/app"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/middleware"
	"github.com/warpVIT1/tarot-booking-app/internal/routes"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Debug: cfg.Log.Debug, File: cfg.Log.File})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to start", "error", err)
	}

	if cfg.DevMode {
		if _, err := a.Seeder().Seed(ctx); err != nil {
			logger.Warn("dev seed failed", "error", err)
		}
	}

	if err := a.Scheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start scheduler", "error", err)
	}

	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	routes.RegisterRoutes(r, a)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", "addr", cfg.Addr(), "store", cfg.Store.Driver, "dev", cfg.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := a.Close(); err != nil {
		logger.Error("cleanup failed", "error", err)
	}
}
