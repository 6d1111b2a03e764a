package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "gdprdesk/docs" // swagger docs
	"gdprdesk/internal/app/server"
	"gdprdesk/internal/platform/config"
	"gdprdesk/internal/platform/logger"
)

// @title GDPR Desk API
// @version 1.0
// @description Data subject request intake, review and export for companies and their clients.

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		zap.S().Fatalw("invalid configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg)
	if err != nil {
		zap.S().Fatalw("startup failed", "err", err)
	}
	defer app.Close()

	if err := app.Jobs.Start(ctx); err != nil {
		zap.S().Fatalw("job scheduler failed", "err", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		zap.S().Infow("api listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorw("api server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	zap.S().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("api shutdown failed", "err", err)
	}
}
