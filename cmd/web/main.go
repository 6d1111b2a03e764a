package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gdprdesk/internal/platform/logger"
	"gdprdesk/internal/web"
)

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg := web.LoadConfig()
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Handle("/*", web.NewSPAHandler(cfg.DistDir))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zap.S().Infow("web server listening", "addr", cfg.Addr, "dist", cfg.DistDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("web server failed", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("web server shutdown failed", "err", err)
	}
}
