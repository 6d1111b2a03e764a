package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/companies"
	"gdprdesk/internal/domain/gdpr"
	"gdprdesk/internal/domain/notifications"
	"gdprdesk/internal/domain/users"
	"gdprdesk/internal/platform/config"
	cryptoutil "gdprdesk/internal/platform/crypto"
	"gdprdesk/internal/platform/db"
	"gdprdesk/internal/platform/email"
	"gdprdesk/internal/platform/jobs"
	"gdprdesk/internal/platform/metrics"
	"gdprdesk/internal/transport/http/api"
	adminhandler "gdprdesk/internal/transport/http/handlers/admin"
	audithandler "gdprdesk/internal/transport/http/handlers/audit"
	authhandler "gdprdesk/internal/transport/http/handlers/auth"
	companyhandler "gdprdesk/internal/transport/http/handlers/companies"
	notificationshandler "gdprdesk/internal/transport/http/handlers/notifications"
	requesthandler "gdprdesk/internal/transport/http/handlers/requests"
	userhandler "gdprdesk/internal/transport/http/handlers/users"
	"gdprdesk/internal/transport/http/middleware"
	"gdprdesk/internal/web"
)

// RouteRegistrar is implemented by every API handler.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

// New connects to Postgres, prepares the schema and wires every service and
// handler. Call Close when done.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	sealer, err := cryptoutil.NewSealer(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if !sealer.Configured() {
		zap.S().Warnw("DATA_ENCRYPTION_KEY not set; MFA enrollment disabled")
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	mailer := email.New(cfg)
	auditSvc := audit.New(pool)
	notifySvc := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom)
	authStore := auth.NewStore(pool)
	authSvc := auth.NewService(authStore, cfg.JWTSecret, cfg.TokenTTL, sealer, mailer, cfg.EmailFrom)
	userSvc := users.NewService(users.NewStore(pool), auditSvc, mailer, cfg.EmailFrom)
	companySvc := companies.NewService(companies.NewStore(pool), auditSvc)
	requestSvc := gdpr.NewService(gdpr.NewStore(pool), notifySvc, auditSvc)
	idempotency := middleware.NewIdempotencyStore(pool)

	var recorder jobs.Recorder
	if collector != nil {
		recorder = collector
	}
	jobSvc := jobs.New(jobs.NewStore(pool), jobs.Options{
		RetentionSchedule: cfg.RetentionSchedule,
		RetentionDays:     cfg.RetentionDays,
	}, recorder,
		jobs.RetentionTarget{Name: "gdpr_requests", Purge: requestSvc.PurgeClosed},
		jobs.RetentionTarget{Name: "notifications", Purge: notifySvc.Purge},
		jobs.RetentionTarget{Name: "audit_events", Purge: auditSvc.DeleteOlderThan},
		jobs.RetentionTarget{Name: "idempotency_keys", Purge: idempotency.DeleteOlderThan},
	)

	var snapshots adminhandler.Metrics
	if collector != nil {
		snapshots = collector
	}
	routes := []RouteRegistrar{
		authhandler.NewHandler(authSvc, userSvc, auditSvc),
		requesthandler.NewHandler(requestSvc, idempotency),
		companyhandler.NewHandler(companySvc),
		userhandler.NewHandler(userSvc),
		notificationshandler.NewHandler(notifySvc),
		audithandler.NewHandler(auditSvc),
		adminhandler.NewHandler(jobSvc, snapshots, auditSvc),
	}

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  NewRouter(cfg, collector, authStore, pool.Ping, routes...),
		Jobs:    jobSvc,
		Metrics: collector,
	}, nil
}

func (a *App) Close() {
	if a.Jobs != nil {
		a.Jobs.Stop()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// NewRouter builds the HTTP surface: probes, API docs, the /api tree and the
// bundle fallback. ready backs /readyz.
func NewRouter(cfg config.Config, collector *metrics.Collector, sessions middleware.SessionChecker, ready func(context.Context) error, routes ...RouteRegistrar) http.Handler {
	router := chi.NewRouter()
	if cfg.TrustProxy {
		router.Use(chimw.RealIP)
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, sessions))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if ready != nil {
			if err := ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.SwaggerEnabled {
		router.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("list"),
			httpSwagger.DomID("swagger-ui"),
		))
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		for _, h := range routes {
			h.RegisterRoutes(r)
		}
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(req.Context()))
		})
	})

	router.Handle("/*", web.NewSPAHandler(cfg.FrontendDir))
	return router
}
