package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/auth"
	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/goals"
	"perfdash/internal/domain/notifications"
	"perfdash/internal/domain/questionnaires"
	"perfdash/internal/platform/config"
	"perfdash/internal/platform/db"
	"perfdash/internal/platform/genai"
	"perfdash/internal/platform/jobs"
	"perfdash/internal/platform/logger"
	"perfdash/internal/platform/metrics"
	"perfdash/internal/platform/slack"
	"perfdash/internal/transport/http/api"
	audithandler "perfdash/internal/transport/http/handlers/audit"
	authhandler "perfdash/internal/transport/http/handlers/auth"
	functionshandler "perfdash/internal/transport/http/handlers/functions"
	goalshandler "perfdash/internal/transport/http/handlers/goals"
	notificationshandler "perfdash/internal/transport/http/handlers/notifications"
	questionnaireshandler "perfdash/internal/transport/http/handlers/questionnaires"
	usershandler "perfdash/internal/transport/http/handlers/users"
	"perfdash/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	Questionnaires *questionnaires.Service
	Sessions       *auth.Store
}

// New connects to the database, applies migrations and the roster seed when
// enabled, and builds the router. Background jobs start with Start.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg.SeedFile, auth.HashPassword); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	users := directory.NewStore(pool)
	sessions := auth.NewStore(pool)
	authService := auth.NewService(sessions, users, cfg.JWTSecret, cfg.SessionTTL)
	notificationService := notifications.New(notifications.NewStore(pool))
	auditService := audit.New(pool)
	goalService := goals.NewService(goals.NewStore(pool), users)

	questionnaireService := questionnaires.NewService(
		questionnaires.NewStore(pool),
		users,
		genai.New(cfg),
		slack.New(cfg),
		notificationService,
	)
	questionnaireService.DefaultChannel = cfg.SlackDefaultChannel
	questionnaireService.ReportsDir = cfg.ReportsDir

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}
	jobService := jobs.New(pool)

	var oauth authhandler.OAuthProvider
	if cfg.OAuthEnabled() {
		oauth = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL, cfg.JWTSecret)
	}

	app := &App{
		Config:         cfg,
		DB:             pool,
		Jobs:           jobService,
		Metrics:        collector,
		Questionnaires: questionnaireService,
		Sessions:       sessions,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(authService))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if collector != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.WriteJSON(w, http.StatusOK, collector.Snapshot())
		})
	}

	limited := chi.Chain(
		middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute),
		middleware.SensitiveRateLimit(cfg.RateLimitPerMinute, time.Minute),
	)

	guarded := router.With(limited...)
	guarded.Group(func(r chi.Router) {
		functionshandler.NewHandler(
			countingScheduler{svc: questionnaireService, metrics: collector},
			questionnaireService,
			jobService,
			auditService,
			cfg.SchedulerWebhookSecret,
		).RegisterRoutes(r)
	})

	guarded.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authService, oauth, cfg.IsProduction())
		authHandler.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			authHandler.RegisterRoutes(r)
			usershandler.NewHandler(directory.NewService(users, auth.HashPassword), auditService).RegisterRoutes(r)
			goalshandler.NewHandler(goalService, auditService, notificationService).RegisterRoutes(r)
			questionnaireshandler.NewHandler(questionnaireService, auditService, middleware.NewIdempotencyStore(pool)).RegisterRoutes(r)
			notificationshandler.NewHandler(notificationService).RegisterRoutes(r)
			audithandler.NewHandler(auditService).RegisterRoutes(r)
		})
	})

	app.Router = router
	return app, nil
}

// countingScheduler adds every scheduling run to the questionnaires_created
// counter.
type countingScheduler struct {
	svc     *questionnaires.Service
	metrics *metrics.Collector
}

func (c countingScheduler) ScheduleMonthly(ctx context.Context, now time.Time) ([]questionnaires.Questionnaire, error) {
	created, err := c.svc.ScheduleMonthly(ctx, now)
	c.metrics.Add("questionnaires_created", uint64(len(created)))
	return created, err
}

// Start registers the periodic jobs and runs the worker until ctx ends.
func (a *App) Start(ctx context.Context) {
	scheduler := countingScheduler{svc: a.Questionnaires, metrics: a.Metrics}
	a.Jobs.Every(jobs.JobMonthlyQuestionnaires, a.Config.SchedulerInterval, func(ctx context.Context) (any, error) {
		created, err := scheduler.ScheduleMonthly(ctx, time.Now())
		return map[string]any{"created": len(created), "trigger": "interval"}, err
	})
	a.Jobs.Every(jobs.JobSessionCleanup, time.Hour, func(ctx context.Context) (any, error) {
		deleted, err := a.Sessions.DeleteExpired(ctx)
		a.Metrics.Add("sessions_expired_deleted", uint64(max(deleted, 0)))
		return map[string]any{"deleted": deleted}, err
	})
	a.Jobs.Start(ctx)
	// Catch up on the current month right away instead of waiting a full
	// interval after a restart.
	a.Jobs.Enqueue(jobs.JobMonthlyQuestionnaires, func(ctx context.Context) (any, error) {
		created, err := scheduler.ScheduleMonthly(ctx, time.Now())
		return map[string]any{"created": len(created), "trigger": "startup"}, err
	})
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run loads configuration from the environment and serves until SIGINT or
// SIGTERM.
func Run() error {
	cfg := config.Load()
	logger.Init(cfg.IsProduction(), cfg.SentryDSN)
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("perfdash server listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
