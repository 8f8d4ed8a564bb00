package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/config"
	"github.com/sahajkedia/student-profile-challenge/internal/db"
	"github.com/sahajkedia/student-profile-challenge/internal/logger"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/notify"
	"github.com/sahajkedia/student-profile-challenge/internal/session"
	"github.com/sahajkedia/student-profile-challenge/internal/telemetry"

	"github.com/gorilla/sessions"
	"github.com/uptrace/bun"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	sessionCleanupInterval = 15 * time.Minute
	notifyTimeout          = 30 * time.Second
)

type App struct {
	config        *config.Config
	logger        *slog.Logger
	server        *http.Server
	db            *bun.DB
	notifier      notify.Notifier
	meterProvider *sdkmetric.MeterProvider
	stopCleanup   context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, cfg.Env)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "env", cfg.Env, "commit", GitCommit, "built", BuildTime)

	app := &App{
		config: cfg,
		logger: slogLogger,
	}

	app.meterProvider, err = telemetry.InitMeterProvider(ctx, cfg.Telemetry, ServiceName, Version, cfg.Env, slogLogger)
	if err != nil {
		return nil, err
	}
	meter := app.meterProvider.Meter(ServiceName)

	appMetrics, err := metrics.New(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	if err := metrics.RegisterRuntime(meter); err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	if err := db.RunMigrations(db.DSN(cfg.Database)); err != nil {
		return nil, err
	}

	app.db, err = db.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := appMetrics.Database.RegisterDB(app.db.DB, meter); err != nil {
		return nil, fmt.Errorf("failed to register database metrics: %w", err)
	}

	notifier, err := notify.New(cfg, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	app.notifier = notify.Async(notify.Instrument(notifier, cfg.Notify.Driver, appMetrics), notifyTimeout, slogLogger)
	slogLogger.Info("notifier initialized", "driver", cfg.Notify.Driver)

	store := session.NewStore(session.NewPostgresBackend(app.db, appMetrics), slogLogger, sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAgeHours * int(time.Hour/time.Second),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}, []byte(cfg.Session.Secret))

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	store.StartCleanup(cleanupCtx, sessionCleanupInterval)
	app.stopCleanup = stopCleanup

	router := NewRouter(Deps{
		Config:   cfg,
		Logger:   slogLogger,
		DB:       app.db,
		Sessions: auth.NewSessions(store, cfg.Session.CookieName),
		Notifier: app.notifier,
		Metrics:  appMetrics,
	})

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	slogLogger.Info("application initialized successfully")
	return app, nil
}

func (a *App) Run() error {
	a.logger.Info("server starting", "port", a.config.Server.Port, "frontend_url", a.config.Server.FrontendURL)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the notifier, the pool
// and the meter provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	err := a.server.Shutdown(ctx)
	a.stopCleanup()

	if cerr := a.notifier.Close(); cerr != nil {
		a.logger.Warn("failed to close notifier", "error", cerr)
	}
	db.Close(a.db)

	if terr := telemetry.Shutdown(ctx, a.meterProvider, a.logger); terr != nil {
		a.logger.Warn("failed to shut down telemetry", "error", terr)
	}
	return err
}
