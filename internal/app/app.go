// Package app wires configuration, storage, channels, subscribers, the
// reminder scheduler, and the HTTP server into one runnable unit.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/herald-hq/herald/internal/channels"
	"github.com/herald-hq/herald/internal/config"
	"github.com/herald-hq/herald/internal/core"
	"github.com/herald-hq/herald/internal/events"
	"github.com/herald-hq/herald/internal/reminders"
	"github.com/herald-hq/herald/internal/server"
	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/logger"
)

// App holds every long-lived component of the service.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	SQLite *sqlite.DB

	fanout    *events.Fanout
	scheduler *reminders.Scheduler
	server    *server.Server

	Version string
}

// Options contains configuration needed when creating a new App.
type Options struct {
	ConfigPath string
	Version    string
}

// New loads configuration and builds an App. Initialize must be called
// before Start.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger.New(cfg.Logging.Level),
		Version: opts.Version,
	}, nil
}

// Initialize opens storage, seeds admin users, and wires the channel
// registry, event subscribers, scheduler, and HTTP server.
func (a *App) Initialize(ctx context.Context) error {
	var err error

	a.SQLite, err = sqlite.New(sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}

	if err := core.InitAdminUsers(ctx, a.SQLite, a.Logger, a.Config.Server.AdminEmails); err != nil {
		return fmt.Errorf("failed to initialize admin users: %w", err)
	}

	registry := channels.NewRegistry(a.Logger,
		channels.NewInAppChannel(a.SQLite, a.Logger),
		channels.NewEmailChannel(a.Config.Channels.Email, a.Logger),
		channels.NewSMSChannel(a.Config.Channels.SMS, a.Logger),
	)
	dispatcher := channels.NewDispatcher(channels.DispatcherOptions{
		Registry:   registry,
		Logger:     a.Logger,
		BatchSize:  a.Config.Reminders.DispatchBatchSize,
		BatchPause: a.Config.Reminders.DispatchBatchPause,
	})

	a.fanout = events.NewFanout(a.Logger,
		events.NewNotificationSubscriber(a.SQLite, dispatcher, a.Logger),
		events.NewAnalyticsSubscriber(),
		events.NewAuditSubscriber(a.SQLite, a.Logger),
	)

	a.scheduler = reminders.NewScheduler(reminders.Options{
		Config:     a.Config.Reminders,
		DB:         a.SQLite,
		Dispatcher: dispatcher,
		Fanout:     a.fanout,
		Logger:     a.Logger,
	})
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start reminder scheduler: %w", err)
	}

	a.server = server.New(server.ServerOptions{
		Config:    a.Config,
		Logger:    a.Logger,
		SQLite:    a.SQLite,
		Fanout:    a.fanout,
		Scheduler: a.scheduler,
	})

	return nil
}

// Start begins serving HTTP. Blocks until Shutdown.
func (a *App) Start() error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	return a.server.Start()
}

// Shutdown stops components in dependency order: listener first, then
// the scheduler (draining an in-flight sweep), then storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if a.server != nil {
		serverCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(serverCtx); err != nil {
			a.Logger.Error("http server shutdown failed", "error", err)
		}
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("sqlite close failed", "error", err)
		}
	}

	a.Logger.Info("shutdown complete")
	return nil
}
