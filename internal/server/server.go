// Package server exposes the HTTP API: admin alert management, the
// per-user alert feed, and acknowledgment actions.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/herald-hq/herald/internal/config"
	"github.com/herald-hq/herald/internal/events"
	"github.com/herald-hq/herald/internal/reminders"
	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// Server hosts the HTTP API over the lifecycle engine.
type Server struct {
	app       *fiber.App
	config    *config.Config
	log       *slog.Logger
	sqlite    *sqlite.DB
	fanout    *events.Fanout
	scheduler *reminders.Scheduler
}

// ServerOptions bundles the dependencies a Server needs.
type ServerOptions struct {
	Config    *config.Config
	Logger    *slog.Logger
	SQLite    *sqlite.DB
	Fanout    *events.Fanout
	Scheduler *reminders.Scheduler
}

// New builds the fiber app and registers all routes.
func New(opts ServerOptions) *Server {
	s := &Server{
		config:    opts.Config,
		log:       opts.Logger.With("component", "server"),
		sqlite:    opts.SQLite,
		fanout:    opts.Fanout,
		scheduler: opts.Scheduler,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "herald",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.handleMetrics)

	api := s.app.Group("/api/v1")

	admin := api.Group("/admin", s.requireAdmin)
	admin.Get("/alerts", s.handleListAlerts)
	admin.Post("/alerts", s.handleCreateAlert)
	admin.Get("/alerts/:alertID", s.handleGetAlert)
	admin.Put("/alerts/:alertID", s.handleUpdateAlert)
	admin.Delete("/alerts/:alertID", s.handleArchiveAlert)
	admin.Get("/alerts/:alertID/audit", s.handleListAlertAudit)
	admin.Get("/alerts/:alertID/deliveries", s.handleListAlertDeliveries)
	admin.Post("/reminders/sweep", s.handleTriggerSweep)
	admin.Post("/users", s.handleCreateUser)
	admin.Post("/teams", s.handleCreateTeam)
	admin.Post("/teams/:teamID/members/:userID", s.handleAddTeamMember)
	admin.Delete("/teams/:teamID/members/:userID", s.handleRemoveTeamMember)

	user := api.Group("/user", s.requireUser)
	user.Get("/alerts", s.handleGetUserFeed)
	user.Post("/alerts/:alertID/read", s.handleMarkRead)
	user.Post("/alerts/:alertID/snooze", s.handleSnooze)
	user.Post("/alerts/:alertID/unsnooze", s.handleUnsnooze)
}

// Start begins serving. Blocks until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.config.Server.Addr())
	return s.app.Listen(s.config.Server.Addr())
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return SendError(c, code, err.Error())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"status": "healthy"})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	metrics.WritePrometheus(c.Response().BodyWriter(), true)
	return nil
}

// actorKey is the fiber locals slot holding the authenticated user.
const actorKey = "herald_actor"

// resolveActor loads the calling user from the X-User-ID header.
// Identity is trusted from the fronting proxy; herald does no
// authentication of its own. On failure the error response has already
// been written and the returned user is nil.
func (s *Server) resolveActor(c *fiber.Ctx) (*models.User, error) {
	raw := c.Get("X-User-ID")
	if raw == "" {
		return nil, SendErrorWithType(c, fiber.StatusUnauthorized, "Missing X-User-ID header", models.ValidationErrorType)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid X-User-ID header", models.ValidationErrorType)
	}

	user, err := s.sqlite.GetUser(c.Context(), models.UserID(id))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return nil, SendErrorWithType(c, fiber.StatusUnauthorized, "Unknown user", models.NotFoundErrorType)
		}
		s.log.Error("failed to resolve actor", "user_id", id, "error", err)
		return nil, SendError(c, fiber.StatusInternalServerError, "Failed to resolve user")
	}
	if !user.Active() {
		return nil, SendErrorWithType(c, fiber.StatusForbidden, "User is inactive", models.GeneralErrorType)
	}
	return user, nil
}

func (s *Server) requireUser(c *fiber.Ctx) error {
	user, err := s.resolveActor(c)
	if user == nil {
		return err
	}
	c.Locals(actorKey, user)
	return c.Next()
}

// requireAdmin is requireUser plus an admin role check.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	user, err := s.resolveActor(c)
	if user == nil {
		return err
	}
	if user.Role != models.UserRoleAdmin {
		return SendErrorWithType(c, fiber.StatusForbidden, "Admin role required", models.GeneralErrorType)
	}
	c.Locals(actorKey, user)
	return c.Next()
}

// actor returns the authenticated user stored by requireUser.
func actor(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(actorKey).(*models.User)
	return user
}

// parseAlertID reads the alertID route param. On a malformed value the
// 400 response has already been written and ok is false.
func parseAlertID(c *fiber.Ctx) (models.AlertID, bool) {
	id, err := strconv.ParseInt(c.Params("alertID"), 10, 64)
	if err != nil || id <= 0 {
		_ = SendErrorWithType(c, fiber.StatusBadRequest, "Invalid alert ID", models.ValidationErrorType)
		return 0, false
	}
	return models.AlertID(id), true
}
