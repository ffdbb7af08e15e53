package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/herald-hq/herald/internal/core"
	"github.com/herald-hq/herald/pkg/models"
)

func (s *Server) handleGetUserFeed(c *fiber.Ctx) error {
	user := actor(c)

	feed, err := core.GetAlertsForUser(c.Context(), s.sqlite, s.log, user.ID)
	if err != nil {
		s.log.Error("failed to build alert feed", "user_id", user.ID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to load alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, feed)
}

func (s *Server) handleMarkRead(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}
	user := actor(c)

	if err := core.MarkAlertAsRead(c.Context(), s.sqlite, s.log, user.ID, alertID); err != nil {
		return s.sendPreferenceError(c, err, "Failed to mark alert as read")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Alert marked as read"})
}

// snoozeRequest carries the snooze window in hours.
type snoozeRequest struct {
	Hours int `json:"hours"`
}

func (s *Server) handleSnooze(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}
	user := actor(c)

	var req snoozeRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	if err := core.SnoozeAlert(c.Context(), s.sqlite, s.log, user.ID, alertID, req.Hours); err != nil {
		return s.sendPreferenceError(c, err, "Failed to snooze alert")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Alert snoozed"})
}

func (s *Server) handleUnsnooze(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}
	user := actor(c)

	if err := core.UnsnoozeAlert(c.Context(), s.sqlite, s.log, user.ID, alertID); err != nil {
		return s.sendPreferenceError(c, err, "Failed to unsnooze alert")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Alert unsnoozed"})
}

func (s *Server) sendPreferenceError(c *fiber.Ctx, err error, fallback string) error {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return SendErrorWithType(c, fiber.StatusBadRequest, verr.Error(), models.ValidationErrorType)
	case errors.Is(err, core.ErrAlertNotFound):
		return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
	case errors.Is(err, core.ErrPreferenceNotFound):
		return SendErrorWithType(c, fiber.StatusNotFound, "No acknowledgment record for alert", models.NotFoundErrorType)
	default:
		s.log.Error("acknowledgment action failed", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, fallback, models.GeneralErrorType)
	}
}
