package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/herald-hq/herald/internal/core"
	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

func (s *Server) handleListAlerts(c *fiber.Ctx) error {
	alerts, err := s.sqlite.ListAlerts(c.Context())
	if err != nil {
		s.log.Error("failed to list alerts", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, alerts)
}

func (s *Server) handleCreateAlert(c *fiber.Ctx) error {
	var req models.CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	alert, err := core.CreateAlert(c.Context(), s.sqlite, s.log, s.fanout, req, actor(c).ID)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return SendErrorWithType(c, fiber.StatusBadRequest, verr.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to create alert", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusCreated, alert)
}

func (s *Server) handleGetAlert(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}

	alert, err := s.sqlite.GetAlert(c.Context(), alertID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get alert", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve alert", models.GeneralErrorType)
	}

	count, err := s.sqlite.CountPreferencesForAlert(c.Context(), alertID)
	if err != nil {
		s.log.Error("failed to count alert preferences", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"alert":            alert,
		"preference_count": count,
	})
}

func (s *Server) handleUpdateAlert(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}

	var req models.UpdateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	updated, err := core.UpdateAlert(c.Context(), s.sqlite, s.log, s.fanout, alertID, req, actor(c).ID)
	if err != nil {
		var verr *core.ValidationError
		switch {
		case errors.As(err, &verr):
			return SendErrorWithType(c, fiber.StatusBadRequest, verr.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to update alert", "alert_id", alertID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to update alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, updated)
}

func (s *Server) handleArchiveAlert(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}

	if err := core.ArchiveAlert(c.Context(), s.sqlite, s.log, alertID); err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to archive alert", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to archive alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Alert archived"})
}

func (s *Server) handleListAlertAudit(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}

	limit := c.QueryInt("limit", 0)
	entries, err := s.sqlite.ListAuditEntries(c.Context(), alertID, limit)
	if err != nil {
		s.log.Error("failed to list audit entries", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list audit entries", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, entries)
}

func (s *Server) handleListAlertDeliveries(c *fiber.Ctx) error {
	alertID, ok := parseAlertID(c)
	if !ok {
		return nil
	}

	deliveries, err := s.sqlite.ListDeliveriesForAlert(c.Context(), alertID)
	if err != nil {
		s.log.Error("failed to list deliveries", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list deliveries", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, deliveries)
}

// handleTriggerSweep runs one reminder sweep immediately instead of
// waiting for the next scheduled tick.
func (s *Server) handleTriggerSweep(c *fiber.Ctx) error {
	s.scheduler.Sweep(c.Context())
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Sweep completed"})
}
