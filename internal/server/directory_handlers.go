package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

type createUserRequest struct {
	Email    string            `json:"email"`
	FullName string            `json:"full_name"`
	Role     models.UserRole   `json:"role"`
	Status   models.UserStatus `json:"status"`
}

func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if req.Email == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Email is required", models.ValidationErrorType)
	}

	user := &models.User{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Status:   req.Status,
	}
	if err := s.sqlite.CreateUser(c.Context(), user); err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			return SendErrorWithType(c, fiber.StatusConflict, "A user with this email already exists", models.ValidationErrorType)
		}
		s.log.Error("failed to create user", "email", req.Email, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create user", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusCreated, user)
}

type createTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateTeam(c *fiber.Ctx) error {
	var req createTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if req.Name == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Team name is required", models.ValidationErrorType)
	}

	team := &models.Team{Name: req.Name, Description: req.Description}
	if err := s.sqlite.CreateTeam(c.Context(), team); err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			return SendErrorWithType(c, fiber.StatusConflict, "A team with this name already exists", models.ValidationErrorType)
		}
		s.log.Error("failed to create team", "name", req.Name, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create team", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusCreated, team)
}

func (s *Server) handleAddTeamMember(c *fiber.Ctx) error {
	teamID, userID, ok := s.parseMembershipIDs(c)
	if !ok {
		return nil
	}

	if err := s.sqlite.AddTeamMember(c.Context(), teamID, userID); err != nil {
		s.log.Error("failed to add team member", "team_id", teamID, "user_id", userID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to add team member", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Member added"})
}

func (s *Server) handleRemoveTeamMember(c *fiber.Ctx) error {
	teamID, userID, ok := s.parseMembershipIDs(c)
	if !ok {
		return nil
	}

	if err := s.sqlite.RemoveTeamMember(c.Context(), teamID, userID); err != nil {
		s.log.Error("failed to remove team member", "team_id", teamID, "user_id", userID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to remove team member", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Member removed"})
}

// parseMembershipIDs reads and verifies the teamID/userID route params.
// On failure the error response has already been written and ok is false.
func (s *Server) parseMembershipIDs(c *fiber.Ctx) (models.TeamID, models.UserID, bool) {
	teamID, err := strconv.ParseInt(c.Params("teamID"), 10, 64)
	if err != nil || teamID <= 0 {
		_ = SendErrorWithType(c, fiber.StatusBadRequest, "Invalid team ID", models.ValidationErrorType)
		return 0, 0, false
	}
	userID, err := strconv.ParseInt(c.Params("userID"), 10, 64)
	if err != nil || userID <= 0 {
		_ = SendErrorWithType(c, fiber.StatusBadRequest, "Invalid user ID", models.ValidationErrorType)
		return 0, 0, false
	}

	if _, err := s.sqlite.GetTeam(c.Context(), models.TeamID(teamID)); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			_ = SendErrorWithType(c, fiber.StatusNotFound, "Team not found", models.NotFoundErrorType)
		} else {
			_ = SendError(c, fiber.StatusInternalServerError, "Failed to load team")
		}
		return 0, 0, false
	}
	if _, err := s.sqlite.GetUser(c.Context(), models.UserID(userID)); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			_ = SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		} else {
			_ = SendError(c, fiber.StatusInternalServerError, "Failed to load user")
		}
		return 0, 0, false
	}
	return models.TeamID(teamID), models.UserID(userID), true
}
