package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// Directory is the user/team lookup collaborator used for audience
// resolution. *sqlite.DB satisfies it.
type Directory interface {
	ListActiveUsers(ctx context.Context) ([]*models.User, error)
	ListActiveUsersByIDs(ctx context.Context, ids []models.UserID) ([]*models.User, error)
	ListActiveUsersByTeamIDs(ctx context.Context, teamIDs []models.TeamID) ([]*models.User, error)
	GetUser(ctx context.Context, userID models.UserID) (*models.User, error)
	GetTeam(ctx context.Context, teamID models.TeamID) (*models.Team, error)
}

// ResolveAudience computes the deduplicated set of active recipients for
// a visibility scope. Inactive users are always excluded.
func ResolveAudience(ctx context.Context, dir Directory, visibility models.Visibility) ([]*models.User, error) {
	var (
		users []*models.User
		err   error
	)
	switch visibility.Type {
	case models.VisibilityOrganization:
		users, err = dir.ListActiveUsers(ctx)
	case models.VisibilityTeam:
		teamIDs := make([]models.TeamID, 0, len(visibility.TargetIDs))
		for _, id := range visibility.TargetIDs {
			teamIDs = append(teamIDs, models.TeamID(id))
		}
		users, err = dir.ListActiveUsersByTeamIDs(ctx, teamIDs)
	case models.VisibilityUser:
		userIDs := make([]models.UserID, 0, len(visibility.TargetIDs))
		for _, id := range visibility.TargetIDs {
			userIDs = append(userIDs, models.UserID(id))
		}
		users, err = dir.ListActiveUsersByIDs(ctx, userIDs)
	default:
		return nil, &ValidationError{Field: "visibility.type", Message: fmt.Sprintf("unknown visibility type %q", visibility.Type)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}
	return dedupeUsers(users), nil
}

// ValidateVisibility checks that a visibility scope is well formed and
// that every target resolves in the directory. Organization scope needs
// no targets; team and user scopes need at least one, and a target that
// does not resolve is a validation error.
func ValidateVisibility(ctx context.Context, dir Directory, visibility models.Visibility) error {
	switch visibility.Type {
	case models.VisibilityOrganization:
		return nil
	case models.VisibilityTeam:
		if len(visibility.TargetIDs) == 0 {
			return &ValidationError{Field: "visibility.target_ids", Message: "team visibility requires at least one team"}
		}
		for _, id := range visibility.TargetIDs {
			if _, err := dir.GetTeam(ctx, models.TeamID(id)); err != nil {
				if errors.Is(err, sqlite.ErrNotFound) {
					return &ValidationError{Field: "visibility.target_ids", Message: fmt.Sprintf("team %d does not exist", id)}
				}
				return fmt.Errorf("failed to validate team target %d: %w", id, err)
			}
		}
		return nil
	case models.VisibilityUser:
		if len(visibility.TargetIDs) == 0 {
			return &ValidationError{Field: "visibility.target_ids", Message: "user visibility requires at least one user"}
		}
		for _, id := range visibility.TargetIDs {
			if _, err := dir.GetUser(ctx, models.UserID(id)); err != nil {
				if errors.Is(err, sqlite.ErrNotFound) {
					return &ValidationError{Field: "visibility.target_ids", Message: fmt.Sprintf("user %d does not exist", id)}
				}
				return fmt.Errorf("failed to validate user target %d: %w", id, err)
			}
		}
		return nil
	default:
		return &ValidationError{Field: "visibility.type", Message: fmt.Sprintf("unknown visibility type %q", visibility.Type)}
	}
}

// UserInScope reports whether a user falls inside an alert's visibility
// scope. userTeamIDs are the teams the user belongs to.
func UserInScope(user *models.User, visibility models.Visibility, userTeamIDs []models.TeamID) bool {
	if user == nil || !user.Active() {
		return false
	}
	switch visibility.Type {
	case models.VisibilityOrganization:
		return true
	case models.VisibilityTeam:
		for _, target := range visibility.TargetIDs {
			for _, teamID := range userTeamIDs {
				if models.TeamID(target) == teamID {
					return true
				}
			}
		}
		return false
	case models.VisibilityUser:
		for _, target := range visibility.TargetIDs {
			if models.UserID(target) == user.ID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func dedupeUsers(users []*models.User) []*models.User {
	seen := make(map[models.UserID]struct{}, len(users))
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}
