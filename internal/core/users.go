package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// InitAdminUsers ensures every configured admin email has an active
// admin account, creating or promoting as needed. Called once at boot.
func InitAdminUsers(ctx context.Context, db *sqlite.DB, log *slog.Logger, adminEmails []string) error {
	for _, email := range adminEmails {
		email = strings.TrimSpace(strings.ToLower(email))
		if email == "" {
			continue
		}

		user, err := db.GetUserByEmail(ctx, email)
		if err != nil {
			if !errors.Is(err, sqlite.ErrNotFound) {
				return fmt.Errorf("failed to look up admin %q: %w", email, err)
			}
			user = &models.User{
				Email:  email,
				Role:   models.UserRoleAdmin,
				Status: models.UserStatusActive,
			}
			if err := db.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("failed to create admin %q: %w", email, err)
			}
			log.Info("created admin user", "email", email, "user_id", user.ID)
			continue
		}

		if user.Role == models.UserRoleAdmin && user.Active() {
			continue
		}
		user.Role = models.UserRoleAdmin
		user.Status = models.UserStatusActive
		if err := db.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to promote admin %q: %w", email, err)
		}
		log.Info("promoted user to admin", "email", email, "user_id", user.ID)
	}
	return nil
}
