package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/herald-hq/herald/pkg/models"
)

const (
	insertUserQuery = `INSERT INTO users (email, full_name, role, status)
VALUES (?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectUserBase = `SELECT id, email, full_name, role, status, created_at, updated_at FROM users`

	updateUserQuery = `UPDATE users
SET email = ?,
    full_name = ?,
    role = ?,
    status = ?,
    updated_at = datetime('now')
WHERE id = ?`
)

// CreateUser inserts a new user, defaulting status to active.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user payload is required")
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	if user.Role == "" {
		user.Role = models.UserRoleMember
	}

	row := db.writeDB.QueryRowContext(ctx, insertUserQuery,
		user.Email, user.FullName, string(user.Role), string(user.Status))

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		if IsUniqueConstraintError(err) {
			return fmt.Errorf("user with email %q already exists: %w", user.Email, err)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID = models.UserID(id)
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return nil
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, userID models.UserID) (*models.User, error) {
	row := db.readDB.QueryRowContext(ctx, selectUserBase+" WHERE id = ?", int64(userID))
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return user, err
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.readDB.QueryRowContext(ctx, selectUserBase+" WHERE email = ?", email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return user, err
}

// UpdateUser persists changes to an existing user.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user payload is required")
	}
	res, err := db.writeDB.ExecContext(ctx, updateUserQuery,
		user.Email, user.FullName, string(user.Role), string(user.Status), int64(user.ID))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveUsers returns every user eligible to receive alerts.
func (db *DB) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	return db.queryUsers(ctx, selectUserBase+" WHERE status = 'active' ORDER BY id")
}

// ListActiveUsersByIDs returns active users whose ID is in ids.
func (db *DB) ListActiveUsersByIDs(ctx context.Context, ids []models.UserID) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, int64(id))
	}
	query := selectUserBase + " WHERE status = 'active' AND id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	return db.queryUsers(ctx, query, args...)
}

// ListActiveUsersByTeamIDs returns active users belonging to any of the
// given teams.
func (db *DB) ListActiveUsersByTeamIDs(ctx context.Context, teamIDs []models.TeamID) ([]*models.User, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(teamIDs))
	for _, id := range teamIDs {
		args = append(args, int64(id))
	}
	query := `SELECT DISTINCT u.id, u.email, u.full_name, u.role, u.status, u.created_at, u.updated_at
FROM users u
JOIN team_members tm ON tm.user_id = u.id
WHERE u.status = 'active' AND tm.team_id IN (` + placeholders(len(teamIDs)) + `)
ORDER BY u.id`
	return db.queryUsers(ctx, query, args...)
}

func (db *DB) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		id        int64
		email     string
		fullName  string
		role      string
		status    string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := scanner.Scan(&id, &email, &fullName, &role, &status, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &models.User{
		ID:       models.UserID(id),
		Email:    email,
		FullName: fullName,
		Role:     models.UserRole(role),
		Status:   models.UserStatus(status),
		Timestamps: models.Timestamps{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
	}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
