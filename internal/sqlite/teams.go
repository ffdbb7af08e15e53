package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/herald-hq/herald/pkg/models"
)

const (
	insertTeamQuery = `INSERT INTO teams (name, description)
VALUES (?, ?)
RETURNING id, created_at, updated_at`

	selectTeamBase = `SELECT id, name, description, created_at, updated_at FROM teams`
)

// CreateTeam inserts a new team.
func (db *DB) CreateTeam(ctx context.Context, team *models.Team) error {
	if team == nil {
		return fmt.Errorf("team payload is required")
	}
	row := db.writeDB.QueryRowContext(ctx, insertTeamQuery, team.Name, team.Description)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &createdAt, &updatedAt); err != nil {
		if IsUniqueConstraintError(err) {
			return fmt.Errorf("team with name %q already exists: %w", team.Name, err)
		}
		return fmt.Errorf("failed to insert team: %w", err)
	}
	team.ID = models.TeamID(id)
	team.CreatedAt = createdAt
	team.UpdatedAt = updatedAt
	return nil
}

// GetTeam retrieves a team by ID.
func (db *DB) GetTeam(ctx context.Context, teamID models.TeamID) (*models.Team, error) {
	row := db.readDB.QueryRowContext(ctx, selectTeamBase+" WHERE id = ?", int64(teamID))
	team, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return team, err
}

// ListTeams returns all teams.
func (db *DB) ListTeams(ctx context.Context) ([]*models.Team, error) {
	rows, err := db.readDB.QueryContext(ctx, selectTeamBase+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}
	return teams, nil
}

// AddTeamMember links a user to a team. Adding an existing member is a
// no-op.
func (db *DB) AddTeamMember(ctx context.Context, teamID models.TeamID, userID models.UserID) error {
	_, err := db.writeDB.ExecContext(ctx,
		"INSERT OR IGNORE INTO team_members (team_id, user_id) VALUES (?, ?)",
		int64(teamID), int64(userID))
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

// RemoveTeamMember unlinks a user from a team.
func (db *DB) RemoveTeamMember(ctx context.Context, teamID models.TeamID, userID models.UserID) error {
	_, err := db.writeDB.ExecContext(ctx,
		"DELETE FROM team_members WHERE team_id = ? AND user_id = ?",
		int64(teamID), int64(userID))
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return nil
}

// ListUserTeamIDs returns the IDs of every team the user belongs to.
func (db *DB) ListUserTeamIDs(ctx context.Context, userID models.UserID) ([]models.TeamID, error) {
	rows, err := db.readDB.QueryContext(ctx,
		"SELECT team_id FROM team_members WHERE user_id = ?", int64(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to query user teams: %w", err)
	}
	defer rows.Close()

	var teamIDs []models.TeamID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		teamIDs = append(teamIDs, models.TeamID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user teams: %w", err)
	}
	return teamIDs, nil
}

func scanTeam(scanner interface{ Scan(dest ...any) error }) (*models.Team, error) {
	var (
		id          int64
		name        string
		description string
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := scanner.Scan(&id, &name, &description, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}
	return &models.Team{
		ID:          models.TeamID(id),
		Name:        name,
		Description: description,
		Timestamps: models.Timestamps{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
	}, nil
}
