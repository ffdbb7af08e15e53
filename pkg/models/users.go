package models

import "time"

// UserID uniquely identifies a user.
type UserID int64

// TeamID uniquely identifies a team.
type TeamID int64

// UserRole defines the authorization level of a user.
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

// UserStatus indicates whether a user can receive alerts.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// Timestamps embeds creation and modification times.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a directory entry for an alert recipient.
type User struct {
	ID       UserID     `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     UserRole   `json:"role"`
	Status   UserStatus `json:"status"`
	Timestamps
}

// Active reports whether the user is eligible to receive alerts.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

// Team groups users for team-scoped alert visibility.
type Team struct {
	ID          TeamID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Timestamps
}

// TeamMember links a user to a team.
type TeamMember struct {
	TeamID    TeamID    `json:"team_id"`
	UserID    UserID    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
