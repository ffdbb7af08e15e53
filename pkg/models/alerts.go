package models

import "time"

// AlertID uniquely identifies an alert.
type AlertID int64

// AlertSeverity is a lightweight severity indicator for routing and display.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertStatus captures the lifecycle state of an alert. Archived is the
// terminal non-active state; alerts are never physically deleted.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusExpired  AlertStatus = "expired"
	AlertStatusArchived AlertStatus = "archived"
)

// DeliveryType enumerates supported outbound notification channels.
type DeliveryType string

const (
	DeliveryTypeInApp DeliveryType = "inapp"
	DeliveryTypeEmail DeliveryType = "email"
	DeliveryTypeSMS   DeliveryType = "sms"
)

// VisibilityType determines how an alert's audience is resolved.
type VisibilityType string

const (
	// VisibilityOrganization targets every active user.
	VisibilityOrganization VisibilityType = "organization"
	// VisibilityTeam targets active members of the listed teams.
	VisibilityTeam VisibilityType = "team"
	// VisibilityUser targets the listed users directly.
	VisibilityUser VisibilityType = "user"
)

// Visibility describes the audience scope of an alert. TargetIDs hold team
// IDs for team scope and user IDs for user scope; organization scope
// carries no targets.
type Visibility struct {
	Type      VisibilityType `json:"type"`
	TargetIDs []int64        `json:"target_ids,omitempty"`
}

// Alert is a broadcastable message with severity, visibility scope, and
// reminder policy.
type Alert struct {
	ID                       AlertID       `json:"id"`
	Title                    string        `json:"title"`
	Message                  string        `json:"message"`
	Severity                 AlertSeverity `json:"severity"`
	DeliveryType             DeliveryType  `json:"delivery_type"`
	ReminderFrequencyMinutes int           `json:"reminder_frequency_minutes"`
	StartsAt                 time.Time     `json:"starts_at"`
	ExpiresAt                *time.Time    `json:"expires_at,omitempty"`
	IsActive                 bool          `json:"is_active"`
	RemindersEnabled         bool          `json:"reminders_enabled"`
	Visibility               Visibility    `json:"visibility"`
	CreatedBy                UserID        `json:"created_by"`
	Status                   AlertStatus   `json:"status"`
	CreatedAt                time.Time     `json:"created_at"`
	UpdatedAt                time.Time     `json:"updated_at"`
}

// Started reports whether the alert's start time has passed.
func (a *Alert) Started(now time.Time) bool {
	return !a.StartsAt.After(now)
}

// Expired reports whether the alert's expiry time, if set, has passed.
func (a *Alert) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Deliverable reports whether the alert may be shown to recipients or
// produce reminders: active, started, and not past expiry.
func (a *Alert) Deliverable(now time.Time) bool {
	return a.Status == AlertStatusActive && a.IsActive && a.Started(now) && !a.Expired(now)
}

// ReminderWindow is the minimum gap between reminders for this alert.
func (a *Alert) ReminderWindow() time.Duration {
	return time.Duration(a.ReminderFrequencyMinutes) * time.Minute
}

// CreateAlertRequest defines the payload required to create a new alert.
type CreateAlertRequest struct {
	Title                    string        `json:"title"`
	Message                  string        `json:"message"`
	Severity                 AlertSeverity `json:"severity"`
	DeliveryType             DeliveryType  `json:"delivery_type"`
	ReminderFrequencyMinutes int           `json:"reminder_frequency_minutes"`
	StartsAt                 *time.Time    `json:"starts_at"`
	ExpiresAt                *time.Time    `json:"expires_at"`
	RemindersEnabled         *bool         `json:"reminders_enabled"`
	Visibility               Visibility    `json:"visibility"`
}

// UpdateAlertRequest defines updatable fields for an alert. Nil fields are
// left unchanged.
type UpdateAlertRequest struct {
	Title                    *string        `json:"title"`
	Message                  *string        `json:"message"`
	Severity                 *AlertSeverity `json:"severity"`
	DeliveryType             *DeliveryType  `json:"delivery_type"`
	ReminderFrequencyMinutes *int           `json:"reminder_frequency_minutes"`
	StartsAt                 *time.Time     `json:"starts_at"`
	ExpiresAt                *time.Time     `json:"expires_at"`
	IsActive                 *bool          `json:"is_active"`
	RemindersEnabled         *bool          `json:"reminders_enabled"`
	Visibility               *Visibility    `json:"visibility"`
}

// AlertFeedItem pairs an alert with the requesting user's acknowledgment
// state for it.
type AlertFeedItem struct {
	Alert            *Alert               `json:"alert"`
	Preference       *UserAlertPreference `json:"preference"`
	State            PreferenceState      `json:"state"`
	AvailableActions []PreferenceAction   `json:"available_actions"`
}
