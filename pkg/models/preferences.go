package models

import "time"

// PreferenceState is the derived acknowledgment state of a (user, alert)
// pair. It is never stored: snooze expiry is time-driven, so the state is
// recomputed from the stored flags and the clock on every read.
type PreferenceState string

const (
	PreferenceStateUnread  PreferenceState = "unread"
	PreferenceStateRead    PreferenceState = "read"
	PreferenceStateSnoozed PreferenceState = "snoozed"
)

// PreferenceAction names an acknowledgment action a user may take.
type PreferenceAction string

const (
	PreferenceActionMarkRead PreferenceAction = "mark_as_read"
	PreferenceActionSnooze   PreferenceAction = "snooze"
	PreferenceActionUnsnooze PreferenceAction = "unsnooze"
)

// UserAlertPreference tracks one user's acknowledgment of one alert.
// Unique per (UserID, AlertID); created lazily on first resolution.
type UserAlertPreference struct {
	ID               int64      `json:"id"`
	UserID           UserID     `json:"user_id"`
	AlertID          AlertID    `json:"alert_id"`
	IsRead           bool       `json:"is_read"`
	IsSnoozed        bool       `json:"is_snoozed"`
	SnoozedUntil     *time.Time `json:"snoozed_until,omitempty"`
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty"`
	ReminderCount    int        `json:"reminder_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsCurrentlySnoozed reports whether an active snooze window covers now.
// A stored IsSnoozed flag with an elapsed SnoozedUntil counts as unread;
// reconciliation of the stale flag happens lazily on state transitions.
func (p *UserAlertPreference) IsCurrentlySnoozed(now time.Time) bool {
	return p.IsSnoozed && p.SnoozedUntil != nil && p.SnoozedUntil.After(now)
}

// State derives the current logical state from the stored flags and now.
func (p *UserAlertPreference) State(now time.Time) PreferenceState {
	switch {
	case p.IsRead:
		return PreferenceStateRead
	case p.IsCurrentlySnoozed(now):
		return PreferenceStateSnoozed
	default:
		return PreferenceStateUnread
	}
}

// MarkRead transitions the preference to read from any state, clearing
// snooze fields. Returns false when the preference was already read.
func (p *UserAlertPreference) MarkRead(now time.Time) bool {
	if p.IsRead {
		return false
	}
	p.IsRead = true
	p.IsSnoozed = false
	p.SnoozedUntil = nil
	return true
}

// Snooze starts (or extends) a snooze window of the given number of hours.
// Snoozing a read preference is rejected: the user has already
// acknowledged the alert. Returns whether the transition was applied.
func (p *UserAlertPreference) Snooze(now time.Time, hours int) bool {
	if p.IsRead || hours <= 0 {
		return false
	}
	until := now.Add(time.Duration(hours) * time.Hour)
	p.IsSnoozed = true
	p.SnoozedUntil = &until
	return true
}

// Unsnooze clears the snooze window. Calling it on an unread or read
// preference is a no-op that still clears any stale snooze fields.
func (p *UserAlertPreference) Unsnooze() {
	p.IsSnoozed = false
	p.SnoozedUntil = nil
}

// CanReceiveReminder reports whether the user is due a repeat
// notification. Read preferences never are. An elapsed snooze window is
// reconciled in place: the preference drops back to unread and becomes
// eligible again.
func (p *UserAlertPreference) CanReceiveReminder(now time.Time) bool {
	if p.IsRead {
		return false
	}
	if p.IsCurrentlySnoozed(now) {
		return false
	}
	if p.IsSnoozed {
		// Snooze window elapsed; reconcile the stale flag.
		p.Unsnooze()
	}
	return true
}

// RecordReminder stamps reminder bookkeeping after a successful send.
func (p *UserAlertPreference) RecordReminder(now time.Time) {
	p.ReminderCount++
	sent := now
	p.LastReminderSent = &sent
}

// ReminderDue reports whether enough time has passed since the last
// reminder, given the alert's reminder window. A never-reminded
// preference is always due.
func (p *UserAlertPreference) ReminderDue(now time.Time, window time.Duration) bool {
	if p.LastReminderSent == nil {
		return true
	}
	return !p.LastReminderSent.After(now.Add(-window))
}

// AvailableActions lists the acknowledgment actions valid in the current
// derived state.
func (p *UserAlertPreference) AvailableActions(now time.Time) []PreferenceAction {
	switch p.State(now) {
	case PreferenceStateRead:
		return []PreferenceAction{}
	case PreferenceStateSnoozed:
		return []PreferenceAction{PreferenceActionMarkRead, PreferenceActionUnsnooze}
	default:
		return []PreferenceAction{PreferenceActionMarkRead, PreferenceActionSnooze}
	}
}
