package models

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func snoozedPref(until time.Time) *UserAlertPreference {
	return &UserAlertPreference{IsSnoozed: true, SnoozedUntil: &until}
}

func TestPreferenceStateDerivation(t *testing.T) {
	future := t0.Add(time.Hour)
	past := t0.Add(-time.Hour)

	tests := []struct {
		name     string
		pref     *UserAlertPreference
		expected PreferenceState
	}{
		{
			name:     "fresh preference is unread",
			pref:     &UserAlertPreference{},
			expected: PreferenceStateUnread,
		},
		{
			name:     "read wins over everything",
			pref:     &UserAlertPreference{IsRead: true, IsSnoozed: true, SnoozedUntil: &future},
			expected: PreferenceStateRead,
		},
		{
			name:     "active snooze window",
			pref:     snoozedPref(future),
			expected: PreferenceStateSnoozed,
		},
		{
			name:     "elapsed snooze window derives unread",
			pref:     snoozedPref(past),
			expected: PreferenceStateUnread,
		},
		{
			name:     "snoozed flag without until derives unread",
			pref:     &UserAlertPreference{IsSnoozed: true},
			expected: PreferenceStateUnread,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pref.State(t0); got != tt.expected {
				t.Errorf("State() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMarkRead(t *testing.T) {
	until := t0.Add(time.Hour)
	pref := snoozedPref(until)

	if !pref.MarkRead(t0) {
		t.Fatal("MarkRead() on a snoozed preference should transition")
	}
	if !pref.IsRead || pref.IsSnoozed || pref.SnoozedUntil != nil {
		t.Errorf("MarkRead() left fields %+v, want read with snooze cleared", pref)
	}

	// Re-marking is a stable no-op.
	if pref.MarkRead(t0) {
		t.Error("MarkRead() on a read preference should report no transition")
	}
	if pref.State(t0) != PreferenceStateRead {
		t.Errorf("State() = %v after double mark, want read", pref.State(t0))
	}
}

func TestSnooze(t *testing.T) {
	t.Run("snooze from unread", func(t *testing.T) {
		pref := &UserAlertPreference{}
		if !pref.Snooze(t0, 2) {
			t.Fatal("Snooze(2) should apply on unread")
		}
		want := t0.Add(2 * time.Hour)
		if pref.SnoozedUntil == nil || !pref.SnoozedUntil.Equal(want) {
			t.Errorf("SnoozedUntil = %v, want %v", pref.SnoozedUntil, want)
		}
		if pref.State(t0) != PreferenceStateSnoozed {
			t.Errorf("State() = %v, want snoozed", pref.State(t0))
		}
	})

	t.Run("extend existing snooze", func(t *testing.T) {
		pref := snoozedPref(t0.Add(time.Hour))
		if !pref.Snooze(t0, 8) {
			t.Fatal("Snooze(8) should apply on snoozed")
		}
		want := t0.Add(8 * time.Hour)
		if !pref.SnoozedUntil.Equal(want) {
			t.Errorf("SnoozedUntil = %v, want %v", pref.SnoozedUntil, want)
		}
	})

	t.Run("snoozing a read preference is rejected", func(t *testing.T) {
		pref := &UserAlertPreference{IsRead: true}
		if pref.Snooze(t0, 2) {
			t.Error("Snooze() on a read preference should be rejected")
		}
		if pref.IsSnoozed {
			t.Error("rejected snooze must not set IsSnoozed")
		}
	})

	t.Run("non-positive hours rejected", func(t *testing.T) {
		pref := &UserAlertPreference{}
		if pref.Snooze(t0, 0) || pref.Snooze(t0, -1) {
			t.Error("Snooze() with non-positive hours should be rejected")
		}
	})
}

func TestUnsnoozeIdempotent(t *testing.T) {
	pref := snoozedPref(t0.Add(time.Hour))

	pref.Unsnooze()
	if pref.IsSnoozed || pref.SnoozedUntil != nil {
		t.Errorf("Unsnooze() left fields %+v, want cleared", pref)
	}
	first := *pref

	pref.Unsnooze()
	if *pref != first {
		t.Error("second Unsnooze() changed observable state")
	}
}

func TestCanReceiveReminder(t *testing.T) {
	t.Run("read never receives reminders", func(t *testing.T) {
		until := t0.Add(-time.Hour)
		pref := &UserAlertPreference{IsRead: true, IsSnoozed: true, SnoozedUntil: &until}
		if pref.CanReceiveReminder(t0) {
			t.Error("read preference must never receive reminders")
		}
	})

	t.Run("active snooze blocks reminders", func(t *testing.T) {
		pref := snoozedPref(t0.Add(30 * time.Minute))
		if pref.CanReceiveReminder(t0) {
			t.Error("actively snoozed preference must not receive reminders")
		}
	})

	t.Run("elapsed snooze reconciles to unread and is eligible", func(t *testing.T) {
		pref := snoozedPref(t0.Add(-time.Minute))
		if !pref.CanReceiveReminder(t0) {
			t.Fatal("elapsed snooze should be eligible")
		}
		if pref.IsSnoozed || pref.SnoozedUntil != nil {
			t.Errorf("stale snooze fields not reconciled: %+v", pref)
		}
		if pref.State(t0) != PreferenceStateUnread {
			t.Errorf("State() = %v after reconciliation, want unread", pref.State(t0))
		}
	})

	t.Run("stale snoozed flag without until is eligible", func(t *testing.T) {
		pref := &UserAlertPreference{IsSnoozed: true}
		if !pref.CanReceiveReminder(t0) {
			t.Error("snoozed flag without a window should be eligible")
		}
	})
}

func TestSnoozeWindowScenario(t *testing.T) {
	// Snoozed for 1 hour at t0: not eligible 30 minutes in, eligible 90
	// minutes in with the state dropping back to unread.
	pref := &UserAlertPreference{}
	if !pref.Snooze(t0, 1) {
		t.Fatal("Snooze(1) should apply")
	}

	if pref.CanReceiveReminder(t0.Add(30 * time.Minute)) {
		t.Error("reminder inside the snooze window")
	}

	later := t0.Add(90 * time.Minute)
	if !pref.CanReceiveReminder(later) {
		t.Fatal("reminder after the snooze window should be due")
	}
	pref.RecordReminder(later)
	if pref.State(later) != PreferenceStateUnread {
		t.Errorf("State() = %v, want unread", pref.State(later))
	}
	if pref.ReminderCount != 1 {
		t.Errorf("ReminderCount = %d, want 1", pref.ReminderCount)
	}
	if pref.LastReminderSent == nil || !pref.LastReminderSent.Equal(later) {
		t.Errorf("LastReminderSent = %v, want %v", pref.LastReminderSent, later)
	}
}

func TestReminderDue(t *testing.T) {
	window := time.Hour
	sentRecently := t0.Add(-30 * time.Minute)
	sentLongAgo := t0.Add(-2 * time.Hour)
	sentExactly := t0.Add(-window)

	tests := []struct {
		name     string
		last     *time.Time
		expected bool
	}{
		{"never reminded", nil, true},
		{"reminded inside window", &sentRecently, false},
		{"reminded outside window", &sentLongAgo, true},
		{"reminded exactly one window ago", &sentExactly, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pref := &UserAlertPreference{LastReminderSent: tt.last}
			if got := pref.ReminderDue(t0, window); got != tt.expected {
				t.Errorf("ReminderDue() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAvailableActions(t *testing.T) {
	future := t0.Add(time.Hour)

	tests := []struct {
		name     string
		pref     *UserAlertPreference
		expected []PreferenceAction
	}{
		{
			name:     "unread exposes mark and snooze",
			pref:     &UserAlertPreference{},
			expected: []PreferenceAction{PreferenceActionMarkRead, PreferenceActionSnooze},
		},
		{
			name:     "snoozed exposes mark and unsnooze",
			pref:     snoozedPref(future),
			expected: []PreferenceAction{PreferenceActionMarkRead, PreferenceActionUnsnooze},
		},
		{
			name:     "read exposes nothing",
			pref:     &UserAlertPreference{IsRead: true},
			expected: []PreferenceAction{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pref.AvailableActions(t0)
			if len(got) != len(tt.expected) {
				t.Fatalf("AvailableActions() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("AvailableActions()[%d] = %v, want %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}
