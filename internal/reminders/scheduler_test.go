package reminders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/herald-hq/herald/internal/channels"
	"github.com/herald-hq/herald/internal/config"
	"github.com/herald-hq/herald/internal/events"
	"github.com/herald-hq/herald/pkg/models"
)

var sweepT0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSweepStore serves canned sweep data and can fail bookkeeping
// writes for selected users.
type fakeSweepStore struct {
	dueAlerts  []*models.Alert
	duePrefs   []*models.UserAlertPreference
	users      []*models.User
	failUpdate map[models.UserID]bool

	updated []models.UserID
}

func (s *fakeSweepStore) ListActiveUsers(_ context.Context) ([]*models.User, error) {
	return s.users, nil
}

func (s *fakeSweepStore) ListActiveUsersByIDs(_ context.Context, _ []models.UserID) ([]*models.User, error) {
	return s.users, nil
}

func (s *fakeSweepStore) ListActiveUsersByTeamIDs(_ context.Context, _ []models.TeamID) ([]*models.User, error) {
	return s.users, nil
}

func (s *fakeSweepStore) GetUser(_ context.Context, _ models.UserID) (*models.User, error) {
	return nil, nil
}

func (s *fakeSweepStore) GetTeam(_ context.Context, _ models.TeamID) (*models.Team, error) {
	return nil, nil
}

func (s *fakeSweepStore) ListExpiryCandidates(_ context.Context, _ time.Time) ([]*models.Alert, error) {
	return nil, nil
}

func (s *fakeSweepStore) MarkAlertExpired(_ context.Context, _ models.AlertID) error {
	return nil
}

func (s *fakeSweepStore) ListReminderDueAlerts(_ context.Context, _ time.Time) ([]*models.Alert, error) {
	return s.dueAlerts, nil
}

func (s *fakeSweepStore) ListPreferencesDueReminder(_ context.Context, _ models.AlertID, _ time.Duration, _ time.Time) ([]*models.UserAlertPreference, error) {
	return s.duePrefs, nil
}

func (s *fakeSweepStore) UpdatePreference(_ context.Context, pref *models.UserAlertPreference) error {
	if s.failUpdate[pref.UserID] {
		return errors.New("disk I/O error")
	}
	s.updated = append(s.updated, pref.UserID)
	return nil
}

type recordingSubscriber struct {
	events []events.Event
}

func (r *recordingSubscriber) Name() string { return "recording" }

func (r *recordingSubscriber) HandleAlertEvent(_ context.Context, ev events.Event) error {
	r.events = append(r.events, ev)
	return nil
}

// deliverAllChannel accepts every send.
type deliverAllChannel struct{}

func (deliverAllChannel) Type() models.DeliveryType { return models.DeliveryTypeInApp }

func (deliverAllChannel) Send(_ context.Context, _ *models.Alert, _ *models.User) bool {
	return true
}

func TestSchedulerRestartKeepsSingleJob(t *testing.T) {
	s := NewScheduler(Options{
		Config: config.RemindersConfig{Enabled: true, IntervalMinutes: 15},
		DB:     &fakeSweepStore{},
		Logger: testLogger(),
	})

	if err := s.Start(); err != nil {
		t.Fatalf("first Start() failed: %v", err)
	}
	s.Stop()
	if err := s.Start(); err != nil {
		t.Fatalf("Start() after Stop() failed: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != 1 {
		t.Fatalf("cron entries after restart = %d, want 1", got)
	}
}

func TestSchedulerStartDisabled(t *testing.T) {
	s := NewScheduler(Options{
		Config: config.RemindersConfig{Enabled: false, IntervalMinutes: 15},
		DB:     &fakeSweepStore{},
		Logger: testLogger(),
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if got := len(s.cron.Entries()); got != 0 {
		t.Fatalf("cron entries with reminders disabled = %d, want 0", got)
	}
}

func TestSweepFansOutToAllDeliveredRecipients(t *testing.T) {
	alert := &models.Alert{
		ID:                       7,
		Title:                    "database maintenance",
		DeliveryType:             models.DeliveryTypeInApp,
		ReminderFrequencyMinutes: 60,
		StartsAt:                 sweepT0.Add(-2 * time.Hour),
		IsActive:                 true,
		RemindersEnabled:         true,
		Status:                   models.AlertStatusActive,
	}
	store := &fakeSweepStore{
		dueAlerts: []*models.Alert{alert},
		duePrefs: []*models.UserAlertPreference{
			{UserID: 1, AlertID: alert.ID},
			{UserID: 2, AlertID: alert.ID},
		},
		users: []*models.User{
			{ID: 1, Status: models.UserStatusActive},
			{ID: 2, Status: models.UserStatusActive},
		},
		// The send to user 2 lands but the bookkeeping write does not.
		failUpdate: map[models.UserID]bool{2: true},
	}
	sub := &recordingSubscriber{}
	s := NewScheduler(Options{
		Config: config.RemindersConfig{Enabled: true, IntervalMinutes: 15},
		DB:     store,
		Dispatcher: channels.NewDispatcher(channels.DispatcherOptions{
			Registry: channels.NewRegistry(testLogger(), deliverAllChannel{}),
			Logger:   testLogger(),
		}),
		Fanout: events.NewFanout(testLogger(), sub),
		Logger: testLogger(),
		Now:    func() time.Time { return sweepT0 },
	})

	s.Sweep(context.Background())

	if len(sub.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(sub.events))
	}
	ev := sub.events[0]
	if ev.Action != models.AlertEventReminder {
		t.Errorf("event action = %q, want %q", ev.Action, models.AlertEventReminder)
	}
	// Both recipients received a reminder, so both belong in the event
	// even though only one bookkeeping write succeeded.
	if len(ev.Recipients) != 2 {
		t.Fatalf("event recipients = %d, want 2", len(ev.Recipients))
	}
	if len(store.updated) != 1 || store.updated[0] != 1 {
		t.Errorf("recorded reminders for %v, want [1]", store.updated)
	}
}

func TestSweepSkipsIneligiblePreferences(t *testing.T) {
	snoozedUntil := sweepT0.Add(time.Hour)
	alert := &models.Alert{
		ID:                       9,
		Title:                    "cert rotation",
		DeliveryType:             models.DeliveryTypeInApp,
		ReminderFrequencyMinutes: 60,
		StartsAt:                 sweepT0.Add(-time.Hour),
		IsActive:                 true,
		RemindersEnabled:         true,
		Status:                   models.AlertStatusActive,
	}
	store := &fakeSweepStore{
		dueAlerts: []*models.Alert{alert},
		duePrefs: []*models.UserAlertPreference{
			{UserID: 1, AlertID: alert.ID, IsRead: true},
			{UserID: 2, AlertID: alert.ID, IsSnoozed: true, SnoozedUntil: &snoozedUntil},
		},
		users: []*models.User{
			{ID: 1, Status: models.UserStatusActive},
			{ID: 2, Status: models.UserStatusActive},
		},
	}
	sub := &recordingSubscriber{}
	s := NewScheduler(Options{
		Config: config.RemindersConfig{Enabled: true, IntervalMinutes: 15},
		DB:     store,
		Dispatcher: channels.NewDispatcher(channels.DispatcherOptions{
			Registry: channels.NewRegistry(testLogger(), deliverAllChannel{}),
			Logger:   testLogger(),
		}),
		Fanout: events.NewFanout(testLogger(), sub),
		Logger: testLogger(),
		Now:    func() time.Time { return sweepT0 },
	})

	s.Sweep(context.Background())

	if len(sub.events) != 0 {
		t.Errorf("published events = %d, want 0", len(sub.events))
	}
	if len(store.updated) != 0 {
		t.Errorf("recorded reminders for %v, want none", store.updated)
	}
}
