package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/herald-hq/herald/internal/channels"
	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// fakePreferenceStore keeps preferences in memory, keyed like the
// storage uniqueness constraint.
type fakePreferenceStore struct {
	mu    sync.Mutex
	prefs map[[2]int64]*models.UserAlertPreference
}

func newFakePreferenceStore() *fakePreferenceStore {
	return &fakePreferenceStore{prefs: make(map[[2]int64]*models.UserAlertPreference)}
}

func (f *fakePreferenceStore) GetPreference(ctx context.Context, userID models.UserID, alertID models.AlertID) (*models.UserAlertPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pref, ok := f.prefs[[2]int64{int64(userID), int64(alertID)}]; ok {
		copied := *pref
		return &copied, nil
	}
	return nil, sqlite.ErrNotFound
}

func (f *fakePreferenceStore) CreatePreference(ctx context.Context, pref *models.UserAlertPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{int64(pref.UserID), int64(pref.AlertID)}
	if existing, ok := f.prefs[key]; ok {
		*pref = *existing
		return nil
	}
	copied := *pref
	f.prefs[key] = &copied
	return nil
}

func (f *fakePreferenceStore) put(pref models.UserAlertPreference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[[2]int64{int64(pref.UserID), int64(pref.AlertID)}] = &pref
}

// countingChannel records which users were sent to.
type countingChannel struct {
	mu    sync.Mutex
	users map[models.UserID]int
}

func (c *countingChannel) Type() models.DeliveryType { return models.DeliveryTypeInApp }

func (c *countingChannel) Send(ctx context.Context, alert *models.Alert, user *models.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.users == nil {
		c.users = make(map[models.UserID]int)
	}
	c.users[user.ID]++
	return true
}

func (c *countingChannel) sentTo(id models.UserID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users[id]
}

func newTestNotificationSubscriber(store *fakePreferenceStore, ch *countingChannel, now time.Time) *NotificationSubscriber {
	dispatcher := channels.NewDispatcher(channels.DispatcherOptions{
		Registry:   channels.NewRegistry(testLogger(), ch),
		Logger:     testLogger(),
		BatchPause: 0,
	})
	sub := NewNotificationSubscriber(store, dispatcher, testLogger())
	sub.now = func() time.Time { return now }
	return sub
}

func TestNotificationSubscriberFiltersEligibility(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	store := newFakePreferenceStore()
	// User 2 already read the alert; user 3 is actively snoozing it.
	store.put(models.UserAlertPreference{UserID: 2, AlertID: 1, IsRead: true})
	store.put(models.UserAlertPreference{UserID: 3, AlertID: 1, IsSnoozed: true, SnoozedUntil: &future})

	ch := &countingChannel{}
	sub := newTestNotificationSubscriber(store, ch, now)

	recipients := []*models.User{
		{ID: 1, Status: models.UserStatusActive},
		{ID: 2, Status: models.UserStatusActive},
		{ID: 3, Status: models.UserStatusActive},
		{ID: 4, Status: models.UserStatusInactive},
	}
	err := sub.HandleAlertEvent(context.Background(), Event{
		Action:     models.AlertEventCreated,
		Alert:      &models.Alert{ID: 1, DeliveryType: models.DeliveryTypeInApp},
		Recipients: recipients,
	})
	if err != nil {
		t.Fatalf("HandleAlertEvent() error = %v", err)
	}

	if got := ch.sentTo(1); got != 1 {
		t.Errorf("unread active user received %d sends, want 1", got)
	}
	for _, id := range []models.UserID{2, 3, 4} {
		if got := ch.sentTo(id); got != 0 {
			t.Errorf("user %d received %d sends, want 0", id, got)
		}
	}
}

func TestNotificationSubscriberCreatesMissingPreferences(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakePreferenceStore()
	ch := &countingChannel{}
	sub := newTestNotificationSubscriber(store, ch, now)

	recipients := []*models.User{
		{ID: 1, Status: models.UserStatusActive},
		{ID: 2, Status: models.UserStatusActive},
	}
	err := sub.HandleAlertEvent(context.Background(), Event{
		Action:     models.AlertEventCreated,
		Alert:      &models.Alert{ID: 5, DeliveryType: models.DeliveryTypeInApp},
		Recipients: recipients,
	})
	if err != nil {
		t.Fatalf("HandleAlertEvent() error = %v", err)
	}

	for _, id := range []models.UserID{1, 2} {
		pref, err := store.GetPreference(context.Background(), id, 5)
		if err != nil {
			t.Fatalf("preference for user %d not created: %v", id, err)
		}
		if pref.State(now) != models.PreferenceStateUnread {
			t.Errorf("created preference state = %v, want unread", pref.State(now))
		}
	}
}

func TestNotificationSubscriberIgnoresNonDispatchActions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakePreferenceStore()
	ch := &countingChannel{}
	sub := newTestNotificationSubscriber(store, ch, now)

	for _, action := range []models.AlertEventAction{models.AlertEventReminder, models.AlertEventExpired} {
		err := sub.HandleAlertEvent(context.Background(), Event{
			Action:     action,
			Alert:      &models.Alert{ID: 9, DeliveryType: models.DeliveryTypeInApp},
			Recipients: []*models.User{{ID: 1, Status: models.UserStatusActive}},
		})
		if err != nil {
			t.Fatalf("HandleAlertEvent(%s) error = %v", action, err)
		}
	}
	if got := ch.sentTo(1); got != 0 {
		t.Errorf("non-dispatch actions produced %d sends, want 0", got)
	}
}
