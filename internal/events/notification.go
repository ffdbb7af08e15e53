package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/herald-hq/herald/internal/channels"
	"github.com/herald-hq/herald/internal/sqlite"
	"github.com/herald-hq/herald/pkg/models"
)

// PreferenceStore persists per-recipient acknowledgment records.
// *sqlite.DB satisfies it.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID models.UserID, alertID models.AlertID) (*models.UserAlertPreference, error)
	CreatePreference(ctx context.Context, pref *models.UserAlertPreference) error
}

// NotificationSubscriber delivers created and updated alerts to their
// eligible recipients: it lazily creates missing preferences, filters out
// recipients who already read or are snoozing the alert, and hands the
// remainder to bulk dispatch. Reminder and expired events are bookkeeping
// for the other subscribers; their sends happen elsewhere.
type NotificationSubscriber struct {
	prefs      PreferenceStore
	dispatcher *channels.Dispatcher
	log        *slog.Logger
	now        func() time.Time
}

// NewNotificationSubscriber wires the dispatch side of the fan-out.
func NewNotificationSubscriber(prefs PreferenceStore, dispatcher *channels.Dispatcher, log *slog.Logger) *NotificationSubscriber {
	return &NotificationSubscriber{
		prefs:      prefs,
		dispatcher: dispatcher,
		log:        log.With("component", "notification_subscriber"),
		now:        time.Now,
	}
}

// Name implements Subscriber.
func (s *NotificationSubscriber) Name() string { return "notification" }

// HandleAlertEvent implements Subscriber.
func (s *NotificationSubscriber) HandleAlertEvent(ctx context.Context, ev Event) error {
	switch ev.Action {
	case models.AlertEventCreated, models.AlertEventUpdated:
	default:
		return nil
	}

	prefs := s.ensurePreferences(ctx, ev.Alert.ID, ev.Recipients)

	now := s.now()
	eligible := make([]*models.User, 0, len(ev.Recipients))
	for _, user := range ev.Recipients {
		if user == nil || !user.Active() {
			continue
		}
		pref, ok := prefs[user.ID]
		if !ok {
			continue
		}
		if pref.State(now) != models.PreferenceStateUnread {
			continue
		}
		eligible = append(eligible, user)
	}
	if len(eligible) == 0 {
		return nil
	}

	result := s.dispatcher.SendBulk(ctx, ev.Alert, eligible)
	s.log.Info("alert dispatched",
		"alert_id", ev.Alert.ID,
		"action", ev.Action,
		"recipients", len(eligible),
		"successful", result.Successful,
		"failed", result.Failed)
	return nil
}

// ensurePreferences find-or-creates a preference per recipient. Creation
// runs concurrently; each task touches a distinct (user, alert) key and
// the storage uniqueness constraint resolves duplicate-insert races.
func (s *NotificationSubscriber) ensurePreferences(ctx context.Context, alertID models.AlertID, recipients []*models.User) map[models.UserID]*models.UserAlertPreference {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		prefs = make(map[models.UserID]*models.UserAlertPreference, len(recipients))
	)
	for _, user := range recipients {
		if user == nil {
			continue
		}
		wg.Add(1)
		go func(userID models.UserID) {
			defer wg.Done()
			pref, err := s.ensureOne(ctx, userID, alertID)
			if err != nil {
				s.log.Error("failed to ensure preference", "user_id", userID, "alert_id", alertID, "error", err)
				return
			}
			mu.Lock()
			prefs[userID] = pref
			mu.Unlock()
		}(user.ID)
	}
	wg.Wait()
	return prefs
}

func (s *NotificationSubscriber) ensureOne(ctx context.Context, userID models.UserID, alertID models.AlertID) (*models.UserAlertPreference, error) {
	pref, err := s.prefs.GetPreference(ctx, userID, alertID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, sqlite.ErrNotFound) {
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	pref = &models.UserAlertPreference{UserID: userID, AlertID: alertID}
	if err := s.prefs.CreatePreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to create preference: %w", err)
	}
	return pref, nil
}
