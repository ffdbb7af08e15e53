package channels

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/herald-hq/herald/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChannel succeeds or fails per user ID and records every send.
type fakeChannel struct {
	deliveryType models.DeliveryType
	failFor      map[models.UserID]bool
	panicFor     map[models.UserID]bool

	mu    sync.Mutex
	sends []models.UserID
}

func (f *fakeChannel) Type() models.DeliveryType { return f.deliveryType }

func (f *fakeChannel) Send(ctx context.Context, alert *models.Alert, user *models.User) bool {
	f.mu.Lock()
	f.sends = append(f.sends, user.ID)
	f.mu.Unlock()
	if f.panicFor[user.ID] {
		panic("channel blew up")
	}
	return !f.failFor[user.ID]
}

func (f *fakeChannel) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func testUsers(n int) []*models.User {
	users := make([]*models.User, n)
	for i := range users {
		users[i] = &models.User{ID: models.UserID(i + 1), Status: models.UserStatusActive}
	}
	return users
}

func inappAlert() *models.Alert {
	return &models.Alert{ID: 1, Title: "test", DeliveryType: models.DeliveryTypeInApp}
}

func TestRegistrySendNotification(t *testing.T) {
	ch := &fakeChannel{deliveryType: models.DeliveryTypeInApp}
	registry := NewRegistry(testLogger(), ch)
	user := &models.User{ID: 1}

	if !registry.SendNotification(context.Background(), inappAlert(), user) {
		t.Error("SendNotification() = false for registered channel")
	}

	// Unregistered type fails softly instead of panicking.
	emailAlert := &models.Alert{ID: 2, DeliveryType: models.DeliveryTypeEmail}
	if registry.SendNotification(context.Background(), emailAlert, user) {
		t.Error("SendNotification() = true for unregistered delivery type")
	}
}

func TestRegistryContainsChannelPanic(t *testing.T) {
	ch := &fakeChannel{
		deliveryType: models.DeliveryTypeInApp,
		panicFor:     map[models.UserID]bool{1: true},
	}
	registry := NewRegistry(testLogger(), ch)

	if registry.SendNotification(context.Background(), inappAlert(), &models.User{ID: 1}) {
		t.Error("panicking send should report failure, not propagate")
	}
}

func TestSendBulkCountsOutcomes(t *testing.T) {
	ch := &fakeChannel{
		deliveryType: models.DeliveryTypeInApp,
		failFor:      map[models.UserID]bool{3: true, 7: true},
	}
	dispatcher := NewDispatcher(DispatcherOptions{
		Registry:   NewRegistry(testLogger(), ch),
		Logger:     testLogger(),
		BatchSize:  4,
		BatchPause: 0,
	})

	recipients := testUsers(10)
	result := dispatcher.SendBulk(context.Background(), inappAlert(), recipients)

	if result.Successful != 8 || result.Failed != 2 {
		t.Errorf("SendBulk() = %d/%d, want 8 successful / 2 failed", result.Successful, result.Failed)
	}
	if len(result.Outcomes) != 10 {
		t.Fatalf("outcomes = %d, want 10", len(result.Outcomes))
	}
	// Outcomes keep recipient order.
	for i, outcome := range result.Outcomes {
		if outcome.UserID != recipients[i].ID {
			t.Errorf("outcome[%d].UserID = %d, want %d", i, outcome.UserID, recipients[i].ID)
		}
		wantDelivered := !ch.failFor[recipients[i].ID]
		if outcome.Delivered != wantDelivered {
			t.Errorf("outcome[%d].Delivered = %v, want %v", i, outcome.Delivered, wantDelivered)
		}
	}
	if ch.sendCount() != 10 {
		t.Errorf("channel saw %d sends, want 10", ch.sendCount())
	}
}

func TestSendBulkOneFailureDoesNotAbortBatch(t *testing.T) {
	ch := &fakeChannel{
		deliveryType: models.DeliveryTypeInApp,
		panicFor:     map[models.UserID]bool{1: true},
	}
	dispatcher := NewDispatcher(DispatcherOptions{
		Registry:   NewRegistry(testLogger(), ch),
		Logger:     testLogger(),
		BatchSize:  2,
		BatchPause: 0,
	})

	result := dispatcher.SendBulk(context.Background(), inappAlert(), testUsers(4))
	if result.Successful != 3 || result.Failed != 1 {
		t.Errorf("SendBulk() = %d/%d, want 3 successful / 1 failed", result.Successful, result.Failed)
	}
}

func TestSendBulkEmptyRecipients(t *testing.T) {
	dispatcher := NewDispatcher(DispatcherOptions{
		Registry: NewRegistry(testLogger(), &fakeChannel{deliveryType: models.DeliveryTypeInApp}),
		Logger:   testLogger(),
	})

	result := dispatcher.SendBulk(context.Background(), inappAlert(), nil)
	if result.Successful != 0 || result.Failed != 0 || len(result.Outcomes) != 0 {
		t.Errorf("SendBulk(nil) = %+v, want empty result", result)
	}
}

func TestSendBulkCancelledContextFailsRemainder(t *testing.T) {
	ch := &fakeChannel{deliveryType: models.DeliveryTypeInApp}
	dispatcher := NewDispatcher(DispatcherOptions{
		Registry:   NewRegistry(testLogger(), ch),
		Logger:     testLogger(),
		BatchSize:  2,
		BatchPause: time.Minute, // cancellation short-circuits the pause
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := dispatcher.SendBulk(ctx, inappAlert(), testUsers(6))
	if result.Successful != 2 || result.Failed != 4 {
		t.Errorf("SendBulk() = %d/%d, want first batch delivered and the rest failed",
			result.Successful, result.Failed)
	}
}
