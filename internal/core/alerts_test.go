package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/herald-hq/herald/pkg/models"
)

func validTestAlert() *models.Alert {
	return &models.Alert{
		Title:                    "Maintenance window",
		Message:                  "Scheduled downtime tonight",
		Severity:                 models.AlertSeverityWarning,
		DeliveryType:             models.DeliveryTypeInApp,
		ReminderFrequencyMinutes: 60,
		StartsAt:                 time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Visibility:               models.Visibility{Type: models.VisibilityOrganization},
	}
}

func TestValidateAlert(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()

	expiresBeforeStart := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(a *models.Alert)
		wantErr bool
	}{
		{"valid alert", func(a *models.Alert) {}, false},
		{"missing title", func(a *models.Alert) { a.Title = "" }, true},
		{"unknown severity", func(a *models.Alert) { a.Severity = "catastrophic" }, true},
		{"unknown delivery type", func(a *models.Alert) { a.DeliveryType = "carrier_pigeon" }, true},
		{"zero reminder frequency", func(a *models.Alert) { a.ReminderFrequencyMinutes = 0 }, true},
		{"expiry before start", func(a *models.Alert) { a.ExpiresAt = &expiresBeforeStart }, true},
		{"team visibility without targets", func(a *models.Alert) {
			a.Visibility = models.Visibility{Type: models.VisibilityTeam}
		}, true},
		{"team visibility with valid target", func(a *models.Alert) {
			a.Visibility = models.Visibility{Type: models.VisibilityTeam, TargetIDs: []int64{10}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := validTestAlert()
			tt.mutate(alert)

			err := validateAlert(ctx, dir, alert)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAlert() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error = %v, want ValidationError", err)
				}
			}
		})
	}
}

func TestApplyAlertUpdate(t *testing.T) {
	t.Run("nil fields leave alert unchanged", func(t *testing.T) {
		alert := validTestAlert()
		before := *alert

		diff := applyAlertUpdate(alert, models.UpdateAlertRequest{})
		if len(diff) != 0 {
			t.Errorf("diff = %v, want empty", diff)
		}
		if alert.Title != before.Title || alert.Severity != before.Severity {
			t.Error("alert mutated by empty update")
		}
	})

	t.Run("changed fields appear in diff", func(t *testing.T) {
		alert := validTestAlert()
		title := "Extended maintenance window"
		severity := models.AlertSeverityCritical
		active := false

		diff := applyAlertUpdate(alert, models.UpdateAlertRequest{
			Title:    &title,
			Severity: &severity,
			IsActive: &active,
		})

		if len(diff) != 3 {
			t.Fatalf("diff has %d entries, want 3: %v", len(diff), diff)
		}
		if alert.Title != title {
			t.Errorf("Title = %q, want %q", alert.Title, title)
		}
		if alert.Severity != severity {
			t.Errorf("Severity = %q, want %q", alert.Severity, severity)
		}
		if alert.IsActive {
			t.Error("IsActive not applied")
		}
		if _, ok := diff["title"]; !ok {
			t.Error("diff missing title")
		}
	})

	t.Run("setting a field to its current value is not a change", func(t *testing.T) {
		alert := validTestAlert()
		same := alert.Title

		diff := applyAlertUpdate(alert, models.UpdateAlertRequest{Title: &same})
		if len(diff) != 0 {
			t.Errorf("diff = %v, want empty", diff)
		}
	})

	t.Run("visibility change recorded", func(t *testing.T) {
		alert := validTestAlert()
		vis := models.Visibility{Type: models.VisibilityUser, TargetIDs: []int64{7}}

		diff := applyAlertUpdate(alert, models.UpdateAlertRequest{Visibility: &vis})
		if _, ok := diff["visibility"]; !ok {
			t.Fatalf("diff missing visibility: %v", diff)
		}
		if alert.Visibility.Type != models.VisibilityUser {
			t.Errorf("Visibility.Type = %q, want user", alert.Visibility.Type)
		}
	})
}
