// Package reminders runs the background sweep that expires finished
// alerts and re-notifies recipients who have not acknowledged one.
package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/herald-hq/herald/internal/channels"
	"github.com/herald-hq/herald/internal/config"
	"github.com/herald-hq/herald/internal/core"
	"github.com/herald-hq/herald/internal/events"
	"github.com/herald-hq/herald/pkg/models"
)

// Store is the persistence surface a sweep needs. *sqlite.DB satisfies it.
type Store interface {
	core.Directory
	ListExpiryCandidates(ctx context.Context, now time.Time) ([]*models.Alert, error)
	MarkAlertExpired(ctx context.Context, alertID models.AlertID) error
	ListReminderDueAlerts(ctx context.Context, now time.Time) ([]*models.Alert, error)
	ListPreferencesDueReminder(ctx context.Context, alertID models.AlertID, window time.Duration, now time.Time) ([]*models.UserAlertPreference, error)
	UpdatePreference(ctx context.Context, pref *models.UserAlertPreference) error
}

// Options configures a Scheduler.
type Options struct {
	Config     config.RemindersConfig
	DB         Store
	Dispatcher *channels.Dispatcher
	Fanout     *events.Fanout
	Logger     *slog.Logger
	// Now overrides the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

// Scheduler periodically sweeps alerts: expiring those past their
// end time and sending reminders for unacknowledged ones. At most one
// sweep runs at a time; an overrunning sweep causes the next tick to be
// skipped rather than stacked.
type Scheduler struct {
	cfg        config.RemindersConfig
	db         Store
	dispatcher *channels.Dispatcher
	fanout     *events.Fanout
	log        *slog.Logger
	now        func() time.Time

	cron     *cron.Cron
	started  bool
	jobAdded bool
}

// NewScheduler builds a Scheduler from options. Start must be called
// before any sweeps run.
func NewScheduler(opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger.With("component", "reminder_scheduler")
	s := &Scheduler{
		cfg:        opts.Config,
		db:         opts.DB,
		dispatcher: opts.Dispatcher,
		fanout:     opts.Fanout,
		log:        log,
		now:        now,
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{log}),
		cron.SkipIfStillRunning(cronLogger{log}),
	))
	return s
}

// Start registers the sweep job and begins ticking. It is a no-op when
// reminders are disabled or the scheduler is already running.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.log.Info("reminder scheduler disabled")
		return nil
	}
	if s.started {
		return nil
	}

	spec := CronSpec(s.cfg.IntervalMinutes)
	// The job is registered once for the scheduler's lifetime; a restart
	// resumes ticking the existing entry instead of adding a second one.
	if !s.jobAdded {
		if _, err := s.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			s.Sweep(ctx)
		}); err != nil {
			return err
		}
		s.jobAdded = true
	}

	s.cron.Start()
	s.started = true
	s.log.Info("reminder scheduler started",
		"interval_minutes", s.cfg.IntervalMinutes, "spec", spec)
	return nil
}

// Stop halts ticking and waits for an in-flight sweep to drain.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.started = false
	<-s.cron.Stop().Done()
	s.log.Info("reminder scheduler stopped")
}

// Sweep runs one full pass: expire alerts whose end time has passed,
// then send reminders for every active alert with unacknowledged
// recipients. A failure on one alert is logged and the sweep moves on.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now().UTC()
	s.expireFinishedAlerts(ctx, now)
	s.remindUnacknowledged(ctx, now)
}

func (s *Scheduler) expireFinishedAlerts(ctx context.Context, now time.Time) {
	candidates, err := s.db.ListExpiryCandidates(ctx, now)
	if err != nil {
		s.log.Error("failed to list expiry candidates", "error", err)
		return
	}

	for _, alert := range candidates {
		if err := s.db.MarkAlertExpired(ctx, alert.ID); err != nil {
			s.log.Error("failed to expire alert", "alert_id", alert.ID, "error", err)
			continue
		}
		alert.Status = models.AlertStatusExpired

		recipients, err := core.ResolveAudience(ctx, s.db, alert.Visibility)
		if err != nil {
			s.log.Error("failed to resolve audience for expired alert",
				"alert_id", alert.ID, "error", err)
			recipients = nil
		}
		s.fanout.Publish(ctx, events.Event{
			Action:     models.AlertEventExpired,
			Alert:      alert,
			Recipients: recipients,
		})
		s.log.Info("alert expired", "alert_id", alert.ID)
	}
}

func (s *Scheduler) remindUnacknowledged(ctx context.Context, now time.Time) {
	alerts, err := s.db.ListReminderDueAlerts(ctx, now)
	if err != nil {
		s.log.Error("failed to list alerts due reminders", "error", err)
		return
	}

	for _, alert := range alerts {
		if err := s.remindAlert(ctx, alert, now); err != nil {
			s.log.Error("reminder pass failed for alert",
				"alert_id", alert.ID, "error", err)
		}
	}
}

// remindAlert sends one reminder round for a single alert. Reminder
// timestamps are only recorded for recipients whose send succeeded, so
// a failed send is retried on the next sweep.
func (s *Scheduler) remindAlert(ctx context.Context, alert *models.Alert, now time.Time) error {
	prefs, err := s.db.ListPreferencesDueReminder(ctx, alert.ID, alert.ReminderWindow(), now)
	if err != nil {
		return err
	}
	if len(prefs) == 0 {
		return nil
	}

	// The query pre-filters; CanReceiveReminder re-checks in memory and
	// reconciles snoozes that lapsed between query and dispatch.
	due := make(map[models.UserID]*models.UserAlertPreference, len(prefs))
	ids := make([]models.UserID, 0, len(prefs))
	for _, pref := range prefs {
		if !pref.CanReceiveReminder(now) {
			continue
		}
		due[pref.UserID] = pref
		ids = append(ids, pref.UserID)
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.db.ListActiveUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	result := s.dispatcher.SendBulk(ctx, alert, users)

	notified := make([]*models.User, 0, result.Successful)
	byID := make(map[models.UserID]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, outcome := range result.Outcomes {
		if !outcome.Delivered {
			continue
		}
		pref, ok := due[outcome.UserID]
		if !ok {
			continue
		}
		// The recipient was sent a reminder either way; a failed
		// bookkeeping write only means the next sweep may remind again.
		if u := byID[outcome.UserID]; u != nil {
			notified = append(notified, u)
		}
		pref.RecordReminder(now)
		if err := s.db.UpdatePreference(ctx, pref); err != nil {
			s.log.Error("failed to record reminder",
				"alert_id", alert.ID, "user_id", outcome.UserID, "error", err)
		}
	}

	if len(notified) > 0 {
		s.fanout.Publish(ctx, events.Event{
			Action:     models.AlertEventReminder,
			Alert:      alert,
			Recipients: notified,
		})
	}
	s.log.Info("reminder round completed",
		"alert_id", alert.ID, "due", len(ids),
		"delivered", result.Successful, "failed", result.Failed)
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error(msg, append([]any{"error", err}, kv...)...)
}
