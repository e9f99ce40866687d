// Package scheduler runs the periodic reminder sweep on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"lifedesk/internal/recurrence"
	"lifedesk/internal/schedule"
	"lifedesk/internal/storage"
)

// ReminderSweeper periodically materializes the near future for every
// account and surfaces reminders that come due before the next sweep.
// Delivery is a log line for now; a push channel can hang off the same
// sweep later.
type ReminderSweeper struct {
	cronEngine *cron.Cron
	users      storage.Users
	schedules  *schedule.Service
	log        *logrus.Entry

	cronSpec  string
	lookahead time.Duration
}

func NewReminderSweeper(users storage.Users, schedules *schedule.Service, cronSpec string, lookahead time.Duration, log *logrus.Entry) *ReminderSweeper {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ReminderSweeper{
		cronEngine: cron.New(),
		users:      users,
		schedules:  schedules,
		log:        log,
		cronSpec:   cronSpec,
		lookahead:  lookahead,
	}
}

// Start registers the sweep job and starts the cron engine.
func (s *ReminderSweeper) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx, time.Now())
	})
	if err != nil {
		return err
	}
	s.cronEngine.Start()
	s.log.WithField("cron", s.cronSpec).Info("reminder sweeper started")
	return nil
}

// Stop halts the cron engine and waits for a running sweep to finish.
func (s *ReminderSweeper) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
}

// Sweep checks every account for reminders coming due in [now,
// now+lookahead). Errors for one account are logged and do not stop the
// sweep.
func (s *ReminderSweeper) Sweep(ctx context.Context, now time.Time) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		s.log.WithError(err).Warn("reminder sweep: listing users failed")
		return
	}

	// Events starting up to a day out can still have reminders due now.
	window := recurrence.Window{From: now, To: now.Add(24 * time.Hour)}

	for _, userID := range ids {
		if ctx.Err() != nil {
			return
		}
		projections, err := s.schedules.ListWindow(ctx, userID, window, schedule.Filters{})
		if err != nil {
			s.log.WithError(err).WithField("user", userID).Warn("reminder sweep: listing window failed")
			continue
		}
		for _, p := range projections {
			for _, minutes := range p.Reminders {
				due := p.StartTime.Add(-time.Duration(minutes) * time.Minute)
				if due.Before(now) || !due.Before(now.Add(s.lookahead)) {
					continue
				}
				s.log.WithFields(logrus.Fields{
					"user":  userID,
					"title": p.Title,
					"start": p.StartTime.Format(time.RFC3339),
					"due":   due.Format(time.RFC3339),
				}).Info("reminder due")
			}
		}
	}
}
