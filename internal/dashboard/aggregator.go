// Package dashboard aggregates the sibling services into widget data for
// the landing view. A failing widget degrades to an error note; the rest
// of the dashboard still renders.
package dashboard

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"lifedesk/internal/financial"
	"lifedesk/internal/profile"
	"lifedesk/internal/recurrence"
	"lifedesk/internal/schedule"
	"lifedesk/internal/spiritual"
)

// Widget wraps one section's data. Error is set (and Data nil) when the
// section's source failed.
type Widget struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// View is the assembled dashboard.
type View struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Greeting    Widget    `json:"greeting"`
	Agenda      Widget    `json:"agenda"`
	Finance     Widget    `json:"finance"`
	Spiritual   Widget    `json:"spiritual"`
	Reminders   Widget    `json:"reminders"`
}

// Reminder is one entry of the upcoming-reminders widget.
type Reminder struct {
	EventTitle string    `json:"eventTitle"`
	RemindAt   time.Time `json:"remindAt"`
	StartTime  time.Time `json:"startTime"`
}

// Aggregator fans out to the sibling services in-process.
type Aggregator struct {
	profiles  *profile.Service
	schedules *schedule.Service
	finances  *financial.Service
	practices *spiritual.Service
	log       *logrus.Entry
}

func New(profiles *profile.Service, schedules *schedule.Service, finances *financial.Service, practices *spiritual.Service, log *logrus.Entry) *Aggregator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Aggregator{
		profiles:  profiles,
		schedules: schedules,
		finances:  finances,
		practices: practices,
		log:       log,
	}
}

// Build assembles the dashboard for one user at the given instant.
func (a *Aggregator) Build(ctx context.Context, userID string, now time.Time) View {
	now = now.UTC()
	view := View{GeneratedAt: now}

	view.Greeting = a.widget(userID, "greeting", func() (any, error) {
		return a.profiles.Get(ctx, userID)
	})

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today := recurrence.Window{From: dayStart, To: dayStart.AddDate(0, 0, 1).Add(-time.Second)}
	var agenda []schedule.Projection
	view.Agenda = a.widget(userID, "agenda", func() (any, error) {
		var err error
		agenda, err = a.schedules.ListWindow(ctx, userID, today, schedule.Filters{})
		return agenda, err
	})

	view.Finance = a.widget(userID, "finance", func() (any, error) {
		return a.finances.MonthSummary(ctx, userID, now)
	})

	view.Spiritual = a.widget(userID, "spiritual", func() (any, error) {
		return a.practices.CurrentStreak(ctx, userID, now)
	})

	view.Reminders = a.widget(userID, "reminders", func() (any, error) {
		return upcomingReminders(agenda, now), nil
	})

	return view
}

func (a *Aggregator) widget(userID, name string, load func() (any, error)) Widget {
	data, err := load()
	if err != nil {
		a.log.WithFields(logrus.Fields{"widget": name, "user_id": userID}).
			WithError(err).Warn("dashboard widget degraded")
		return Widget{Error: "temporarily unavailable"}
	}
	return Widget{Data: data}
}

// upcomingReminders derives reminder times from today's remaining agenda.
func upcomingReminders(agenda []schedule.Projection, now time.Time) []Reminder {
	var out []Reminder
	for _, p := range agenda {
		for _, minutes := range p.Reminders {
			remindAt := p.StartTime.Add(-time.Duration(minutes) * time.Minute)
			if remindAt.Before(now) {
				continue
			}
			out = append(out, Reminder{
				EventTitle: p.Title,
				RemindAt:   remindAt,
				StartTime:  p.StartTime,
			})
		}
	}
	return out
}
