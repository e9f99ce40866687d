package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedesk/internal/schedule"
	"lifedesk/internal/storage"
	"lifedesk/internal/storage/memory"
)

func reminderEntries(hook *logtest.Hook) []*logrus.Entry {
	var out []*logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "reminder due" {
			out = append(out, entry)
		}
	}
	return out
}

func TestSweepLogsDueReminders(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, storage.User{Email: "alice@example.com"})
	require.NoError(t, err)

	now := time.Date(2024, 5, 10, 8, 57, 0, 0, time.UTC)
	start := time.Date(2024, 5, 10, 9, 10, 0, 0, time.UTC)
	_, err = store.CreateTemplate(ctx, storage.RecurringTemplate{
		OwnerID:   user.ID,
		Title:     "Morning prayer",
		Reminders: []int{10}, // due 09:00, inside the 5 minute lookahead
		StartTime: start,
		EndTime:   start.Add(20 * time.Minute),
		RuleText: fmt.Sprintf("FREQ=DAILY;INTERVAL=1;DTSTART=%s",
			start.Format("20060102T150405Z")),
	})
	require.NoError(t, err)

	log, hook := logtest.NewNullLogger()
	engine := schedule.NewEngine(store, nil, nil)
	schedules := schedule.NewService(store, engine, nil)
	sweeper := NewReminderSweeper(store, schedules, "*/5 * * * *", 5*time.Minute, logrus.NewEntry(log))

	sweeper.Sweep(ctx, now)

	entries := reminderEntries(hook)
	require.Len(t, entries, 1)
	assert.Equal(t, user.ID, entries[0].Data["user"])
	assert.Equal(t, "Morning prayer", entries[0].Data["title"])
}

func TestSweepIgnoresRemindersOutsideLookahead(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, storage.User{Email: "alice@example.com"})
	require.NoError(t, err)

	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	_, err = store.CreateTemplate(ctx, storage.RecurringTemplate{
		OwnerID:   user.ID,
		Title:     "Lunch",
		Reminders: []int{10}, // due 11:50, hours past the lookahead
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		RuleText: fmt.Sprintf("FREQ=DAILY;INTERVAL=1;DTSTART=%s",
			start.Format("20060102T150405Z")),
	})
	require.NoError(t, err)

	log, hook := logtest.NewNullLogger()
	engine := schedule.NewEngine(store, nil, nil)
	schedules := schedule.NewService(store, engine, nil)
	sweeper := NewReminderSweeper(store, schedules, "*/5 * * * *", 5*time.Minute, logrus.NewEntry(log))

	sweeper.Sweep(ctx, now)
	assert.Empty(t, reminderEntries(hook))
}

func TestStartAndStop(t *testing.T) {
	store := memory.New()
	engine := schedule.NewEngine(store, nil, nil)
	schedules := schedule.NewService(store, engine, nil)
	sweeper := NewReminderSweeper(store, schedules, "*/5 * * * *", 5*time.Minute, nil)

	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	store := memory.New()
	engine := schedule.NewEngine(store, nil, nil)
	schedules := schedule.NewService(store, engine, nil)
	sweeper := NewReminderSweeper(store, schedules, "not a cron spec", 5*time.Minute, nil)

	assert.Error(t, sweeper.Start())
}
