package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedesk/internal/storage"
)

func encodeCalendar(t *testing.T, cal *ical.Calendar) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, ical.NewEncoder(&b).Encode(cal))
	return b.String()
}

func TestExportICSRRuleUnescaped(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := store.CreateTemplate(ctx, weeklyMWF(t, "alice"))
	require.NoError(t, err)

	cal, err := svc.ExportICS(ctx, "alice", januaryWindow())
	require.NoError(t, err)
	text := encodeCalendar(t, cal)

	// The rule line must survive verbatim so foreign clients re-expand it.
	assert.Contains(t, text, "RRULE:FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE,FR")
	assert.NotContains(t, text, "RRULE;VALUE=TEXT")
	assert.NotContains(t, text, `\;`)
	assert.NotContains(t, text, `\,`)
}

func TestExportICSContent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := store.CreateEvent(ctx, storage.Event{
		OwnerID:   "alice",
		Title:     "Dentist",
		Location:  "Main St",
		StartTime: time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 3, 8, 45, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	tmpl := weeklyMWF(t, "alice")
	tmpl.ExceptionDates = []time.Time{time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)}
	_, err = store.CreateTemplate(ctx, tmpl)
	require.NoError(t, err)

	cal, err := svc.ExportICS(ctx, "alice", januaryWindow())
	require.NoError(t, err)
	text := encodeCalendar(t, cal)

	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "SUMMARY:Dentist")
	assert.Contains(t, text, "LOCATION:Main St")
	assert.Contains(t, text, "SUMMARY:Morning run")
	assert.Contains(t, text, "EXDATE:20240108T090000Z")
}

func TestExportICSSkipsArchivedAndMalformed(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	archived := weeklyMWF(t, "alice")
	archived.Title = "Archived run"
	archived.Archived = true
	_, err := store.CreateTemplate(ctx, archived)
	require.NoError(t, err)

	_, err = store.CreateTemplate(ctx, storage.RecurringTemplate{
		OwnerID:  "alice",
		Title:    "Broken",
		RuleText: "not a rule",
	})
	require.NoError(t, err)

	cal, err := svc.ExportICS(ctx, "alice", januaryWindow())
	require.NoError(t, err)
	text := encodeCalendar(t, cal)

	assert.NotContains(t, text, "Archived run")
	assert.NotContains(t, text, "Broken")
}
