package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWeeklyWindow(t *testing.T) {
	// Mon/Wed/Fri starting Monday 2024-01-01; three full weeks.
	rule := Rule{
		Frequency: Weekly,
		Interval:  1,
		ByWeekday: []Weekday{Monday, Wednesday, Friday},
		Anchor:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	window := Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 21, 23, 59, 59, 0, time.UTC),
	}

	instants, err := Generate(rule, window)
	require.NoError(t, err)
	require.Len(t, instants, 9)

	for i, instant := range instants {
		switch instant.Weekday() {
		case time.Monday, time.Wednesday, time.Friday:
		default:
			t.Fatalf("instant %v falls on %v", instant, instant.Weekday())
		}
		if i > 0 {
			assert.True(t, instants[i-1].Before(instant), "instants must be strictly ascending")
		}
	}
}

func TestGenerateCountIsAbsolute(t *testing.T) {
	// Five daily occurrences from Jan 1; a window opening Jan 10 sees none
	// of them, and the count is never re-granted to a later window.
	rule := Rule{
		Frequency: Daily,
		Interval:  1,
		Count:     intPtr(5),
		Anchor:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	window := Window{
		From: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	instants, err := Generate(rule, window)
	require.NoError(t, err)
	assert.Empty(t, instants)
}

func TestGenerateUntilIsInclusive(t *testing.T) {
	rule := Rule{
		Frequency: Daily,
		Interval:  1,
		Until:     timePtr(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		Anchor:    time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	window := Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	instants, err := Generate(rule, window)
	require.NoError(t, err)
	require.Len(t, instants, 3)
	assert.Equal(t, 8, instants[0].Day())
	assert.Equal(t, 9, instants[1].Day())
	assert.Equal(t, 10, instants[2].Day())
}

func TestGenerateUntilBeatsLargerCount(t *testing.T) {
	rule := Rule{
		Frequency: Daily,
		Interval:  1,
		Count:     intPtr(100),
		Until:     timePtr(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
		Anchor:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	window := Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	instants, err := Generate(rule, window)
	require.NoError(t, err)
	assert.Len(t, instants, 3)
}

func TestGenerateLastMondayOfMonth(t *testing.T) {
	rule := Rule{
		Frequency: Monthly,
		Interval:  1,
		ByWeekday: []Weekday{Monday},
		BySetPos:  []int{-1},
		Anchor:    time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
	}
	window := Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	}

	instants, err := Generate(rule, window)
	require.NoError(t, err)
	require.Len(t, instants, 3)
	assert.Equal(t, time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC), instants[0])
	assert.Equal(t, time.Date(2024, 2, 26, 18, 0, 0, 0, time.UTC), instants[1])
	assert.Equal(t, time.Date(2024, 3, 25, 18, 0, 0, 0, time.UTC), instants[2])
}

func TestGenerateEmptyCases(t *testing.T) {
	anchor := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rule := Rule{Frequency: Daily, Interval: 1, Anchor: anchor}

	t.Run("window before anchor", func(t *testing.T) {
		instants, err := Generate(rule, Window{
			From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Empty(t, instants)
	})

	t.Run("inverted window", func(t *testing.T) {
		instants, err := Generate(rule, Window{
			From: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Empty(t, instants)
	})

	t.Run("invalid rule", func(t *testing.T) {
		bad := rule
		bad.ByMonth = []int{13}
		_, err := Generate(bad, Window{From: anchor, To: anchor.AddDate(0, 1, 0)})
		require.Error(t, err)
	})
}

func TestGenerateIsRestartable(t *testing.T) {
	rule := Rule{
		Frequency: Weekly,
		Interval:  1,
		ByWeekday: []Weekday{Tuesday, Thursday},
		Anchor:    time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC),
	}
	window := Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	first, err := Generate(rule, window)
	require.NoError(t, err)
	second, err := Generate(rule, window)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
