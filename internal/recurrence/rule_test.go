package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func TestSerializeParseRoundTrip(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	until := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rule Rule
	}{
		{
			name: "daily with count",
			rule: Rule{Frequency: Daily, Interval: 1, Count: intPtr(10), Anchor: anchor},
		},
		{
			name: "weekly three days",
			rule: Rule{
				Frequency: Weekly,
				Interval:  1,
				ByWeekday: []Weekday{Monday, Wednesday, Friday},
				Anchor:    anchor,
			},
		},
		{
			name: "biweekly until",
			rule: Rule{
				Frequency: Weekly,
				Interval:  2,
				ByWeekday: []Weekday{Tuesday},
				Until:     timePtr(until),
				Anchor:    anchor,
			},
		},
		{
			name: "last monday of month",
			rule: Rule{
				Frequency: Monthly,
				Interval:  1,
				ByWeekday: []Weekday{Monday},
				BySetPos:  []int{-1},
				Anchor:    anchor,
			},
		},
		{
			name: "yearly tax days",
			rule: Rule{
				Frequency:  Yearly,
				Interval:   1,
				ByMonth:    []int{4, 10},
				ByMonthDay: []int{15},
				Anchor:     anchor,
			},
		},
		{
			name: "until and count together",
			rule: Rule{
				Frequency: Daily,
				Interval:  3,
				Until:     timePtr(until),
				Count:     intPtr(7),
				Anchor:    anchor,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Serialize(tt.rule)
			parsed, err := Parse(text)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, parsed)

			// Deterministic: serializing again yields the same text.
			assert.Equal(t, text, Serialize(parsed))
		})
	}
}

func TestSerializeNormalizesSets(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Rule{
		Frequency: Weekly,
		ByWeekday: []Weekday{Friday, Monday, Friday, Wednesday},
		Anchor:    anchor,
	}
	b := Rule{
		Frequency: Weekly,
		ByWeekday: []Weekday{Monday, Wednesday, Friday},
		Anchor:    anchor,
	}
	assert.Equal(t, Serialize(b), Serialize(a))
	assert.Contains(t, Serialize(a), "BYDAY=MO,WE,FR")
}

func TestParseRejectsMalformedRules(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field string
	}{
		{"empty", "", "FREQ"},
		{"missing frequency", "INTERVAL=2;DTSTART=20240101T000000Z", "FREQ"},
		{"unknown frequency", "FREQ=FORTNIGHTLY;DTSTART=20240101T000000Z", "FREQ"},
		{"missing anchor", "FREQ=DAILY", "DTSTART"},
		{"unknown key", "FREQ=DAILY;WKST=MO;DTSTART=20240101T000000Z", "WKST"},
		{"bad interval", "FREQ=DAILY;INTERVAL=0;DTSTART=20240101T000000Z", "INTERVAL"},
		{"bad weekday", "FREQ=WEEKLY;BYDAY=XX;DTSTART=20240101T000000Z", "BYDAY"},
		{"month out of range", "FREQ=YEARLY;BYMONTH=13;DTSTART=20240101T000000Z", "BYMONTH"},
		{"monthday zero", "FREQ=MONTHLY;BYMONTHDAY=0;DTSTART=20240101T000000Z", "BYMONTHDAY"},
		{"setpos out of range", "FREQ=MONTHLY;BYSETPOS=40;DTSTART=20240101T000000Z", "BYSETPOS"},
		{"negative count", "FREQ=DAILY;COUNT=-1;DTSTART=20240101T000000Z", "COUNT"},
		{"bad until", "FREQ=DAILY;UNTIL=notatime;DTSTART=20240101T000000Z", "UNTIL"},
		{"missing value", "FREQ=;DTSTART=20240101T000000Z", "FREQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)

			var malformedErr *MalformedRuleError
			require.ErrorAs(t, err, &malformedErr)
			assert.Equal(t, tt.field, malformedErr.Field)
		})
	}
}

func TestBuildAppliesDefaults(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rule, err := Build(Weekly, 0, anchor)
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Interval)

	_, err = Build(Frequency(42), 1, anchor)
	require.Error(t, err)

	_, err = Build(Daily, 1, time.Time{})
	require.Error(t, err)
}

func TestBuildCanonicalizesTimes(t *testing.T) {
	berlin := time.FixedZone("CET", 60*60)
	anchor := time.Date(2024, 1, 1, 10, 0, 0, 987654321, berlin)
	until := time.Date(2024, 6, 30, 12, 30, 0, 123456789, berlin)

	rule, err := Build(Daily, 1, anchor)
	require.NoError(t, err)
	rule.Until = timePtr(until)

	// Zoned, sub-second inputs round-trip structurally: the struct holds
	// exactly what its serialized form can represent.
	parsed, err := Parse(Serialize(rule))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), rule.Anchor)
	assert.Equal(t, rule.Anchor, parsed.Anchor)
	require.NotNil(t, parsed.Until)
	assert.Equal(t, time.Date(2024, 6, 30, 11, 30, 0, 0, time.UTC), *parsed.Until)

	// Once canonical, the round trip is structurally exact.
	again, err := Parse(Serialize(parsed))
	require.NoError(t, err)
	assert.Equal(t, parsed, again)
}

func TestValidateRanges(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	valid := Rule{
		Frequency:  Monthly,
		Interval:   1,
		ByMonthDay: []int{-1, 15},
		BySetPos:   []int{-1, 2},
		Anchor:     anchor,
	}
	require.NoError(t, valid.Validate())

	invalid := valid
	invalid.ByMonthDay = []int{32}
	require.Error(t, invalid.Validate())

	invalid = valid
	invalid.Count = intPtr(0)
	require.Error(t, invalid.Validate())
}
