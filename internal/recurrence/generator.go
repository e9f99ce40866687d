package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Window is an inclusive query interval. An inverted window (To before
// From) yields an empty expansion rather than an error; callers that want
// stricter validation check Inverted themselves.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Inverted() bool {
	return w.To.Before(w.From)
}

// maxOccurrences caps one expansion so a pathological rule and window
// combination stays bounded.
const maxOccurrences = 1000

var rruleFrequencies = map[Frequency]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
	Yearly:  rrule.YEARLY,
}

var rruleWeekdays = [...]rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

// Generate produces the ordered, deduplicated instants at which the rule
// fires inside the window. COUNT is absolute: it counts occurrences from
// the anchor, so occurrences consumed before the window opens are never
// re-granted to a later window. UNTIL is inclusive; when both UNTIL and
// COUNT are present the earlier cutoff wins.
//
// Generate is a pure function of its arguments and holds no shared state,
// so concurrent calls never interfere.
func Generate(rule Rule, window Window) ([]time.Time, error) {
	if window.Inverted() {
		return nil, nil
	}
	rule.normalize()
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:       rruleFrequencies[rule.Frequency],
		Interval:   rule.Interval,
		Dtstart:    rule.Anchor.UTC(),
		Bymonthday: rule.ByMonthDay,
		Bymonth:    rule.ByMonth,
		Bysetpos:   rule.BySetPos,
	}
	for _, wd := range rule.ByWeekday {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
	}
	if rule.Count != nil {
		opt.Count = *rule.Count
	}
	if rule.Until != nil {
		opt.Until = rule.Until.UTC()
	}

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("building recurrence set: %w", err)
	}

	occurrences := rr.Between(window.From, window.To, true)

	// UNTIL stays authoritative even when COUNT is also present.
	if rule.Until != nil {
		limit := rule.Until.UTC()
		for i, occ := range occurrences {
			if occ.After(limit) {
				occurrences = occurrences[:i]
				break
			}
		}
	}

	if len(occurrences) > maxOccurrences {
		occurrences = occurrences[:maxOccurrences]
	}
	return occurrences, nil
}
