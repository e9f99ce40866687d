// Package recurrence implements the recurring-event engine: a typed
// recurrence rule with a canonical text form, and window-bounded
// occurrence generation backed by rrule-go.
package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frequency is the base period of a recurrence rule.
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
	Yearly
)

var frequencyNames = map[Frequency]string{
	Daily:   "DAILY",
	Weekly:  "WEEKLY",
	Monthly: "MONTHLY",
	Yearly:  "YEARLY",
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// Weekday follows the iCalendar convention: Monday is the first day.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayTokens = [...]string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

func (w Weekday) String() string {
	if w >= Monday && w <= Sunday {
		return weekdayTokens[w]
	}
	return fmt.Sprintf("Weekday(%d)", int(w))
}

// timeLayout is the timestamp form used in serialized rules (UTC only).
const timeLayout = "20060102T150405Z"

// MalformedRuleError reports an unparsable or out-of-range rule field.
// Template writes carrying such a rule are rejected synchronously.
type MalformedRuleError struct {
	Field  string
	Reason string
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("malformed recurrence rule: %s: %s", e.Field, e.Reason)
}

func malformed(field, format string, args ...any) *MalformedRuleError {
	return &MalformedRuleError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Rule describes a repeating pattern anchored at a concrete instant.
//
// Until is inclusive. If both Until and Count are set, generation stops at
// whichever cuts off first.
type Rule struct {
	Frequency  Frequency
	Interval   int // every Nth period; 0 is normalized to 1
	ByWeekday  []Weekday
	ByMonthDay []int // 1..31, or negative counting from month end
	ByMonth    []int // 1..12
	BySetPos   []int // Nth match within the period; negative counts from the end
	Until      *time.Time
	Count      *int
	Anchor     time.Time // DTSTART; seeds all period arithmetic
}

// Build constructs a validated, normalized rule. Interval 0 defaults to 1.
func Build(freq Frequency, interval int, anchor time.Time) (Rule, error) {
	r := Rule{Frequency: freq, Interval: interval, Anchor: anchor}
	r.normalize()
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks every field against its declared range.
func (r *Rule) Validate() error {
	if _, ok := frequencyNames[r.Frequency]; !ok {
		return malformed("FREQ", "unrecognized frequency %d", int(r.Frequency))
	}
	if r.Interval < 0 {
		return malformed("INTERVAL", "must be positive, got %d", r.Interval)
	}
	if r.Anchor.IsZero() {
		return malformed("DTSTART", "anchor is required")
	}
	for _, wd := range r.ByWeekday {
		if wd < Monday || wd > Sunday {
			return malformed("BYDAY", "weekday %d out of range", int(wd))
		}
	}
	for _, d := range r.ByMonthDay {
		if d == 0 || d < -31 || d > 31 {
			return malformed("BYMONTHDAY", "day %d out of range", d)
		}
	}
	for _, m := range r.ByMonth {
		if m < 1 || m > 12 {
			return malformed("BYMONTH", "month %d out of range", m)
		}
	}
	for _, p := range r.BySetPos {
		if p == 0 || p < -31 || p > 31 {
			return malformed("BYSETPOS", "position %d out of range", p)
		}
	}
	if r.Count != nil && *r.Count <= 0 {
		return malformed("COUNT", "must be positive, got %d", *r.Count)
	}
	return nil
}

// normalize sorts and deduplicates the constraint sets, applies the
// interval default, and canonicalizes Anchor and Until to UTC at second
// precision (the serialized form's resolution), so that equal rules
// serialize identically and Parse(Serialize(r)) reproduces r exactly.
func (r *Rule) normalize() {
	if r.Interval == 0 {
		r.Interval = 1
	}
	if !r.Anchor.IsZero() {
		r.Anchor = r.Anchor.UTC().Truncate(time.Second)
	}
	if r.Until != nil {
		until := r.Until.UTC().Truncate(time.Second)
		r.Until = &until
	}
	r.ByWeekday = dedupWeekdays(r.ByWeekday)
	r.ByMonthDay = dedupInts(r.ByMonthDay)
	r.ByMonth = dedupInts(r.ByMonth)
	r.BySetPos = dedupInts(r.BySetPos)
}

func dedupInts(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[i-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

func dedupWeekdays(in []Weekday) []Weekday {
	if len(in) == 0 {
		return nil
	}
	out := append([]Weekday(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, v := range out {
		if i == 0 || v != out[i-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

// Serialize renders the rule in its canonical text form. The field order is
// fixed and constraint sets are normalized, so the same rule always yields
// the same text and Parse(Serialize(r)) reproduces r exactly.
func Serialize(r Rule) string {
	r.normalize()
	var b strings.Builder
	fmt.Fprintf(&b, "FREQ=%s;INTERVAL=%d", r.Frequency, r.Interval)
	if len(r.ByWeekday) > 0 {
		b.WriteString(";BYDAY=")
		for i, wd := range r.ByWeekday {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(wd.String())
		}
	}
	writeIntSet(&b, "BYMONTHDAY", r.ByMonthDay)
	writeIntSet(&b, "BYMONTH", r.ByMonth)
	writeIntSet(&b, "BYSETPOS", r.BySetPos)
	if r.Until != nil {
		fmt.Fprintf(&b, ";UNTIL=%s", r.Until.UTC().Format(timeLayout))
	}
	if r.Count != nil {
		fmt.Fprintf(&b, ";COUNT=%d", *r.Count)
	}
	fmt.Fprintf(&b, ";DTSTART=%s", r.Anchor.UTC().Format(timeLayout))
	return b.String()
}

func writeIntSet(b *strings.Builder, key string, vals []int) {
	if len(vals) == 0 {
		return
	}
	b.WriteByte(';')
	b.WriteString(key)
	b.WriteByte('=')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
}

// Parse reads the canonical text form produced by Serialize. Unknown keys,
// missing FREQ or DTSTART, and out-of-range values all fail with
// *MalformedRuleError.
func Parse(text string) (Rule, error) {
	var r Rule
	var sawFreq, sawAnchor bool

	for _, part := range strings.Split(strings.TrimSpace(text), ";") {
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found || value == "" {
			return Rule{}, malformed(key, "missing value")
		}
		switch key {
		case "FREQ":
			freq, err := parseFrequency(value)
			if err != nil {
				return Rule{}, err
			}
			r.Frequency = freq
			sawFreq = true
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, malformed("INTERVAL", "invalid value %q", value)
			}
			r.Interval = n
		case "BYDAY":
			days, err := parseWeekdaySet(value)
			if err != nil {
				return Rule{}, err
			}
			r.ByWeekday = days
		case "BYMONTHDAY":
			vals, err := parseIntSet("BYMONTHDAY", value)
			if err != nil {
				return Rule{}, err
			}
			r.ByMonthDay = vals
		case "BYMONTH":
			vals, err := parseIntSet("BYMONTH", value)
			if err != nil {
				return Rule{}, err
			}
			r.ByMonth = vals
		case "BYSETPOS":
			vals, err := parseIntSet("BYSETPOS", value)
			if err != nil {
				return Rule{}, err
			}
			r.BySetPos = vals
		case "UNTIL":
			t, err := time.Parse(timeLayout, value)
			if err != nil {
				return Rule{}, malformed("UNTIL", "invalid timestamp %q", value)
			}
			r.Until = &t
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Rule{}, malformed("COUNT", "invalid value %q", value)
			}
			r.Count = &n
		case "DTSTART":
			t, err := time.Parse(timeLayout, value)
			if err != nil {
				return Rule{}, malformed("DTSTART", "invalid timestamp %q", value)
			}
			r.Anchor = t
			sawAnchor = true
		default:
			return Rule{}, malformed(key, "unknown field")
		}
	}

	if !sawFreq {
		return Rule{}, malformed("FREQ", "frequency is required")
	}
	if !sawAnchor {
		return Rule{}, malformed("DTSTART", "anchor is required")
	}

	r.normalize()
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// RRuleValue renders the rule without its anchor, suitable as the value of
// an iCalendar RRULE property (DTSTART travels as its own property).
func RRuleValue(r Rule) string {
	text := Serialize(r)
	if i := strings.Index(text, ";DTSTART="); i >= 0 {
		return text[:i]
	}
	return text
}

// FrequencyFromToken resolves a serialized frequency token (DAILY, WEEKLY,
// MONTHLY, YEARLY).
func FrequencyFromToken(token string) (Frequency, error) {
	return parseFrequency(strings.ToUpper(token))
}

// WeekdayFromToken resolves a serialized weekday token (MO..SU).
func WeekdayFromToken(token string) (Weekday, error) {
	token = strings.ToUpper(token)
	for i, name := range weekdayTokens {
		if name == token {
			return Weekday(i), nil
		}
	}
	return 0, malformed("BYDAY", "unrecognized weekday %q", token)
}

func parseFrequency(token string) (Frequency, error) {
	for freq, name := range frequencyNames {
		if name == token {
			return freq, nil
		}
	}
	return 0, malformed("FREQ", "unrecognized frequency %q", token)
}

func parseWeekdaySet(value string) ([]Weekday, error) {
	var days []Weekday
	for _, token := range strings.Split(value, ",") {
		found := false
		for i, name := range weekdayTokens {
			if name == token {
				days = append(days, Weekday(i))
				found = true
				break
			}
		}
		if !found {
			return nil, malformed("BYDAY", "unrecognized weekday %q", token)
		}
	}
	return days, nil
}

func parseIntSet(field, value string) ([]int, error) {
	var vals []int
	for _, token := range strings.Split(value, ",") {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, malformed(field, "invalid value %q", token)
		}
		vals = append(vals, n)
	}
	return vals, nil
}
