// Package schedule implements the calendar service: event and template
// CRUD, and the materializer that turns recurrence rules into concrete,
// window-bounded occurrence projections.
package schedule

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Projection is one entry of a window listing: either a persisted event
// (Virtual false, ID set) or a computed occurrence of a recurring template
// (Virtual true, RecurringEventID set). Computed occurrences are never
// persisted.
type Projection struct {
	ID               string    `json:"id,omitempty"`
	RecurringEventID string    `json:"recurringEventId,omitempty"`
	OwnerID          string    `json:"ownerId"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Location         string    `json:"location,omitempty"`
	Category         string    `json:"category,omitempty"`
	Priority         string    `json:"priority,omitempty"`
	Color            string    `json:"color,omitempty"`
	Reminders        []int     `json:"reminders,omitempty"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	Completed        bool      `json:"completed"`
	Virtual          bool      `json:"virtual"`
}

// Filters narrows a window listing. Zero values match everything.
type Filters struct {
	Category  string
	Priority  string
	Completed mo.Option[bool]
}

func (f Filters) matches(p Projection) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Priority != "" && p.Priority != f.Priority {
		return false
	}
	if completed, ok := f.Completed.Get(); ok && p.Completed != completed {
		return false
	}
	return true
}

// TemplateExpansionError wraps a failure while expanding one template
// during a multi-template merge. The merge logs it and carries on with the
// remaining templates.
type TemplateExpansionError struct {
	TemplateID string
	Err        error
}

func (e *TemplateExpansionError) Error() string {
	return fmt.Sprintf("expanding template %s: %v", e.TemplateID, e.Err)
}

func (e *TemplateExpansionError) Unwrap() error { return e.Err }

// EventPatch carries the fields a client may change on an event. Absent
// fields leave the stored value untouched.
type EventPatch struct {
	Title       mo.Option[string]    `json:"title"`
	Description mo.Option[string]    `json:"description"`
	Location    mo.Option[string]    `json:"location"`
	Category    mo.Option[string]    `json:"category"`
	Priority    mo.Option[string]    `json:"priority"`
	Color       mo.Option[string]    `json:"color"`
	StartTime   mo.Option[time.Time] `json:"startTime"`
	EndTime     mo.Option[time.Time] `json:"endTime"`
	Completed   mo.Option[bool]      `json:"completed"`
}
