package schedule

import (
	"context"
	"time"

	"github.com/emersion/go-ical"

	"lifedesk/internal/recurrence"
)

// ExportICS renders the owner's window as an iCalendar document: persisted
// events as plain VEVENTs, recurring templates as VEVENTs carrying their
// RRULE and EXDATEs so other calendar clients re-expand them natively.
func (s *Service) ExportICS(ctx context.Context, ownerID string, window recurrence.Window) (*ical.Calendar, error) {
	events, err := s.store.ListEvents(ctx, ownerID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	templates, err := s.store.ListTemplates(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//lifedesk//schedule//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")

	now := time.Now().UTC()
	for _, event := range events {
		comp := ical.NewComponent(ical.CompEvent)
		comp.Props.SetText(ical.PropUID, event.ID)
		comp.Props.SetDateTime(ical.PropDateTimeStamp, now)
		comp.Props.SetText(ical.PropSummary, event.Title)
		comp.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
		comp.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)
		if event.Description != "" {
			comp.Props.SetText(ical.PropDescription, event.Description)
		}
		if event.Location != "" {
			comp.Props.SetText(ical.PropLocation, event.Location)
		}
		cal.Children = append(cal.Children, comp)
	}

	for _, tmpl := range templates {
		if tmpl.Archived {
			continue
		}
		rule, err := recurrence.Parse(tmpl.RuleText)
		if err != nil {
			// Malformed templates are skipped here the same way the merge
			// skips them.
			s.log.WithField("template_id", tmpl.ID).WithError(err).Warn("skipping template in ICS export")
			continue
		}

		comp := ical.NewComponent(ical.CompEvent)
		comp.Props.SetText(ical.PropUID, tmpl.ID)
		comp.Props.SetDateTime(ical.PropDateTimeStamp, now)
		comp.Props.SetText(ical.PropSummary, tmpl.Title)
		comp.Props.SetDateTime(ical.PropDateTimeStart, tmpl.StartTime)
		comp.Props.SetDateTime(ical.PropDateTimeEnd, tmpl.EndTime)
		// RRULE must keep its default RECUR value type: SetText would mark
		// it VALUE=TEXT and escape the ; and , separators.
		rruleProp := ical.NewProp(ical.PropRecurrenceRule)
		rruleProp.SetValueType(ical.ValueRecurrence)
		rruleProp.Value = recurrence.RRuleValue(rule)
		comp.Props.Set(rruleProp)
		if tmpl.Description != "" {
			comp.Props.SetText(ical.PropDescription, tmpl.Description)
		}
		if tmpl.Location != "" {
			comp.Props.SetText(ical.PropLocation, tmpl.Location)
		}
		for _, exdate := range tmpl.ExceptionDates {
			prop := ical.NewProp(ical.PropExceptionDates)
			prop.SetDateTime(exdate)
			comp.Props.Add(prop)
		}
		cal.Children = append(cal.Children, comp)
	}

	return cal, nil
}
