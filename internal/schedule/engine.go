package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"lifedesk/internal/metrics"
	"lifedesk/internal/recurrence"
	"lifedesk/internal/storage"
)

// Engine materializes recurring templates into occurrence projections and
// merges them with persisted events. Expansion itself is pure computation;
// the engine only reads a snapshot of the owner's templates and events per
// call, so concurrent listings never interfere.
type Engine struct {
	store storage.Events
	cache *recurrence.ExpansionCache
	log   *logrus.Entry
}

// NewEngine creates an engine. The cache may be nil to disable memoization.
func NewEngine(store storage.Events, cache *recurrence.ExpansionCache, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{store: store, cache: cache, log: log}
}

// ExpandTemplate produces the template's occurrence projections inside the
// window: raw instants from the rule, minus exception dates, with
// per-occurrence modifications applied. The template's duration is
// preserved for every occurrence whose times are not overridden.
func (e *Engine) ExpandTemplate(tmpl storage.RecurringTemplate, window recurrence.Window) ([]Projection, error) {
	rule, err := recurrence.Parse(tmpl.RuleText)
	if err != nil {
		return nil, &TemplateExpansionError{TemplateID: tmpl.ID, Err: err}
	}

	instants, cached := e.cachedInstants(tmpl.RuleText, rule, window)
	if !cached {
		instants, err = recurrence.Generate(rule, window)
		if err != nil {
			return nil, &TemplateExpansionError{TemplateID: tmpl.ID, Err: err}
		}
		if e.cache != nil {
			e.cache.Set(tmpl.RuleText, window, instants)
		}
	}

	duration := tmpl.Duration()
	var out []Projection
	for _, instant := range instants {
		if hasDate(tmpl.ExceptionDates, instant) {
			continue
		}

		p := Projection{
			RecurringEventID: tmpl.ID,
			OwnerID:          tmpl.OwnerID,
			Title:            tmpl.Title,
			Description:      tmpl.Description,
			Location:         tmpl.Location,
			Category:         tmpl.Category,
			Priority:         tmpl.Priority,
			Color:            tmpl.Color,
			Reminders:        tmpl.Reminders,
			StartTime:        instant,
			EndTime:          instant.Add(duration),
			Virtual:          true,
		}
		// Modifications are keyed by the original, unmodified date.
		if mod, ok := findModification(tmpl.Modifications, instant); ok {
			applyModification(&p, mod)
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Engine) cachedInstants(ruleText string, rule recurrence.Rule, window recurrence.Window) ([]time.Time, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(ruleText, window)
}

// ListEvents merges the owner's persisted events in the window with the
// occurrence projections of every non-archived template, sorted ascending
// by start time. One unexpandable template is logged and skipped; the rest
// of the merge still succeeds. The context is checked between templates so
// a caller-imposed deadline cuts a pathological merge short.
func (e *Engine) ListEvents(ctx context.Context, ownerID string, window recurrence.Window, filters Filters) ([]Projection, error) {
	start := time.Now()
	defer func() { metrics.ObserveMerge(time.Since(start)) }()

	if window.Inverted() {
		return nil, nil
	}

	events, err := e.store.ListEvents(ctx, ownerID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	templates, err := e.store.ListTemplates(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var out []Projection
	for _, event := range events {
		p := eventProjection(event)
		if filters.matches(p) {
			out = append(out, p)
		}
	}

	for _, tmpl := range templates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tmpl.Archived {
			continue
		}

		projections, err := e.ExpandTemplate(tmpl, window)
		if err != nil {
			// One malformed template must not abort the whole merge.
			e.log.WithFields(logrus.Fields{
				"template_id": tmpl.ID,
				"owner_id":    ownerID,
			}).WithError(err).Warn("skipping unexpandable recurring template")
			metrics.RecordExpansion("error")
			continue
		}
		metrics.RecordExpansion("ok")

		for _, p := range projections {
			if filters.matches(p) {
				out = append(out, p)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// InvalidateTemplate drops cached expansions after a template write.
func (e *Engine) InvalidateTemplate(ruleText string) {
	if e.cache != nil {
		e.cache.Invalidate(ruleText)
	}
}

func eventProjection(event storage.Event) Projection {
	return Projection{
		ID:               event.ID,
		RecurringEventID: event.RecurringEventID,
		OwnerID:          event.OwnerID,
		Title:            event.Title,
		Description:      event.Description,
		Location:         event.Location,
		Category:         event.Category,
		Priority:         event.Priority,
		Color:            event.Color,
		StartTime:        event.StartTime,
		EndTime:          event.EndTime,
		Completed:        event.Completed,
	}
}

// hasDate reports whether any of the dates falls on the same UTC calendar
// day as the instant. Exception dates are compared by date, not exact
// instant, to tolerate time-of-day drift in stored values.
func hasDate(dates []time.Time, instant time.Time) bool {
	for _, d := range dates {
		if sameDay(d, instant) {
			return true
		}
	}
	return false
}

func findModification(mods []storage.Modification, original time.Time) (storage.Modification, bool) {
	for _, mod := range mods {
		if sameDay(mod.OriginalDate, original) {
			return mod, true
		}
	}
	return storage.Modification{}, false
}

func sameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func applyModification(p *Projection, mod storage.Modification) {
	if start, ok := mod.StartTime.Get(); ok {
		duration := p.EndTime.Sub(p.StartTime)
		p.StartTime = start
		// An overridden start keeps the duration unless the end is also
		// overridden below.
		p.EndTime = start.Add(duration)
	}
	if end, ok := mod.EndTime.Get(); ok {
		p.EndTime = end
	}
	if title, ok := mod.Title.Get(); ok {
		p.Title = title
	}
	if description, ok := mod.Description.Get(); ok {
		p.Description = description
	}
	if location, ok := mod.Location.Get(); ok {
		p.Location = location
	}
}
