package schedule

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"lifedesk/internal/recurrence"
	"lifedesk/internal/storage"
)

// Service owns event and template writes. Rule validation happens here,
// synchronously: a malformed rule rejects the write before anything is
// stored.
type Service struct {
	store  storage.Events
	engine *Engine
	log    *logrus.Entry
}

func NewService(store storage.Events, engine *Engine, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{store: store, engine: engine, log: log}
}

// Engine exposes the materializer for read paths.
func (s *Service) Engine() *Engine { return s.engine }

func invalid(msg string) error {
	return &storage.Error{Type: storage.ErrInvalidInput, Message: msg}
}

// EventInput is the payload for creating a standalone event.
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Color       string    `json:"color"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

func (in EventInput) validate() error {
	if in.Title == "" {
		return invalid("title is required")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return invalid("start and end times are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return invalid("end time must be after start time")
	}
	return nil
}

// RuleInput is the structured recurrence form accepted at the API
// boundary. The anchor is always the template's first start time.
type RuleInput struct {
	Frequency  string     `json:"frequency"`
	Interval   int        `json:"interval"`
	ByWeekday  []string   `json:"byWeekday"`
	ByMonthDay []int      `json:"byMonthDay"`
	ByMonth    []int      `json:"byMonth"`
	BySetPos   []int      `json:"bySetPos"`
	Until      *time.Time `json:"until"`
	Count      *int       `json:"count"`
}

func (in RuleInput) toRule(anchor time.Time) (recurrence.Rule, error) {
	freq, err := recurrence.FrequencyFromToken(in.Frequency)
	if err != nil {
		return recurrence.Rule{}, err
	}
	rule, err := recurrence.Build(freq, in.Interval, anchor)
	if err != nil {
		return recurrence.Rule{}, err
	}
	for _, token := range in.ByWeekday {
		wd, err := recurrence.WeekdayFromToken(token)
		if err != nil {
			return recurrence.Rule{}, err
		}
		rule.ByWeekday = append(rule.ByWeekday, wd)
	}
	rule.ByMonthDay = in.ByMonthDay
	rule.ByMonth = in.ByMonth
	rule.BySetPos = in.BySetPos
	rule.Until = in.Until
	rule.Count = in.Count
	if err := rule.Validate(); err != nil {
		return recurrence.Rule{}, err
	}
	return rule, nil
}

// TemplateInput is the payload for creating or replacing a recurring
// template. StartTime and EndTime describe the first occurrence.
type TemplateInput struct {
	EventInput
	Rule      RuleInput `json:"rule"`
	Reminders []int     `json:"reminders"`
}

// Events ---------------------------------------------------------------------

func (s *Service) CreateEvent(ctx context.Context, ownerID string, in EventInput) (storage.Event, error) {
	if err := in.validate(); err != nil {
		return storage.Event{}, err
	}
	return s.store.CreateEvent(ctx, storage.Event{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		Priority:    in.Priority,
		Color:       in.Color,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	})
}

func (s *Service) GetEvent(ctx context.Context, ownerID, id string) (storage.Event, error) {
	return s.store.GetEvent(ctx, ownerID, id)
}

// PatchEvent applies the set fields of the patch to the stored event.
func (s *Service) PatchEvent(ctx context.Context, ownerID, id string, patch EventPatch) (storage.Event, error) {
	event, err := s.store.GetEvent(ctx, ownerID, id)
	if err != nil {
		return storage.Event{}, err
	}

	if title, ok := patch.Title.Get(); ok {
		event.Title = title
	}
	if description, ok := patch.Description.Get(); ok {
		event.Description = description
	}
	if location, ok := patch.Location.Get(); ok {
		event.Location = location
	}
	if category, ok := patch.Category.Get(); ok {
		event.Category = category
	}
	if priority, ok := patch.Priority.Get(); ok {
		event.Priority = priority
	}
	if color, ok := patch.Color.Get(); ok {
		event.Color = color
	}
	if start, ok := patch.StartTime.Get(); ok {
		event.StartTime = start
	}
	if end, ok := patch.EndTime.Get(); ok {
		event.EndTime = end
	}
	if completed, ok := patch.Completed.Get(); ok {
		event.Completed = completed
	}

	if !event.EndTime.After(event.StartTime) {
		return storage.Event{}, invalid("end time must be after start time")
	}
	return s.store.UpdateEvent(ctx, event)
}

func (s *Service) DeleteEvent(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteEvent(ctx, ownerID, id)
}

// ListWindow runs the materializer over the owner's events and templates.
func (s *Service) ListWindow(ctx context.Context, ownerID string, window recurrence.Window, filters Filters) ([]Projection, error) {
	return s.engine.ListEvents(ctx, ownerID, window, filters)
}

// Templates ------------------------------------------------------------------

func (s *Service) CreateTemplate(ctx context.Context, ownerID string, in TemplateInput) (storage.RecurringTemplate, error) {
	if err := in.validate(); err != nil {
		return storage.RecurringTemplate{}, err
	}
	rule, err := in.Rule.toRule(in.StartTime)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	return s.store.CreateTemplate(ctx, storage.RecurringTemplate{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		Priority:    in.Priority,
		Color:       in.Color,
		Reminders:   in.Reminders,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		RuleText:    recurrence.Serialize(rule),
	})
}

func (s *Service) GetTemplate(ctx context.Context, ownerID, id string) (storage.RecurringTemplate, error) {
	return s.store.GetTemplate(ctx, ownerID, id)
}

func (s *Service) ListTemplates(ctx context.Context, ownerID string) ([]storage.RecurringTemplate, error) {
	return s.store.ListTemplates(ctx, ownerID)
}

// UpdateTemplate replaces the template's content and re-derives the
// serialized rule. Exceptions and modifications are preserved.
func (s *Service) UpdateTemplate(ctx context.Context, ownerID, id string, in TemplateInput) (storage.RecurringTemplate, error) {
	if err := in.validate(); err != nil {
		return storage.RecurringTemplate{}, err
	}
	tmpl, err := s.store.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	rule, err := in.Rule.toRule(in.StartTime)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}

	oldRuleText := tmpl.RuleText
	tmpl.Title = in.Title
	tmpl.Description = in.Description
	tmpl.Location = in.Location
	tmpl.Category = in.Category
	tmpl.Priority = in.Priority
	tmpl.Color = in.Color
	tmpl.Reminders = in.Reminders
	tmpl.StartTime = in.StartTime
	tmpl.EndTime = in.EndTime
	tmpl.RuleText = recurrence.Serialize(rule)

	updated, err := s.store.UpdateTemplate(ctx, tmpl)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	s.engine.InvalidateTemplate(oldRuleText)
	s.engine.InvalidateTemplate(updated.RuleText)
	return updated, nil
}

// AddException suppresses the occurrence on the given calendar date.
func (s *Service) AddException(ctx context.Context, ownerID, id string, date time.Time) (storage.RecurringTemplate, error) {
	if date.IsZero() {
		return storage.RecurringTemplate{}, invalid("exception date is required")
	}
	tmpl, err := s.store.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	if !hasDate(tmpl.ExceptionDates, date) {
		tmpl.ExceptionDates = append(tmpl.ExceptionDates, date)
	}
	return s.store.UpdateTemplate(ctx, tmpl)
}

// AddModification overrides the occurrence keyed by its original date,
// replacing any previous modification for that date.
func (s *Service) AddModification(ctx context.Context, ownerID, id string, mod storage.Modification) (storage.RecurringTemplate, error) {
	if mod.OriginalDate.IsZero() {
		return storage.RecurringTemplate{}, invalid("modification original date is required")
	}
	tmpl, err := s.store.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}

	replaced := false
	for i, existing := range tmpl.Modifications {
		if sameDay(existing.OriginalDate, mod.OriginalDate) {
			tmpl.Modifications[i] = mod
			replaced = true
			break
		}
	}
	if !replaced {
		tmpl.Modifications = append(tmpl.Modifications, mod)
	}
	return s.store.UpdateTemplate(ctx, tmpl)
}

// SetArchived toggles the template's archived flag. Archived templates are
// excluded from generation entirely.
func (s *Service) SetArchived(ctx context.Context, ownerID, id string, archived bool) (storage.RecurringTemplate, error) {
	tmpl, err := s.store.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	tmpl.Archived = archived
	return s.store.UpdateTemplate(ctx, tmpl)
}

// DeleteTemplate removes the template and its persisted future instances.
// Past instances stay as history; generation stops because the template is
// gone.
func (s *Service) DeleteTemplate(ctx context.Context, ownerID, id string) error {
	tmpl, err := s.store.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTemplate(ctx, ownerID, id); err != nil {
		return err
	}
	s.engine.InvalidateTemplate(tmpl.RuleText)
	return s.store.DeleteEventsByTemplate(ctx, ownerID, id, time.Now().UTC())
}
