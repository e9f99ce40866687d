// Package memory is an in-memory storage backend. It is safe for
// concurrent use and serves both tests and the database-less fallback
// selected at startup when no DATABASE_URL is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifedesk/internal/storage"
)

// Store implements storage.Store using mutex-guarded maps.
type Store struct {
	mu           sync.RWMutex
	users        map[string]storage.User
	usersByEmail map[string]string
	profiles     map[string]storage.Profile
	events       map[string]storage.Event
	templates    map[string]storage.RecurringTemplate
	transactions map[string]storage.Transaction
	budgets      map[string]storage.Budget // key: ownerID/category
	entries      map[string]storage.PracticeEntry
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]storage.User),
		usersByEmail: make(map[string]string),
		profiles:     make(map[string]storage.Profile),
		events:       make(map[string]storage.Event),
		templates:    make(map[string]storage.RecurringTemplate),
		transactions: make(map[string]storage.Transaction),
		budgets:      make(map[string]storage.Budget),
		entries:      make(map[string]storage.PracticeEntry),
	}
}

func budgetKey(ownerID, category string) string {
	return ownerID + "/" + strings.ToLower(category)
}

// Users ----------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user storage.User) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return storage.User{}, &storage.Error{Type: storage.ErrAlreadyExists, Message: "email already registered"}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = user
	s.usersByEmail[email] = user.ID
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.NotFound("user %s", id)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return storage.User{}, storage.NotFound("user %s", email)
	}
	return s.users[id], nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Profiles -------------------------------------------------------------------

func (s *Store) GetProfile(_ context.Context, userID string) (storage.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return storage.Profile{}, storage.NotFound("profile for user %s", userID)
	}
	return profile, nil
}

func (s *Store) PutProfile(_ context.Context, profile storage.Profile) (storage.Profile, error) {
	if profile.UserID == "" {
		return storage.Profile{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "profile user id is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile.UpdatedAt = time.Now().UTC()
	s.profiles[profile.UserID] = profile
	return profile, nil
}

// Events ---------------------------------------------------------------------

func (s *Store) CreateEvent(_ context.Context, event storage.Event) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	s.events[event.ID] = event
	return event, nil
}

func (s *Store) UpdateEvent(_ context.Context, event storage.Event) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[event.ID]
	if !ok || existing.OwnerID != event.OwnerID {
		return storage.Event{}, storage.NotFound("event %s", event.ID)
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now().UTC()
	s.events[event.ID] = event
	return event, nil
}

func (s *Store) GetEvent(_ context.Context, ownerID, id string) (storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok || event.OwnerID != ownerID {
		return storage.Event{}, storage.NotFound("event %s", id)
	}
	return event, nil
}

func (s *Store) DeleteEvent(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok || event.OwnerID != ownerID {
		return storage.NotFound("event %s", id)
	}
	delete(s.events, id)
	return nil
}

func (s *Store) ListEvents(_ context.Context, ownerID string, from, to time.Time) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Event
	for _, event := range s.events {
		if event.OwnerID != ownerID {
			continue
		}
		if event.StartTime.Before(from) || event.StartTime.After(to) {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Store) DeleteEventsByTemplate(_ context.Context, ownerID, templateID string, from time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, event := range s.events {
		if event.OwnerID == ownerID && event.RecurringEventID == templateID && !event.StartTime.Before(from) {
			delete(s.events, id)
		}
	}
	return nil
}

// Templates ------------------------------------------------------------------

func (s *Store) CreateTemplate(_ context.Context, tmpl storage.RecurringTemplate) (storage.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	s.templates[tmpl.ID] = cloneTemplate(tmpl)
	return tmpl, nil
}

func (s *Store) UpdateTemplate(_ context.Context, tmpl storage.RecurringTemplate) (storage.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.templates[tmpl.ID]
	if !ok || existing.OwnerID != tmpl.OwnerID {
		return storage.RecurringTemplate{}, storage.NotFound("template %s", tmpl.ID)
	}
	tmpl.CreatedAt = existing.CreatedAt
	tmpl.UpdatedAt = time.Now().UTC()
	s.templates[tmpl.ID] = cloneTemplate(tmpl)
	return tmpl, nil
}

func (s *Store) GetTemplate(_ context.Context, ownerID, id string) (storage.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[id]
	if !ok || tmpl.OwnerID != ownerID {
		return storage.RecurringTemplate{}, storage.NotFound("template %s", id)
	}
	return cloneTemplate(tmpl), nil
}

func (s *Store) DeleteTemplate(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl, ok := s.templates[id]
	if !ok || tmpl.OwnerID != ownerID {
		return storage.NotFound("template %s", id)
	}
	delete(s.templates, id)
	return nil
}

func (s *Store) ListTemplates(_ context.Context, ownerID string) ([]storage.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.RecurringTemplate
	for _, tmpl := range s.templates {
		if tmpl.OwnerID == ownerID {
			out = append(out, cloneTemplate(tmpl))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// cloneTemplate copies the slices so callers cannot mutate stored state.
func cloneTemplate(tmpl storage.RecurringTemplate) storage.RecurringTemplate {
	tmpl.Reminders = append([]int(nil), tmpl.Reminders...)
	tmpl.ExceptionDates = append([]time.Time(nil), tmpl.ExceptionDates...)
	tmpl.Modifications = append([]storage.Modification(nil), tmpl.Modifications...)
	return tmpl
}

// Finance --------------------------------------------------------------------

func (s *Store) CreateTransaction(_ context.Context, tx storage.Transaction) (storage.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.CreatedAt = time.Now().UTC()
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id string) (storage.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return storage.Transaction{}, storage.NotFound("transaction %s", id)
	}
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return storage.NotFound("transaction %s", id)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID string, from, to time.Time) ([]storage.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) PutBudget(_ context.Context, budget storage.Budget) (storage.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if budget.ID == "" {
		budget.ID = uuid.NewString()
	}
	s.budgets[budgetKey(budget.OwnerID, budget.Category)] = budget
	return budget, nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID string) ([]storage.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Budget
	for _, budget := range s.budgets {
		if budget.OwnerID == ownerID {
			out = append(out, budget)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Spiritual ------------------------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, entry storage.PracticeEntry) (storage.PracticeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *Store) DeleteEntry(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || entry.OwnerID != ownerID {
		return storage.NotFound("entry %s", id)
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) ListEntries(_ context.Context, ownerID string, from, to time.Time) ([]storage.PracticeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.PracticeEntry
	for _, entry := range s.entries {
		if entry.OwnerID != ownerID {
			continue
		}
		if entry.Date.Before(from) || entry.Date.After(to) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
