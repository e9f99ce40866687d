// Package spiritual records daily practices and computes streaks.
package spiritual

import (
	"context"
	"time"

	"lifedesk/internal/storage"
)

// EntryInput records one practice on a given day.
type EntryInput struct {
	Kind storage.PracticeKind `json:"kind"`
	Note string               `json:"note"`
	Date time.Time            `json:"date"`
}

// Streak summarizes recent consistency for the dashboard.
type Streak struct {
	CurrentDays int       `json:"currentDays"`
	LastEntry   time.Time `json:"lastEntry"`
	Total30Days int       `json:"total30Days"`
}

type Service struct {
	store storage.Spiritual
}

func NewService(store storage.Spiritual) *Service {
	return &Service{store: store}
}

var validKinds = map[storage.PracticeKind]bool{
	storage.PracticePrayer:    true,
	storage.PracticeFasting:   true,
	storage.PracticeScripture: true,
}

func (s *Service) CreateEntry(ctx context.Context, ownerID string, in EntryInput) (storage.PracticeEntry, error) {
	if !validKinds[in.Kind] {
		return storage.PracticeEntry{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "unknown practice kind"}
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	return s.store.CreateEntry(ctx, storage.PracticeEntry{
		OwnerID: ownerID,
		Kind:    in.Kind,
		Note:    in.Note,
		Date:    in.Date,
	})
}

func (s *Service) DeleteEntry(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteEntry(ctx, ownerID, id)
}

func (s *Service) ListEntries(ctx context.Context, ownerID string, from, to time.Time) ([]storage.PracticeEntry, error) {
	return s.store.ListEntries(ctx, ownerID, from, to)
}

// CurrentStreak counts consecutive practiced days ending today or
// yesterday. Days are compared in UTC.
func (s *Service) CurrentStreak(ctx context.Context, ownerID string, now time.Time) (Streak, error) {
	now = now.UTC()
	from := now.AddDate(0, 0, -30)
	entries, err := s.store.ListEntries(ctx, ownerID, from, now)
	if err != nil {
		return Streak{}, err
	}

	practiced := make(map[string]bool, len(entries))
	var last time.Time
	for _, entry := range entries {
		practiced[entry.Date.UTC().Format("2006-01-02")] = true
		if entry.Date.After(last) {
			last = entry.Date
		}
	}

	streak := Streak{LastEntry: last, Total30Days: len(practiced)}

	day := now
	// A streak survives until a day with no entry; today without an entry
	// yet does not break it.
	if !practiced[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}
	for practiced[day.Format("2006-01-02")] {
		streak.CurrentDays++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}
