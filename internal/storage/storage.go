// Package storage defines the persisted entities and the store interfaces
// implemented by the memory and postgres backends. The backend is chosen
// once at startup from configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// ErrorType classifies a storage error.
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Type: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a storage not-found error.
func IsNotFound(err error) bool {
	var serr *Error
	return errors.As(err, &serr) && serr.Type == ErrNotFound
}

// User is an account record. The password hash is bcrypt.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the per-user profile document.
type Profile struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Timezone    string    `json:"timezone"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Event is a concrete calendar entry: either standalone, or a persisted
// instance originating from a recurring template (RecurringEventID set).
type Event struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Location         string    `json:"location,omitempty"`
	Category         string    `json:"category,omitempty"`
	Priority         string    `json:"priority,omitempty"`
	Color            string    `json:"color,omitempty"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	Completed        bool      `json:"completed"`
	RecurringEventID string    `json:"recurringEventId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Modification overrides a single occurrence of a recurring template. It is
// keyed by the original, unmodified occurrence date; unset override fields
// fall back to the template's values.
type Modification struct {
	OriginalDate time.Time             `json:"originalDate"`
	StartTime    mo.Option[time.Time]  `json:"startTime"`
	EndTime      mo.Option[time.Time]  `json:"endTime"`
	Title        mo.Option[string]     `json:"title"`
	Description  mo.Option[string]     `json:"description"`
	Location     mo.Option[string]     `json:"location"`
}

// RecurringTemplate is a repeating event's invariant content. StartTime and
// EndTime describe the first occurrence; their difference is the duration
// applied to every generated occurrence.
type RecurringTemplate struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"ownerId"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Location       string         `json:"location,omitempty"`
	Category       string         `json:"category,omitempty"`
	Priority       string         `json:"priority,omitempty"`
	Color          string         `json:"color,omitempty"`
	Reminders      []int          `json:"reminders,omitempty"` // minutes before start
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	RuleText       string         `json:"ruleText"` // serialized recurrence rule
	ExceptionDates []time.Time    `json:"exceptionDates,omitempty"`
	Modifications  []Modification `json:"modifications,omitempty"`
	Archived       bool           `json:"archived"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Duration of one occurrence.
func (t RecurringTemplate) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// Transaction is a single financial movement. Positive amounts are income,
// negative amounts are spending.
type Transaction struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Note      string    `json:"note,omitempty"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// Budget caps spending for one category over a calendar month.
type Budget struct {
	ID       string  `json:"id"`
	OwnerID  string  `json:"ownerId"`
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
}

// PracticeKind names a spiritual practice.
type PracticeKind string

const (
	PracticePrayer    PracticeKind = "prayer"
	PracticeFasting   PracticeKind = "fasting"
	PracticeScripture PracticeKind = "scripture"
)

// PracticeEntry records one completed practice on a given day.
type PracticeEntry struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Kind      PracticeKind `json:"kind"`
	Note      string       `json:"note,omitempty"`
	Date      time.Time    `json:"date"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Users persists account records.
type Users interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// ListUserIDs returns every account id, for background sweeps.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Profiles persists profile documents.
type Profiles interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	PutProfile(ctx context.Context, profile Profile) (Profile, error)
}

// Events persists standalone events and recurring templates.
type Events interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, ownerID, id string) (Event, error)
	DeleteEvent(ctx context.Context, ownerID, id string) error
	// ListEvents returns the owner's events whose start time falls in
	// [from, to], ordered by start time.
	ListEvents(ctx context.Context, ownerID string, from, to time.Time) ([]Event, error)

	CreateTemplate(ctx context.Context, tmpl RecurringTemplate) (RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, tmpl RecurringTemplate) (RecurringTemplate, error)
	GetTemplate(ctx context.Context, ownerID, id string) (RecurringTemplate, error)
	DeleteTemplate(ctx context.Context, ownerID, id string) error
	ListTemplates(ctx context.Context, ownerID string) ([]RecurringTemplate, error)

	// DeleteEventsByTemplate removes persisted instances of a template
	// starting at or after the cutoff. Earlier instances stay as history.
	DeleteEventsByTemplate(ctx context.Context, ownerID, templateID string, from time.Time) error
}

// Finance persists transactions and budgets.
type Finance interface {
	CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id string) (Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) error
	ListTransactions(ctx context.Context, ownerID string, from, to time.Time) ([]Transaction, error)

	PutBudget(ctx context.Context, budget Budget) (Budget, error)
	ListBudgets(ctx context.Context, ownerID string) ([]Budget, error)
}

// Spiritual persists practice entries.
type Spiritual interface {
	CreateEntry(ctx context.Context, entry PracticeEntry) (PracticeEntry, error)
	DeleteEntry(ctx context.Context, ownerID, id string) error
	ListEntries(ctx context.Context, ownerID string, from, to time.Time) ([]PracticeEntry, error)
}

// Store is the full capability set a backend must provide.
type Store interface {
	Users
	Profiles
	Events
	Finance
	Spiritual
}
