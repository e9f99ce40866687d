// Package postgres is the PostgreSQL storage backend. Each entity is held
// as a JSONB document alongside the few columns the queries filter on.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lifedesk/internal/storage"
)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{db: db}, nil
}

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		doc        JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		start_time  TIMESTAMPTZ NOT NULL,
		template_id TEXT NOT NULL DEFAULT '',
		doc         JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS events_owner_start ON events (owner_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		doc        JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS templates_owner ON templates (owner_id)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id       TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		date     TIMESTAMPTZ NOT NULL,
		doc      JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_owner_date ON transactions (owner_id, date)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		id       TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		category TEXT NOT NULL,
		doc      JSONB NOT NULL,
		UNIQUE (owner_id, category)
	)`,
	`CREATE TABLE IF NOT EXISTS practice_entries (
		id       TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		date     TIMESTAMPTZ NOT NULL,
		doc      JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS practice_entries_owner_date ON practice_entries (owner_id, date)`,
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Users ----------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user storage.User) (storage.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	user.Email = strings.ToLower(user.Email)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return storage.User{}, &storage.Error{Type: storage.ErrAlreadyExists, Message: "email already registered", Err: err}
		}
		return storage.User{}, err
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (storage.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE id = $1
	`, id), id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = $1
	`, strings.ToLower(email)), email)
}

func (s *Store) scanUser(row *sql.Row, key string) (storage.User, error) {
	var user storage.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, storage.NotFound("user %s", key)
	}
	if err != nil {
		return storage.User{}, err
	}
	return user, nil
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Profiles -------------------------------------------------------------------

func (s *Store) GetProfile(ctx context.Context, userID string) (storage.Profile, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT doc FROM profiles WHERE user_id = $1
	`, userID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Profile{}, storage.NotFound("profile for user %s", userID)
	}
	if err != nil {
		return storage.Profile{}, err
	}

	var profile storage.Profile
	if err := json.Unmarshal(doc, &profile); err != nil {
		return storage.Profile{}, fmt.Errorf("decoding profile document: %w", err)
	}
	return profile, nil
}

func (s *Store) PutProfile(ctx context.Context, profile storage.Profile) (storage.Profile, error) {
	if profile.UserID == "" {
		return storage.Profile{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "profile user id is required"}
	}
	profile.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(profile)
	if err != nil {
		return storage.Profile{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, doc, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, profile.UserID, doc, profile.UpdatedAt)
	if err != nil {
		return storage.Profile{}, err
	}
	return profile, nil
}

// Events ---------------------------------------------------------------------

func (s *Store) CreateEvent(ctx context.Context, event storage.Event) (storage.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	return event, s.writeEvent(ctx, event, true)
}

func (s *Store) UpdateEvent(ctx context.Context, event storage.Event) (storage.Event, error) {
	existing, err := s.GetEvent(ctx, event.OwnerID, event.ID)
	if err != nil {
		return storage.Event{}, err
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now().UTC()
	return event, s.writeEvent(ctx, event, false)
}

func (s *Store) writeEvent(ctx context.Context, event storage.Event, insert bool) error {
	doc, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if insert {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO events (id, owner_id, start_time, template_id, doc)
			VALUES ($1, $2, $3, $4, $5)
		`, event.ID, event.OwnerID, event.StartTime, event.RecurringEventID, doc)
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE events SET start_time = $3, template_id = $4, doc = $5
		WHERE id = $1 AND owner_id = $2
	`, event.ID, event.OwnerID, event.StartTime, event.RecurringEventID, doc)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.NotFound("event %s", event.ID)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, ownerID, id string) (storage.Event, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT doc FROM events WHERE id = $1 AND owner_id = $2
	`, id, ownerID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Event{}, storage.NotFound("event %s", id)
	}
	if err != nil {
		return storage.Event{}, err
	}

	var event storage.Event
	if err := json.Unmarshal(doc, &event); err != nil {
		return storage.Event{}, fmt.Errorf("decoding event document: %w", err)
	}
	return event, nil
}

func (s *Store) DeleteEvent(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM events WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.NotFound("event %s", id)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, ownerID string, from, to time.Time) ([]storage.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM events
		WHERE owner_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time
	`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Event
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var event storage.Event
		if err := json.Unmarshal(doc, &event); err != nil {
			return nil, fmt.Errorf("decoding event document: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func (s *Store) DeleteEventsByTemplate(ctx context.Context, ownerID, templateID string, from time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM events
		WHERE owner_id = $1 AND template_id = $2 AND start_time >= $3
	`, ownerID, templateID, from)
	return err
}

// Templates ------------------------------------------------------------------

func (s *Store) CreateTemplate(ctx context.Context, tmpl storage.RecurringTemplate) (storage.RecurringTemplate, error) {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	doc, err := json.Marshal(tmpl)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, owner_id, created_at, doc) VALUES ($1, $2, $3, $4)
	`, tmpl.ID, tmpl.OwnerID, tmpl.CreatedAt, doc)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	return tmpl, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, tmpl storage.RecurringTemplate) (storage.RecurringTemplate, error) {
	existing, err := s.GetTemplate(ctx, tmpl.OwnerID, tmpl.ID)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	tmpl.CreatedAt = existing.CreatedAt
	tmpl.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(tmpl)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE templates SET doc = $3 WHERE id = $1 AND owner_id = $2
	`, tmpl.ID, tmpl.OwnerID, doc)
	if err != nil {
		return storage.RecurringTemplate{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.RecurringTemplate{}, storage.NotFound("template %s", tmpl.ID)
	}
	return tmpl, nil
}

func (s *Store) GetTemplate(ctx context.Context, ownerID, id string) (storage.RecurringTemplate, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT doc FROM templates WHERE id = $1 AND owner_id = $2
	`, id, ownerID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RecurringTemplate{}, storage.NotFound("template %s", id)
	}
	if err != nil {
		return storage.RecurringTemplate{}, err
	}

	var tmpl storage.RecurringTemplate
	if err := json.Unmarshal(doc, &tmpl); err != nil {
		return storage.RecurringTemplate{}, fmt.Errorf("decoding template document: %w", err)
	}
	return tmpl, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM templates WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.NotFound("template %s", id)
	}
	return nil
}

func (s *Store) ListTemplates(ctx context.Context, ownerID string) ([]storage.RecurringTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM templates WHERE owner_id = $1 ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.RecurringTemplate
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var tmpl storage.RecurringTemplate
		if err := json.Unmarshal(doc, &tmpl); err != nil {
			return nil, fmt.Errorf("decoding template document: %w", err)
		}
		out = append(out, tmpl)
	}
	return out, rows.Err()
}

// Finance --------------------------------------------------------------------

func (s *Store) CreateTransaction(ctx context.Context, tx storage.Transaction) (storage.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.CreatedAt = time.Now().UTC()

	doc, err := json.Marshal(tx)
	if err != nil {
		return storage.Transaction{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, date, doc) VALUES ($1, $2, $3, $4)
	`, tx.ID, tx.OwnerID, tx.Date, doc)
	if err != nil {
		return storage.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, ownerID, id string) (storage.Transaction, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT doc FROM transactions WHERE id = $1 AND owner_id = $2
	`, id, ownerID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Transaction{}, storage.NotFound("transaction %s", id)
	}
	if err != nil {
		return storage.Transaction{}, err
	}

	var tx storage.Transaction
	if err := json.Unmarshal(doc, &tx); err != nil {
		return storage.Transaction{}, fmt.Errorf("decoding transaction document: %w", err)
	}
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM transactions WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.NotFound("transaction %s", id)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string, from, to time.Time) ([]storage.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM transactions
		WHERE owner_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Transaction
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var tx storage.Transaction
		if err := json.Unmarshal(doc, &tx); err != nil {
			return nil, fmt.Errorf("decoding transaction document: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) PutBudget(ctx context.Context, budget storage.Budget) (storage.Budget, error) {
	if budget.ID == "" {
		budget.ID = uuid.NewString()
	}
	doc, err := json.Marshal(budget)
	if err != nil {
		return storage.Budget{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, owner_id, category, doc) VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, category) DO UPDATE SET doc = EXCLUDED.doc
	`, budget.ID, budget.OwnerID, strings.ToLower(budget.Category), doc)
	if err != nil {
		return storage.Budget{}, err
	}
	return budget, nil
}

func (s *Store) ListBudgets(ctx context.Context, ownerID string) ([]storage.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM budgets WHERE owner_id = $1 ORDER BY category
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Budget
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var budget storage.Budget
		if err := json.Unmarshal(doc, &budget); err != nil {
			return nil, fmt.Errorf("decoding budget document: %w", err)
		}
		out = append(out, budget)
	}
	return out, rows.Err()
}

// Spiritual ------------------------------------------------------------------

func (s *Store) CreateEntry(ctx context.Context, entry storage.PracticeEntry) (storage.PracticeEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	doc, err := json.Marshal(entry)
	if err != nil {
		return storage.PracticeEntry{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO practice_entries (id, owner_id, date, doc) VALUES ($1, $2, $3, $4)
	`, entry.ID, entry.OwnerID, entry.Date, doc)
	if err != nil {
		return storage.PracticeEntry{}, err
	}
	return entry, nil
}

func (s *Store) DeleteEntry(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM practice_entries WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.NotFound("entry %s", id)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, ownerID string, from, to time.Time) ([]storage.PracticeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM practice_entries
		WHERE owner_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.PracticeEntry
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var entry storage.PracticeEntry
		if err := json.Unmarshal(doc, &entry); err != nil {
			return nil, fmt.Errorf("decoding practice entry document: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
