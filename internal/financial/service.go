// Package financial tracks transactions and budgets and computes the
// monthly summary shown on the dashboard.
package financial

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"lifedesk/internal/storage"
)

// TransactionInput is the payload for recording a movement. Negative
// amounts are spending, positive amounts income.
type TransactionInput struct {
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	Note     string    `json:"note"`
	Date     time.Time `json:"date"`
}

// CategoryBreakdown is one category's share of a period's spending.
type CategoryBreakdown struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
	Percent  float64 `json:"percent"`
	Limit    float64 `json:"limit,omitempty"`
}

// Summary aggregates one calendar month.
type Summary struct {
	From       time.Time           `json:"from"`
	To         time.Time           `json:"to"`
	Income     float64             `json:"income"`
	Spent      float64             `json:"spent"`
	Net        float64             `json:"net"`
	ByCategory []CategoryBreakdown `json:"byCategory"`
}

type Service struct {
	store storage.Finance
}

func NewService(store storage.Finance) *Service {
	return &Service{store: store}
}

func (s *Service) CreateTransaction(ctx context.Context, ownerID string, in TransactionInput) (storage.Transaction, error) {
	if in.Amount == 0 {
		return storage.Transaction{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "amount cannot be zero"}
	}
	if in.Category == "" {
		return storage.Transaction{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "category is required"}
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	return s.store.CreateTransaction(ctx, storage.Transaction{
		OwnerID:  ownerID,
		Amount:   in.Amount,
		Category: strings.ToLower(in.Category),
		Note:     in.Note,
		Date:     in.Date,
	})
}

func (s *Service) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteTransaction(ctx, ownerID, id)
}

func (s *Service) ListTransactions(ctx context.Context, ownerID string, from, to time.Time) ([]storage.Transaction, error) {
	return s.store.ListTransactions(ctx, ownerID, from, to)
}

func (s *Service) PutBudget(ctx context.Context, ownerID, category string, limit float64) (storage.Budget, error) {
	if category == "" {
		return storage.Budget{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "category is required"}
	}
	if limit <= 0 {
		return storage.Budget{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "limit must be positive"}
	}
	return s.store.PutBudget(ctx, storage.Budget{
		OwnerID:  ownerID,
		Category: strings.ToLower(category),
		Limit:    limit,
	})
}

func (s *Service) ListBudgets(ctx context.Context, ownerID string) ([]storage.Budget, error) {
	return s.store.ListBudgets(ctx, ownerID)
}

// MonthSummary aggregates the calendar month containing the given time.
func (s *Service) MonthSummary(ctx context.Context, ownerID string, at time.Time) (Summary, error) {
	at = at.UTC()
	from := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	transactions, err := s.store.ListTransactions(ctx, ownerID, from, to)
	if err != nil {
		return Summary{}, err
	}
	budgets, err := s.store.ListBudgets(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}
	limits := make(map[string]float64, len(budgets))
	for _, budget := range budgets {
		limits[budget.Category] = budget.Limit
	}

	summary := Summary{From: from, To: to}
	spentByCategory := make(map[string]float64)
	for _, tx := range transactions {
		if tx.Amount >= 0 {
			summary.Income += tx.Amount
			continue
		}
		spent := -tx.Amount
		summary.Spent += spent
		spentByCategory[tx.Category] += spent
	}
	summary.Net = summary.Income - summary.Spent

	for category, spent := range spentByCategory {
		entry := CategoryBreakdown{
			Category: category,
			Spent:    spent,
			Limit:    limits[category],
		}
		if summary.Spent > 0 {
			entry.Percent = math.Round(spent/summary.Spent*1000) / 10
		}
		summary.ByCategory = append(summary.ByCategory, entry)
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Spent > summary.ByCategory[j].Spent
	})
	return summary, nil
}
