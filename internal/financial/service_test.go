package financial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedesk/internal/storage"
	"lifedesk/internal/storage/memory"
)

func TestCreateTransactionValidation(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, "alice", TransactionInput{Amount: 0, Category: "food"})
	var storeErr *storage.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, storage.ErrInvalidInput, storeErr.Type)

	_, err = svc.CreateTransaction(ctx, "alice", TransactionInput{Amount: -10})
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, storage.ErrInvalidInput, storeErr.Type)
}

func TestCreateTransactionNormalizesCategory(t *testing.T) {
	svc := NewService(memory.New())

	tx, err := svc.CreateTransaction(context.Background(), "alice", TransactionInput{
		Amount:   -42.50,
		Category: "Food",
	})
	require.NoError(t, err)
	assert.Equal(t, "food", tx.Category)
	assert.False(t, tx.Date.IsZero(), "missing date defaults to now")
}

func TestPutBudgetValidation(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	_, err := svc.PutBudget(ctx, "alice", "", 100)
	var storeErr *storage.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, storage.ErrInvalidInput, storeErr.Type)

	_, err = svc.PutBudget(ctx, "alice", "food", 0)
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, storage.ErrInvalidInput, storeErr.Type)

	budget, err := svc.PutBudget(ctx, "alice", "Food", 300)
	require.NoError(t, err)
	assert.Equal(t, "food", budget.Category)
}

func TestMonthSummary(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()
	may := func(day int) time.Time { return time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC) }

	seed := []TransactionInput{
		{Amount: 3000, Category: "salary", Date: may(1)},
		{Amount: -600, Category: "rent", Date: may(2)},
		{Amount: -300, Category: "food", Date: may(10)},
		{Amount: -100, Category: "food", Date: may(20)},
		// Outside the month, must not count.
		{Amount: -999, Category: "food", Date: time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)},
	}
	for _, in := range seed {
		_, err := svc.CreateTransaction(ctx, "alice", in)
		require.NoError(t, err)
	}
	_, err := svc.PutBudget(ctx, "alice", "food", 500)
	require.NoError(t, err)

	summary, err := svc.MonthSummary(ctx, "alice", may(15))
	require.NoError(t, err)

	assert.Equal(t, 3000.0, summary.Income)
	assert.Equal(t, 1000.0, summary.Spent)
	assert.Equal(t, 2000.0, summary.Net)

	require.Len(t, summary.ByCategory, 2)
	// Sorted by spending, largest first.
	assert.Equal(t, "rent", summary.ByCategory[0].Category)
	assert.Equal(t, 600.0, summary.ByCategory[0].Spent)
	assert.Equal(t, 60.0, summary.ByCategory[0].Percent)
	assert.Equal(t, "food", summary.ByCategory[1].Category)
	assert.Equal(t, 400.0, summary.ByCategory[1].Spent)
	assert.Equal(t, 40.0, summary.ByCategory[1].Percent)
	assert.Equal(t, 500.0, summary.ByCategory[1].Limit)
}

func TestMonthSummaryEmpty(t *testing.T) {
	svc := NewService(memory.New())

	summary, err := svc.MonthSummary(context.Background(), "alice", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, summary.Income)
	assert.Zero(t, summary.Spent)
	assert.Empty(t, summary.ByCategory)
}
