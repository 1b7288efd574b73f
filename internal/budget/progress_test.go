package budget

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
	"github.com/okane-app/okane/internal/storage"
)

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func foodBudget(amount int64) *model.Budget {
	return &model.Budget{
		UserID:      "user1",
		Name:        "groceries",
		Amount:      decimal.NewFromInt(amount),
		Period:      model.PeriodMonthly,
		StartDate:   day(1),
		EndDate:     day(30),
		CategoryIDs: []string{"food"},
	}
}

func spend(d time.Time, amount int64, category string) model.Transaction {
	return model.Transaction{
		Type:       model.TypeExpense,
		Amount:     decimal.NewFromInt(amount),
		Date:       d,
		CategoryID: category,
	}
}

func TestEvaluateSumsCoveredExpenses(t *testing.T) {
	b := foodBudget(10000)
	txns := []model.Transaction{
		spend(day(5), 2000, "food"),
		spend(day(12), 3000, "food"),
		// Different category, must not count.
		spend(day(13), 1000, "transport"),
	}

	progress := Evaluate(b, txns, day(15))

	assert.True(t, progress.Spent.Equal(decimal.NewFromInt(5000)))
	assert.True(t, progress.Remaining.Equal(decimal.NewFromInt(5000)))
	assert.True(t, progress.PercentUsed.Equal(decimal.NewFromInt(50)))
	assert.False(t, progress.Undefined)
	assert.False(t, progress.Alert)
}

func TestEvaluateWindowIsInclusive(t *testing.T) {
	b := foodBudget(10000)
	txns := []model.Transaction{
		spend(day(1), 100, "food"),  // first day counts
		spend(day(30), 200, "food"), // last day counts
		spend(time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), 999, "food"), // before start
		spend(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), 999, "food"),  // after end
	}

	progress := Evaluate(b, txns, day(30))
	assert.True(t, progress.Spent.Equal(decimal.NewFromInt(300)))
}

func TestEvaluateOpenEndedBudgetClosesAtNow(t *testing.T) {
	b := foodBudget(10000)
	b.EndDate = time.Time{}
	txns := []model.Transaction{
		spend(day(10), 100, "food"),
		// After "now": not yet counted.
		spend(day(20), 999, "food"),
	}

	progress := Evaluate(b, txns, day(15))
	assert.True(t, progress.Spent.Equal(decimal.NewFromInt(100)))
}

func TestEvaluateIgnoresNonExpenses(t *testing.T) {
	b := foodBudget(10000)
	txns := []model.Transaction{
		spend(day(5), 500, "food"),
		{Type: model.TypeIncome, Amount: decimal.NewFromInt(9999), Date: day(6), CategoryID: "food"},
		{Type: model.TypeTransfer, Amount: decimal.NewFromInt(9999), Date: day(7), CategoryID: "food"},
	}

	progress := Evaluate(b, txns, day(15))
	assert.True(t, progress.Spent.Equal(decimal.NewFromInt(500)),
		"only expenses count toward a spending ceiling")
}

func TestEvaluateOverBudgetGoesNegative(t *testing.T) {
	b := foodBudget(1000)
	txns := []model.Transaction{spend(day(5), 1500, "food")}

	progress := Evaluate(b, txns, day(15))
	assert.True(t, progress.Remaining.Equal(decimal.NewFromInt(-500)))
	assert.True(t, progress.PercentUsed.Equal(decimal.NewFromInt(150)))
}

func TestEvaluateZeroCeilingIsUndefined(t *testing.T) {
	b := foodBudget(0)
	txns := []model.Transaction{spend(day(5), 100, "food")}

	progress := Evaluate(b, txns, day(15))
	assert.True(t, progress.Undefined)
	assert.True(t, progress.PercentUsed.IsZero(),
		"no percentage can be computed against a zero ceiling")
	assert.False(t, progress.Alert)
}

func TestEvaluateNotifyThreshold(t *testing.T) {
	b := foodBudget(1000)
	b.NotifyThreshold = decimal.NewFromInt(80)

	below := Evaluate(b, []model.Transaction{spend(day(5), 700, "food")}, day(15))
	assert.False(t, below.Alert)

	at := Evaluate(b, []model.Transaction{spend(day(5), 800, "food")}, day(15))
	assert.True(t, at.Alert)
}

func TestEvaluateFromStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	accountID, err := store.CreateAccount(ctx, &model.Account{
		UserID: "user1", Name: "Checking", Type: model.AccountTypeBank,
	})
	require.NoError(t, err)

	b := foodBudget(10000)
	budgetID, err := store.CreateBudget(ctx, b)
	require.NoError(t, err)

	seed := []model.Transaction{
		{UserID: "user1", AccountID: accountID, Type: model.TypeExpense,
			Amount: decimal.NewFromInt(2000), Date: day(5), CategoryID: "food"},
		{UserID: "user1", AccountID: accountID, Type: model.TypeExpense,
			Amount: decimal.NewFromInt(3000), Date: day(12), CategoryID: "food"},
		{UserID: "user1", AccountID: accountID, Type: model.TypeExpense,
			Amount: decimal.NewFromInt(1000), Date: day(13), CategoryID: "transport"},
	}
	for i := range seed {
		require.NoError(t, store.Atomic(ctx, func(tx service.Tx) error {
			return tx.SaveTransaction(ctx, &seed[i])
		}))
	}

	progress, err := EvaluateFromStore(ctx, store, budgetID, day(15))
	require.NoError(t, err)
	assert.True(t, progress.Spent.Equal(decimal.NewFromInt(5000)))
	assert.True(t, progress.Remaining.Equal(decimal.NewFromInt(5000)))
}

func TestEvaluateFromStoreMissingBudget(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	_, err := EvaluateFromStore(ctx, store, "no-such-budget", day(1))
	assert.ErrorIs(t, err, common.ErrBudgetNotFound)
}
