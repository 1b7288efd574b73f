package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
	"github.com/okane-app/okane/internal/storage"
)

func expense(day time.Time, amount int64, category string) model.Transaction {
	return model.Transaction{
		Type:       model.TypeExpense,
		Amount:     decimal.NewFromInt(amount),
		Date:       day,
		CategoryID: category,
	}
}

func income(day time.Time, amount int64) model.Transaction {
	return model.Transaction{
		Type:   model.TypeIncome,
		Amount: decimal.NewFromInt(amount),
		Date:   day,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateMonthlyExpenses(t *testing.T) {
	txns := []model.Transaction{
		expense(day(2024, 1, 5), 1000, "food"),
		expense(day(2024, 1, 20), 200, "transport"),
		expense(day(2024, 2, 3), 200, "food"),
		income(day(2024, 1, 10), 50000),
	}

	summary := Aggregate(txns, model.ReportExpense, model.GroupByMonth)

	require.Len(t, summary.Grouped, 2)
	assert.True(t, summary.Grouped["2024-01"].Equal(decimal.NewFromInt(-1200)))
	assert.True(t, summary.Grouped["2024-02"].Equal(decimal.NewFromInt(-200)))
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(-1400)))
}

func TestAggregateGroupSumsMatchTotal(t *testing.T) {
	txns := []model.Transaction{
		expense(day(2024, 3, 1), 100, "food"),
		expense(day(2024, 3, 8), 250, "food"),
		income(day(2024, 3, 15), 900),
		expense(day(2024, 4, 2), 50, "transport"),
	}

	for _, groupBy := range []model.GroupBy{
		model.GroupByDay, model.GroupByWeek, model.GroupByMonth,
		model.GroupByYear, model.GroupByCategory,
	} {
		summary := Aggregate(txns, model.ReportBalance, groupBy)

		sum := decimal.Zero
		for _, v := range summary.Grouped {
			sum = sum.Add(v)
		}
		assert.True(t, sum.Equal(summary.TotalAmount),
			"group sums must equal the total for %s grouping", groupBy)
	}
}

func TestAggregateWeekKeysAreSundayAligned(t *testing.T) {
	// 2024-01-10 is a Wednesday; its week starts Sunday 2024-01-07.
	txns := []model.Transaction{
		expense(day(2024, 1, 10), 100, "food"),
		// Sunday itself buckets into the same week.
		expense(day(2024, 1, 7), 50, "food"),
		// Saturday the 6th belongs to the previous week.
		expense(day(2024, 1, 6), 25, "food"),
	}

	summary := Aggregate(txns, model.ReportExpense, model.GroupByWeek)

	require.Len(t, summary.Grouped, 2)
	assert.True(t, summary.Grouped["2024-01-07"].Equal(decimal.NewFromInt(-150)))
	assert.True(t, summary.Grouped["2023-12-31"].Equal(decimal.NewFromInt(-25)))
}

func TestAggregateBalanceSumsItsInput(t *testing.T) {
	// The balance branch counts whatever it is handed; transfer
	// exclusion is the query layer's job.
	txns := []model.Transaction{
		income(day(2024, 1, 1), 1000),
		expense(day(2024, 1, 2), 300, "food"),
		{
			Type:        model.TypeTransfer,
			Amount:      decimal.NewFromInt(500),
			Date:        day(2024, 1, 3),
			AccountID:   "a",
			ToAccountID: "b",
		},
	}

	summary := Aggregate(txns, model.ReportBalance, model.GroupByMonth)
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(1200)),
		"an explicitly supplied transfer must contribute positively")
}

func TestRunBalanceReportTransferHandling(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	seed := []model.Transaction{
		{UserID: "user1", AccountID: "a", Type: model.TypeIncome,
			Amount: decimal.NewFromInt(1000), Date: day(2024, 1, 1)},
		{UserID: "user1", AccountID: "a", Type: model.TypeExpense,
			Amount: decimal.NewFromInt(300), Date: day(2024, 1, 2)},
		{UserID: "user1", AccountID: "a", ToAccountID: "b", Type: model.TypeTransfer,
			Amount: decimal.NewFromInt(500), Date: day(2024, 1, 3)},
	}
	for i := range seed {
		require.NoError(t, store.Atomic(ctx, func(tx service.Tx) error {
			return tx.SaveTransaction(ctx, &seed[i])
		}))
	}

	base := model.Report{
		UserID:  "user1",
		Name:    "balance",
		Type:    model.ReportBalance,
		GroupBy: model.GroupByMonth,
	}

	// Default: transfers shuffle money between own accounts and are left out.
	rpt := base
	summary, err := Run(ctx, store, &rpt)
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(700)))

	// Naming transfer in the type filter opts it in.
	withTransfers := base
	withTransfers.Filters.Types = []model.TransactionType{
		model.TypeIncome, model.TypeExpense, model.TypeTransfer,
	}
	summary, err = Run(ctx, store, &withTransfers)
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(1200)))
}

func TestRunBudgetReportEvaluatesEachBudget(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	start := time.Now().UTC().AddDate(0, 0, -7)

	mkBudget := func(name string, category string, amount int64) {
		_, err := store.CreateBudget(ctx, &model.Budget{
			UserID:      "user1",
			Name:        name,
			Amount:      decimal.NewFromInt(amount),
			Period:      model.PeriodMonthly,
			StartDate:   start,
			CategoryIDs: []string{category},
		})
		require.NoError(t, err)
	}
	mkBudget("groceries", "food", 10000)
	mkBudget("commute", "transport", 5000)

	seed := []model.Transaction{
		{UserID: "user1", AccountID: "a", Type: model.TypeExpense,
			Amount: decimal.NewFromInt(2000), Date: start.AddDate(0, 0, 1), CategoryID: "food"},
		{UserID: "user1", AccountID: "a", Type: model.TypeExpense,
			Amount: decimal.NewFromInt(500), Date: start.AddDate(0, 0, 2), CategoryID: "transport"},
	}
	for i := range seed {
		require.NoError(t, store.Atomic(ctx, func(tx service.Tx) error {
			return tx.SaveTransaction(ctx, &seed[i])
		}))
	}

	summary, err := Run(ctx, store, &model.Report{
		UserID:  "user1",
		Name:    "budgets",
		Type:    model.ReportBudget,
		GroupBy: model.GroupByCategory,
	})
	require.NoError(t, err)

	require.Len(t, summary.Grouped, 2)
	assert.True(t, summary.Grouped["groceries"].Equal(decimal.NewFromInt(2000)))
	assert.True(t, summary.Grouped["commute"].Equal(decimal.NewFromInt(500)))
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(2500)))
	assert.Empty(t, summary.Trends)
}

func TestAggregateTypeFilters(t *testing.T) {
	txns := []model.Transaction{
		income(day(2024, 1, 1), 1000),
		expense(day(2024, 1, 2), 300, "food"),
	}

	expenses := Aggregate(txns, model.ReportExpense, model.GroupByMonth)
	assert.True(t, expenses.TotalAmount.Equal(decimal.NewFromInt(-300)))

	incomes := Aggregate(txns, model.ReportIncome, model.GroupByMonth)
	assert.True(t, incomes.TotalAmount.Equal(decimal.NewFromInt(1000)))
}

func TestAggregateTrends(t *testing.T) {
	txns := []model.Transaction{
		expense(day(2024, 1, 1), 100, "food"),
		expense(day(2024, 1, 1), 50, "food"),
		expense(day(2024, 1, 5), 25, "food"),
	}

	summary := Aggregate(txns, model.ReportExpense, model.GroupByDay)

	require.Len(t, summary.Trends, 3)
	assert.True(t, summary.Trends[0].Running.Equal(decimal.NewFromInt(-100)))
	assert.True(t, summary.Trends[1].Running.Equal(decimal.NewFromInt(-150)),
		"equal dates must keep input order in the trend series")
	assert.True(t, summary.Trends[2].Running.Equal(decimal.NewFromInt(-175)))
}

func TestAggregateCategoryGroupingHasNoTrends(t *testing.T) {
	txns := []model.Transaction{
		expense(day(2024, 1, 1), 100, "food"),
		expense(day(2024, 1, 2), 50, "transport"),
	}

	summary := Aggregate(txns, model.ReportExpense, model.GroupByCategory)

	assert.Empty(t, summary.Trends)
	assert.True(t, summary.Grouped["food"].Equal(decimal.NewFromInt(-100)))
	assert.True(t, summary.Grouped["transport"].Equal(decimal.NewFromInt(-50)))
}

func TestAggregateEmptyInput(t *testing.T) {
	summary := Aggregate(nil, model.ReportExpense, model.GroupByMonth)

	assert.Empty(t, summary.Grouped)
	assert.Empty(t, summary.Trends)
	assert.True(t, summary.TotalAmount.IsZero())
}

func TestRunAppliesSavedFilters(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	accountID, err := store.CreateAccount(ctx, &model.Account{
		UserID: "user1", Name: "Checking", Type: model.AccountTypeBank,
	})
	require.NoError(t, err)

	seed := []model.Transaction{
		{UserID: "user1", AccountID: accountID, Type: model.TypeExpense,
			Amount: decimal.NewFromInt(100), Date: day(2024, 1, 5), CategoryID: "food"},
		{UserID: "user1", AccountID: accountID, Type: model.TypeExpense,
			Amount: decimal.NewFromInt(40), Date: day(2024, 1, 8), CategoryID: "transport"},
		// Outside the report window.
		{UserID: "user1", AccountID: accountID, Type: model.TypeExpense,
			Amount: decimal.NewFromInt(999), Date: day(2024, 3, 1), CategoryID: "food"},
	}
	for i := range seed {
		require.NoError(t, store.Atomic(ctx, func(tx service.Tx) error {
			return tx.SaveTransaction(ctx, &seed[i])
		}))
	}

	rpt := &model.Report{
		UserID:    "user1",
		Name:      "january food",
		Type:      model.ReportExpense,
		GroupBy:   model.GroupByMonth,
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 1, 31),
		Filters:   model.ReportFilters{CategoryIDs: []string{"food"}},
	}

	summary, err := Run(ctx, store, rpt)
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(-100)))
}

func TestRunRejectsInvalidReport(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	_, err := Run(ctx, store, &model.Report{Type: "bogus", GroupBy: model.GroupByMonth})
	assert.ErrorIs(t, err, model.ErrInvalidReportType)
}

func TestWindowForPeriod(t *testing.T) {
	now := time.Date(2024, 5, 17, 12, 30, 0, 0, time.UTC)

	start, end := WindowForPeriod(model.PeriodMonthly, now)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), start)
	assert.True(t, end.Before(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.After(time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)))

	start, end = WindowForPeriod(model.PeriodYearly, now)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.True(t, end.Before(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}
