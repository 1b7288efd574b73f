// Package report turns flat transaction lists into grouped sums and
// running-total trend series.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/budget"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
)

// Aggregate produces a Summary from transactions. It is a pure function
// of its inputs and safe to recompute.
//
// Expense reports include only expenses, income reports only income;
// balance reports sum every transaction they are given, so the caller
// decides whether transfers are in the input (Run excludes them unless
// the report's type filter names them). Expenses contribute negatively,
// everything else positively. The running total
// accumulates in input order, so callers must supply transactions
// sorted by date ascending for trend correctness; store queries already
// return that order.
func Aggregate(transactions []model.Transaction, reportType model.ReportType, groupBy model.GroupBy) model.Summary {
	summary := model.Summary{
		Grouped: make(map[string]decimal.Decimal),
	}

	for _, txn := range transactions {
		if !contributes(&txn, reportType) {
			continue
		}

		amount := txn.SignedAmount()
		summary.TotalAmount = summary.TotalAmount.Add(amount)

		key := groupKey(&txn, groupBy)
		summary.Grouped[key] = summary.Grouped[key].Add(amount)

		// Category grouping has no meaningful time axis, so no trend
		// series is produced for it.
		if groupBy != model.GroupByCategory {
			summary.Trends = append(summary.Trends, model.TrendPoint{
				Date:    txn.Date,
				Running: summary.TotalAmount,
			})
		}
	}

	// Stable: relative order among equal dates is the input order.
	sort.SliceStable(summary.Trends, func(i, j int) bool {
		return summary.Trends[i].Date.Before(summary.Trends[j].Date)
	})

	return summary
}

func contributes(txn *model.Transaction, reportType model.ReportType) bool {
	switch reportType {
	case model.ReportExpense:
		return txn.Type == model.TypeExpense
	case model.ReportIncome:
		return txn.Type == model.TypeIncome
	case model.ReportBalance:
		return true
	default:
		return false
	}
}

// groupKey derives the bucket for a transaction: a calendar date for
// daily grouping, the Sunday-aligned week start for weekly, YYYY-MM for
// monthly, YYYY for yearly, and the raw category id for category
// grouping.
func groupKey(txn *model.Transaction, groupBy model.GroupBy) string {
	switch groupBy {
	case model.GroupByDay:
		return txn.Date.Format("2006-01-02")
	case model.GroupByWeek:
		weekStart := txn.Date.AddDate(0, 0, -int(txn.Date.Weekday()))
		return weekStart.Format("2006-01-02")
	case model.GroupByMonth:
		return txn.Date.Format("2006-01")
	case model.GroupByYear:
		return txn.Date.Format("2006")
	case model.GroupByCategory:
		return txn.CategoryID
	default:
		return ""
	}
}

// Run executes a saved report definition: it loads the matching
// transactions from the store (date ascending) and aggregates them.
// Budget-type reports instead evaluate each of the user's budgets.
//
// A balance report with no type filter runs over income and expenses
// only; transfers move money between the user's own accounts and count
// only when the report's type filter names them.
func Run(ctx context.Context, store service.Storage, rpt *model.Report) (model.Summary, error) {
	if err := rpt.Validate(); err != nil {
		return model.Summary{}, err
	}
	if rpt.Type == model.ReportBudget {
		return runBudgetReport(ctx, store, rpt)
	}

	filter := service.TransactionFilter{
		UserID:      rpt.UserID,
		AccountIDs:  rpt.Filters.AccountIDs,
		CategoryIDs: rpt.Filters.CategoryIDs,
		Tags:        rpt.Filters.Tags,
		Types:       rpt.Filters.Types,
	}
	if rpt.Type == model.ReportBalance && len(filter.Types) == 0 {
		filter.Types = []model.TransactionType{model.TypeIncome, model.TypeExpense}
	}
	if !rpt.StartDate.IsZero() {
		start := rpt.StartDate
		filter.Start = &start
	}
	if !rpt.EndDate.IsZero() {
		end := rpt.EndDate
		filter.End = &end
	}

	transactions, err := store.ListTransactions(ctx, filter)
	if err != nil {
		return model.Summary{}, fmt.Errorf("run report: %w", err)
	}

	return Aggregate(transactions, rpt.Type, rpt.GroupBy), nil
}

// runBudgetReport evaluates every budget the user has and reports the
// spend against each, keyed by budget name. Budgets have no meaningful
// time axis here, so no trend series is produced.
func runBudgetReport(ctx context.Context, store service.Storage, rpt *model.Report) (model.Summary, error) {
	budgets, err := store.ListBudgets(ctx, rpt.UserID)
	if err != nil {
		return model.Summary{}, fmt.Errorf("run budget report: %w", err)
	}

	summary := model.Summary{
		Grouped: make(map[string]decimal.Decimal, len(budgets)),
	}
	now := time.Now()
	for _, b := range budgets {
		progress, err := budget.EvaluateFromStore(ctx, store, b.ID, now)
		if err != nil {
			return model.Summary{}, fmt.Errorf("run budget report: %w", err)
		}
		summary.Grouped[b.Name] = progress.Spent
		summary.TotalAmount = summary.TotalAmount.Add(progress.Spent)
	}
	return summary, nil
}

// WindowForPeriod returns the inclusive window for a report covering
// the period that contains now: the current calendar month or year.
func WindowForPeriod(period model.BudgetPeriod, now time.Time) (start, end time.Time) {
	switch period {
	case model.PeriodYearly:
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	default:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}
	return start, end
}
