// Package budget answers "how much of this budget has been spent".
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
)

var oneHundred = decimal.NewFromInt(100)

// Progress is the evaluated state of one budget.
type Progress struct {
	BudgetAmount decimal.Decimal
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	PercentUsed  decimal.Decimal
	// Undefined is set when the budget ceiling is zero or negative:
	// a percentage cannot be computed, and PercentUsed is left at zero
	// rather than propagating a non-numeric value.
	Undefined bool
	// Alert is set when a notification threshold is configured and
	// PercentUsed has reached it.
	Alert bool
}

// Evaluate computes budget progress from the supplied transactions.
// Pure function: the budget is never mutated and the store is not
// consulted.
//
// A transaction counts toward spend iff its category is in the budget's
// category set, its date falls inside [start, end ?? now] inclusive,
// and it is an expense. Remaining may go negative; over-budget is
// representable, not clamped.
func Evaluate(b *model.Budget, transactions []model.Transaction, now time.Time) Progress {
	start, end := b.Window(now)

	spent := decimal.Zero
	for _, txn := range transactions {
		if txn.Type != model.TypeExpense {
			continue
		}
		if !b.Covers(txn.CategoryID) {
			continue
		}
		if txn.Date.Before(start) || txn.Date.After(end) {
			continue
		}
		spent = spent.Add(txn.Amount)
	}

	progress := Progress{
		BudgetAmount: b.Amount,
		Spent:        spent,
		Remaining:    b.Amount.Sub(spent),
	}

	if b.Amount.IsPositive() {
		progress.PercentUsed = spent.Div(b.Amount).Mul(oneHundred)
	} else {
		progress.Undefined = true
	}

	if !progress.Undefined && b.NotifyThreshold.IsPositive() &&
		progress.PercentUsed.GreaterThanOrEqual(b.NotifyThreshold) {
		progress.Alert = true
	}

	return progress
}

// EvaluateFromStore loads a budget and the transactions in its category
// set and window, then evaluates it.
func EvaluateFromStore(ctx context.Context, store service.Storage, budgetID string, now time.Time) (*Progress, error) {
	b, err := store.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("evaluate budget: %w", err)
	}

	start, end := b.Window(now)
	transactions, err := store.ListTransactions(ctx, service.TransactionFilter{
		UserID:      b.UserID,
		CategoryIDs: b.CategoryIDs,
		Start:       &start,
		End:         &end,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate budget %s: %w", budgetID, err)
	}

	progress := Evaluate(b, transactions, now)
	return &progress, nil
}
