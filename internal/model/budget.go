package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the recurrence period of a budget.
type BudgetPeriod string

// Supported budget periods.
const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Budget validation errors.
var (
	ErrInvalidBudgetPeriod = errors.New("invalid budget period")
	ErrEmptyBudgetName     = errors.New("budget name cannot be empty")
	ErrNoBudgetCategories  = errors.New("budget requires at least one category")
	ErrMissingStartDate    = errors.New("budget start date is required")
)

// Budget is a spending ceiling over a set of categories within a date
// window. Read-only to the aggregation code; lifecycle managed through
// the store.
type Budget struct {
	StartDate       time.Time
	EndDate         time.Time // zero means open-ended (window closes at "now")
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ID              string
	UserID          string
	Name            string
	Currency        string
	Period          BudgetPeriod
	CategoryIDs     []string
	Amount          decimal.Decimal
	NotifyThreshold decimal.Decimal // percentage at which to alert, zero disables
	Rollover        bool
}

// Validate checks the budget's field-level invariants.
func (b *Budget) Validate() error {
	if b.Name == "" {
		return ErrEmptyBudgetName
	}
	if b.Period != PeriodMonthly && b.Period != PeriodYearly {
		return fmt.Errorf("%w: %q", ErrInvalidBudgetPeriod, b.Period)
	}
	if len(b.CategoryIDs) == 0 {
		return ErrNoBudgetCategories
	}
	if b.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	return nil
}

// Window returns the inclusive date window the budget covers. An
// open-ended budget closes at now.
func (b *Budget) Window(now time.Time) (start, end time.Time) {
	end = b.EndDate
	if end.IsZero() {
		end = now
	}
	return b.StartDate, end
}

// Covers reports whether the category belongs to the budget's category set.
func (b *Budget) Covers(categoryID string) bool {
	for _, id := range b.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}
