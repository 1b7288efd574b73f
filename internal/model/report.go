package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReportType selects which transactions a report aggregates.
type ReportType string

// Supported report types.
const (
	ReportExpense ReportType = "expense"
	ReportIncome  ReportType = "income"
	ReportBalance ReportType = "balance"
	ReportBudget  ReportType = "budget"
)

// GroupBy is the bucketing key for aggregation.
type GroupBy string

// Supported grouping keys.
const (
	GroupByDay      GroupBy = "day"
	GroupByWeek     GroupBy = "week"
	GroupByMonth    GroupBy = "month"
	GroupByYear     GroupBy = "year"
	GroupByCategory GroupBy = "category"
)

// Report validation errors.
var (
	ErrInvalidReportType = errors.New("invalid report type")
	ErrInvalidGroupBy    = errors.New("invalid group-by key")
	ErrInvalidDateRange  = errors.New("report start date must not be after end date")
)

// ReportFilters narrow the transaction set a report runs over. Empty
// slices mean no restriction on that dimension, except Types on a
// balance report, where empty defaults to income and expense; a caller
// wanting transfers counted must name them here explicitly.
type ReportFilters struct {
	AccountIDs  []string
	CategoryIDs []string
	Tags        []string
	Types       []TransactionType
}

// Report is a saved query specification. Executing it produces a
// Summary; the Summary itself is never persisted.
type Report struct {
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	UserID    string
	Name      string
	Type      ReportType
	GroupBy   GroupBy
	Filters   ReportFilters
}

// ValidType reports whether t is one of the supported report types.
func (t ReportType) ValidType() bool {
	switch t {
	case ReportExpense, ReportIncome, ReportBalance, ReportBudget:
		return true
	}
	return false
}

// ValidKey reports whether g is one of the supported grouping keys.
func (g GroupBy) ValidKey() bool {
	switch g {
	case GroupByDay, GroupByWeek, GroupByMonth, GroupByYear, GroupByCategory:
		return true
	}
	return false
}

// Validate checks the report's field-level invariants.
func (r *Report) Validate() error {
	if !r.Type.ValidType() {
		return fmt.Errorf("%w: %q", ErrInvalidReportType, r.Type)
	}
	if !r.GroupBy.ValidKey() {
		return fmt.Errorf("%w: %q", ErrInvalidGroupBy, r.GroupBy)
	}
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.StartDate.After(r.EndDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// TrendPoint is one step of a running-total series.
type TrendPoint struct {
	Date    time.Time
	Running decimal.Decimal
}

// Summary is the ephemeral result of executing a report: a grand total,
// per-group sums, and a running-total trend ordered by date. Grouping
// by category produces no trend series.
type Summary struct {
	Grouped     map[string]decimal.Decimal
	Trends      []TrendPoint
	TotalAmount decimal.Decimal
}
