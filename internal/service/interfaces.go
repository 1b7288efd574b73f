// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Results are always ordered by date ascending, which is what the
// aggregator needs for running-total correctness.
type TransactionFilter struct {
	Start       *time.Time
	End         *time.Time
	UserID      string
	AccountIDs  []string
	CategoryIDs []string
	Tags        []string
	Types       []model.TransactionType
	Limit       int
	Offset      int
}

// Tx is the handle passed to an atomic block. Every read and write made
// through it commits together or not at all.
type Tx interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) (string, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	SetAccountArchived(ctx context.Context, id string, archived bool) error
	DeleteAccount(ctx context.Context, id string) error

	// Transaction reads; all writes go through Atomic so balances and
	// the transaction log can never drift apart.
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionByExternalID(ctx context.Context, externalID string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Category operations
	CreateCategory(ctx context.Context, category *model.Category) (string, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	SeedDefaultCategories(ctx context.Context, userID string) (int, error)

	// Budget operations
	CreateBudget(ctx context.Context, budget *model.Budget) (string, error)
	GetBudget(ctx context.Context, id string) (*model.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]model.Budget, error)
	UpdateBudget(ctx context.Context, budget *model.Budget) error
	DeleteBudget(ctx context.Context, id string) error

	// Report operations
	SaveReport(ctx context.Context, report *model.Report) (string, error)
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, userID string) ([]model.Report, error)
	DeleteReport(ctx context.Context, id string) error

	// Atomic runs fn inside a single store transaction. All effects
	// apply atomically or not at all; a conflicting interleaved write
	// aborts with an error matching common.ErrConcurrencyConflict.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
