package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes how a transaction affects balances.
type TransactionType string

// Supported transaction types.
const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// TransactionStatus tracks the lifecycle state of a transaction.
type TransactionStatus string

// Supported transaction statuses.
const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction validation errors.
var (
	ErrNegativeAmount         = errors.New("transaction amount cannot be negative")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrMissingAccountID       = errors.New("transaction account ID is required")
	ErrMissingDate            = errors.New("transaction date is required")
	// ErrInvalidTransfer covers both transfer defects: a missing
	// destination account and a destination equal to the source.
	ErrInvalidTransfer = errors.New("invalid transfer")
)

// Transaction is a single ledger event against one account, or two for
// transfers. A transfer is one record; the debit and credit legs are
// derived from it, never duplicated into a second record.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	UserID      string
	AccountID   string
	ToAccountID string // set iff Type == TypeTransfer
	CategoryID  string
	Description string
	Currency    string
	ExternalID  string // bank-assigned ID for imported transactions, used for deduplication
	Type        TransactionType
	Status      TransactionStatus
	Tags        []string
	Amount      decimal.Decimal
}

// ValidType reports whether t is one of the supported transaction types.
func (t TransactionType) ValidType() bool {
	return t == TypeIncome || t == TypeExpense || t == TypeTransfer
}

// Validate checks all field-level invariants. It is called before any
// store interaction, so invalid transfers never reach the ledger.
func (t *Transaction) Validate() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, t.Amount)
	}
	if !t.Type.ValidType() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, t.Type)
	}
	if t.AccountID == "" {
		return ErrMissingAccountID
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	switch t.Type {
	case TypeTransfer:
		if t.ToAccountID == "" {
			return fmt.Errorf("%w: missing destination account", ErrInvalidTransfer)
		}
		if t.ToAccountID == t.AccountID {
			return fmt.Errorf("%w: source and destination are the same account", ErrInvalidTransfer)
		}
	default:
		if t.ToAccountID != "" {
			return fmt.Errorf("%w: destination account only valid for transfers", ErrInvalidTransfer)
		}
	}
	return nil
}

// SignedAmount returns the amount with reporting sign applied: expenses
// are negative, everything else positive.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
