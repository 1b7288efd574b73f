// Package model defines the core domain types for the okane ledger.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType categorizes an account by the kind of money it holds.
type AccountType string

// Supported account types.
const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCash       AccountType = "cash"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeEmoney     AccountType = "emoney"
	AccountTypePoint      AccountType = "point"
	AccountTypeWallet     AccountType = "wallet"
)

// Account validation errors.
var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrEmptyAccountName   = errors.New("account name cannot be empty")
)

// Account is a single balance-bearing account owned by one user.
//
// Balance is the authoritative running total: it equals the sum of all
// committed transaction effects applied since creation. It is mutated
// exclusively by the ledger mutator inside an atomic store transaction.
type Account struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	UserID    string
	Name      string
	Currency  string
	Type      AccountType
	Balance   decimal.Decimal
	Archived  bool
}

// ValidType reports whether t is one of the supported account types.
func (t AccountType) ValidType() bool {
	switch t {
	case AccountTypeBank, AccountTypeCash, AccountTypeCreditCard,
		AccountTypeInvestment, AccountTypeLoan, AccountTypeEmoney,
		AccountTypePoint, AccountTypeWallet:
		return true
	}
	return false
}

// Validate checks the account's field-level invariants.
func (a *Account) Validate() error {
	if a.Name == "" {
		return ErrEmptyAccountName
	}
	if !a.Type.ValidType() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, a.Type)
	}
	return nil
}
