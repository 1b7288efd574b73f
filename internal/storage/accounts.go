package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/model"
)

// CreateAccount inserts a new account and returns its store-assigned id.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateAccount(account); err != nil {
		return "", err
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, type, balance, currency, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, account.ID, account.UserID, account.Name, string(account.Type),
		account.Balance.String(), account.Currency, account.Archived)
	if err != nil {
		return "", mapSQLiteError(fmt.Errorf("failed to create account: %w", err))
	}

	return account.ID, nil
}

// GetAccount retrieves an account by id.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return scanAccount(s.db.QueryRowContext(ctx, accountSelect+` WHERE id = ?`, id))
}

// ListAccounts returns all accounts owned by the user, active first.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, accountSelect+`
		WHERE user_id = ? ORDER BY archived, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// UpdateAccount updates the account's descriptive fields. Balance is
// deliberately excluded here: it changes only through Atomic blocks
// driven by the ledger mutator.
func (s *SQLiteStorage) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, type = ?, currency = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, account.Name, string(account.Type), account.Currency, account.ID)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to update account: %w", err))
	}
	return requireRowAffected(result, common.ErrAccountNotFound, account.ID)
}

// SetAccountArchived flips the archived flag on an account.
func (s *SQLiteStorage) SetAccountArchived(ctx context.Context, id string, archived bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET archived = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, archived, id)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to archive account: %w", err))
	}
	return requireRowAffected(result, common.ErrAccountNotFound, id)
}

// DeleteAccount removes an account. Transactions referencing it keep
// their rows; deleting an account with live transactions is a caller
// decision, not enforced here.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to delete account: %w", err))
	}
	return requireRowAffected(result, common.ErrAccountNotFound, id)
}

// GetAccount reads an account inside an atomic block.
func (t *sqliteTx) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return scanAccount(t.tx.QueryRowContext(ctx, accountSelect+` WHERE id = ?`, id))
}

// SetAccountBalance writes a freshly computed balance inside an atomic block.
func (t *sqliteTx) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, balance.String(), id)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to set balance: %w", err))
	}
	return requireRowAffected(result, common.ErrAccountNotFound, id)
}

const accountSelect = `
	SELECT id, user_id, name, type, balance, currency, archived, created_at, updated_at
	FROM accounts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	account, err := scanAccountRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrAccountNotFound
	}
	return account, err
}

func scanAccountRow(row rowScanner) (*model.Account, error) {
	var (
		account    model.Account
		accType    string
		balanceStr string
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&account.ID, &account.UserID, &account.Name, &accType,
		&balanceStr, &account.Currency, &account.Archived, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for account %s: %w", account.ID, err)
	}

	account.Type = model.AccountType(accType)
	account.Balance = balance
	account.CreatedAt = createdAt
	account.UpdatedAt = updatedAt
	return &account, nil
}

// requireRowAffected converts a zero-row update into a typed not-found error.
func requireRowAffected(result sql.Result, notFound error, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
