package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/service"
)

// GetTransaction retrieves a transaction by id.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return scanTransaction(s.db.QueryRowContext(ctx, transactionSelect+` WHERE id = ?`, id))
}

// GetTransactionByExternalID looks up an imported transaction by its
// bank-assigned id. Used by the OFX importer for deduplication.
func (s *SQLiteStorage) GetTransactionByExternalID(ctx context.Context, externalID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return nil, err
	}
	return scanTransaction(s.db.QueryRowContext(ctx,
		transactionSelect+` WHERE external_id = ?`, externalID))
}

// ListTransactions returns transactions matching the filter, ordered by
// date ascending. Ascending date order is part of the contract: the
// aggregator's running total depends on it.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := transactionSelect + ` WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Start != nil {
		query += ` AND date >= ?`
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		query += ` AND date <= ?`
		args = append(args, *filter.End)
	}
	if len(filter.AccountIDs) > 0 {
		query += ` AND account_id IN (` + placeholders(len(filter.AccountIDs)) + `)`
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}
	if len(filter.CategoryIDs) > 0 {
		query += ` AND category_id IN (` + placeholders(len(filter.CategoryIDs)) + `)`
		for _, id := range filter.CategoryIDs {
			args = append(args, id)
		}
	}
	if len(filter.Types) > 0 {
		query += ` AND type IN (` + placeholders(len(filter.Types)) + `)`
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}

	query += ` ORDER BY date ASC, created_at ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		// Tag filtering happens in-process: tags are stored as a JSON
		// array and SQLite has no native membership predicate for them.
		if len(filter.Tags) > 0 && !hasAnyTag(txn.Tags, filter.Tags) {
			continue
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// GetTransaction reads a transaction inside an atomic block.
func (t *sqliteTx) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return scanTransaction(t.tx.QueryRowContext(ctx, transactionSelect+` WHERE id = ?`, id))
}

// SaveTransaction inserts a transaction record inside an atomic block,
// assigning an id when the caller did not supply one.
func (t *sqliteTx) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Status == "" {
		txn.Status = model.StatusCompleted
	}

	tags, err := marshalTags(txn.Tags)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, account_id, to_account_id, type, status, amount,
			currency, category_id, description, date, tags, external_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.UserID, txn.AccountID, nullable(txn.ToAccountID),
		string(txn.Type), string(txn.Status), txn.Amount.String(),
		txn.Currency, nullable(txn.CategoryID), txn.Description,
		txn.Date, tags, nullable(txn.ExternalID))
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to save transaction: %w", err))
	}
	return nil
}

// UpdateTransaction rewrites a transaction record inside an atomic block.
func (t *sqliteTx) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}

	tags, err := marshalTags(txn.Tags)
	if err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, to_account_id = ?, type = ?, status = ?,
			amount = ?, currency = ?, category_id = ?, description = ?,
			date = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, txn.AccountID, nullable(txn.ToAccountID), string(txn.Type),
		string(txn.Status), txn.Amount.String(), txn.Currency,
		nullable(txn.CategoryID), txn.Description, txn.Date, tags, txn.ID)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to update transaction: %w", err))
	}
	return requireRowAffected(result, common.ErrTransactionNotFound, txn.ID)
}

// DeleteTransaction removes a transaction record inside an atomic block.
func (t *sqliteTx) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to delete transaction: %w", err))
	}
	return requireRowAffected(result, common.ErrTransactionNotFound, id)
}

const transactionSelect = `
	SELECT id, user_id, account_id, to_account_id, type, status, amount,
		currency, category_id, description, date, tags, external_id,
		created_at, updated_at
	FROM transactions`

func scanTransaction(row *sql.Row) (*model.Transaction, error) {
	txn, err := scanTransactionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrTransactionNotFound
	}
	return txn, err
}

func scanTransactionRow(row rowScanner) (*model.Transaction, error) {
	var (
		txn         model.Transaction
		toAccountID sql.NullString
		categoryID  sql.NullString
		externalID  sql.NullString
		tagsJSON    sql.NullString
		txnType     string
		status      string
		amountStr   string
		date        time.Time
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := row.Scan(&txn.ID, &txn.UserID, &txn.AccountID, &toAccountID,
		&txnType, &status, &amountStr, &txn.Currency, &categoryID,
		&txn.Description, &date, &tagsJSON, &externalID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for transaction %s: %w", txn.ID, err)
	}

	txn.ToAccountID = toAccountID.String
	txn.CategoryID = categoryID.String
	txn.ExternalID = externalID.String
	txn.Type = model.TransactionType(txnType)
	txn.Status = model.TransactionStatus(status)
	txn.Amount = amount
	txn.Date = date
	txn.CreatedAt = createdAt
	txn.UpdatedAt = updatedAt

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &txn.Tags); err != nil {
			return nil, fmt.Errorf("corrupt tags for transaction %s: %w", txn.ID, err)
		}
	}
	return &txn, nil
}

func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(b), nil
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
