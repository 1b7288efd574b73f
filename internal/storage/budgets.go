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

// CreateBudget inserts a budget and its category set atomically.
func (s *SQLiteStorage) CreateBudget(ctx context.Context, budget *model.Budget) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateBudget(budget); err != nil {
		return "", err
	}

	if budget.ID == "" {
		budget.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, name, amount, currency, period,
			start_date, end_date, rollover, notify_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, budget.ID, budget.UserID, budget.Name, budget.Amount.String(),
		budget.Currency, string(budget.Period), budget.StartDate,
		nullableTime(budget.EndDate), budget.Rollover, budget.NotifyThreshold.String())
	if err != nil {
		return "", mapSQLiteError(fmt.Errorf("failed to create budget: %w", err))
	}

	if err := replaceBudgetCategories(ctx, tx, budget.ID, budget.CategoryIDs); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", mapSQLiteError(fmt.Errorf("failed to commit budget: %w", err))
	}
	return budget.ID, nil
}

// GetBudget retrieves a budget with its category set.
func (s *SQLiteStorage) GetBudget(ctx context.Context, id string) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, budgetSelect+` WHERE id = ?`, id)
	budget, err := scanBudgetRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrBudgetNotFound
	}
	if err != nil {
		return nil, err
	}

	if budget.CategoryIDs, err = s.budgetCategories(ctx, budget.ID); err != nil {
		return nil, err
	}
	return budget, nil
}

// ListBudgets returns all of the user's budgets with category sets.
func (s *SQLiteStorage) ListBudgets(ctx context.Context, userID string) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, budgetSelect+`
		WHERE user_id = ? ORDER BY start_date, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		budget, err := scanBudgetRow(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *budget)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range budgets {
		if budgets[i].CategoryIDs, err = s.budgetCategories(ctx, budgets[i].ID); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// UpdateBudget rewrites a budget and replaces its category set atomically.
func (s *SQLiteStorage) UpdateBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE budgets
		SET name = ?, amount = ?, currency = ?, period = ?, start_date = ?,
			end_date = ?, rollover = ?, notify_threshold = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, budget.Name, budget.Amount.String(), budget.Currency,
		string(budget.Period), budget.StartDate, nullableTime(budget.EndDate),
		budget.Rollover, budget.NotifyThreshold.String(), budget.ID)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to update budget: %w", err))
	}
	if err := requireRowAffected(result, common.ErrBudgetNotFound, budget.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_categories WHERE budget_id = ?`, budget.ID); err != nil {
		return mapSQLiteError(fmt.Errorf("failed to clear budget categories: %w", err))
	}
	if err := replaceBudgetCategories(ctx, tx, budget.ID, budget.CategoryIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteError(fmt.Errorf("failed to commit budget update: %w", err))
	}
	return nil
}

// DeleteBudget removes a budget; its category rows cascade.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to delete budget: %w", err))
	}
	return requireRowAffected(result, common.ErrBudgetNotFound, id)
}

func (s *SQLiteStorage) budgetCategories(ctx context.Context, budgetID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id FROM budget_categories WHERE budget_id = ? ORDER BY category_id
	`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan budget category: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func replaceBudgetCategories(ctx context.Context, tx *sql.Tx, budgetID string, categoryIDs []string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO budget_categories (budget_id, category_id) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, categoryID := range categoryIDs {
		if _, err := stmt.ExecContext(ctx, budgetID, categoryID); err != nil {
			return mapSQLiteError(fmt.Errorf("failed to insert budget category: %w", err))
		}
	}
	return nil
}

const budgetSelect = `
	SELECT id, user_id, name, amount, currency, period, start_date,
		end_date, rollover, notify_threshold, created_at, updated_at
	FROM budgets`

func scanBudgetRow(row rowScanner) (*model.Budget, error) {
	var (
		budget       model.Budget
		amountStr    string
		thresholdStr string
		period       string
		endDate      sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := row.Scan(&budget.ID, &budget.UserID, &budget.Name, &amountStr,
		&budget.Currency, &period, &budget.StartDate, &endDate,
		&budget.Rollover, &thresholdStr, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for budget %s: %w", budget.ID, err)
	}
	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt threshold for budget %s: %w", budget.ID, err)
	}

	budget.Amount = amount
	budget.NotifyThreshold = threshold
	budget.Period = model.BudgetPeriod(period)
	if endDate.Valid {
		budget.EndDate = endDate.Time
	}
	budget.CreatedAt = createdAt
	budget.UpdatedAt = updatedAt
	return &budget, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
