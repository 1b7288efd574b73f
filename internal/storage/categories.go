package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/model"
)

// CreateCategory inserts a new category and returns its store-assigned id.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if category == nil {
		return "", fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateString(category.Name, "category.Name"); err != nil {
		return "", err
	}

	if category.ID == "" {
		category.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, parent_id, name, type, color, icon)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, category.ID, category.UserID, nullable(category.ParentID),
		category.Name, string(category.Type), category.Color, category.Icon)
	if err != nil {
		return "", mapSQLiteError(fmt.Errorf("failed to create category: %w", err))
	}
	return category.ID, nil
}

// GetCategory retrieves a category by id.
func (s *SQLiteStorage) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, categorySelect+` WHERE id = ?`, id)
	category, err := scanCategoryRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrCategoryNotFound
	}
	return category, err
}

// ListCategories returns all of the user's categories ordered by name.
func (s *SQLiteStorage) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, categorySelect+`
		WHERE user_id = ? ORDER BY type, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		category, err := scanCategoryRow(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to delete category: %w", err))
	}
	return requireRowAffected(result, common.ErrCategoryNotFound, id)
}

// SeedDefaultCategories creates the standard category set for a user who
// has none yet. Returns the number of categories created; zero when the
// user already has categories.
func (s *SQLiteStorage) SeedDefaultCategories(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	existing, err := s.ListCategories(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, category := range model.DefaultCategories() {
		category.UserID = userID
		if _, err := s.CreateCategory(ctx, &category); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

const categorySelect = `
	SELECT id, user_id, parent_id, name, type, color, icon
	FROM categories`

func scanCategoryRow(row rowScanner) (*model.Category, error) {
	var (
		category model.Category
		parentID sql.NullString
		catType  string
	)
	err := row.Scan(&category.ID, &category.UserID, &parentID,
		&category.Name, &catType, &category.Color, &category.Icon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	category.ParentID = parentID.String
	category.Type = model.CategoryType(catType)
	return &category, nil
}
