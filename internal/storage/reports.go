package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okane-app/okane/internal/common"
	"github.com/okane-app/okane/internal/model"
)

// SaveReport inserts a saved report definition and returns its id.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *model.Report) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateReport(report); err != nil {
		return "", err
	}

	if report.ID == "" {
		report.ID = uuid.NewString()
	}

	accountIDs, err := marshalList(report.Filters.AccountIDs)
	if err != nil {
		return "", err
	}
	categoryIDs, err := marshalList(report.Filters.CategoryIDs)
	if err != nil {
		return "", err
	}
	tags, err := marshalList(report.Filters.Tags)
	if err != nil {
		return "", err
	}
	types, err := marshalList(typeStrings(report.Filters.Types))
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, user_id, name, type, group_by, start_date,
			end_date, account_ids, category_ids, tags, types)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.UserID, report.Name, string(report.Type),
		string(report.GroupBy), nullableTime(report.StartDate),
		nullableTime(report.EndDate), accountIDs, categoryIDs, tags, types)
	if err != nil {
		return "", mapSQLiteError(fmt.Errorf("failed to save report: %w", err))
	}
	return report.ID, nil
}

// GetReport retrieves a saved report definition.
func (s *SQLiteStorage) GetReport(ctx context.Context, id string) (*model.Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, reportSelect+` WHERE id = ?`, id)
	report, err := scanReportRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrReportNotFound
	}
	return report, err
}

// ListReports returns all of the user's saved report definitions.
func (s *SQLiteStorage) ListReports(ctx context.Context, userID string) ([]model.Report, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, reportSelect+`
		WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []model.Report
	for rows.Next() {
		report, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

// DeleteReport removes a saved report definition.
func (s *SQLiteStorage) DeleteReport(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("failed to delete report: %w", err))
	}
	return requireRowAffected(result, common.ErrReportNotFound, id)
}

const reportSelect = `
	SELECT id, user_id, name, type, group_by, start_date, end_date,
		account_ids, category_ids, tags, types, created_at, updated_at
	FROM reports`

func scanReportRow(row rowScanner) (*model.Report, error) {
	var (
		report      model.Report
		reportType  string
		groupBy     string
		startDate   sql.NullTime
		endDate     sql.NullTime
		accountIDs  sql.NullString
		categoryIDs sql.NullString
		tags        sql.NullString
		types       sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := row.Scan(&report.ID, &report.UserID, &report.Name, &reportType,
		&groupBy, &startDate, &endDate, &accountIDs, &categoryIDs, &tags,
		&types, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	report.Type = model.ReportType(reportType)
	report.GroupBy = model.GroupBy(groupBy)
	if startDate.Valid {
		report.StartDate = startDate.Time
	}
	if endDate.Valid {
		report.EndDate = endDate.Time
	}
	report.CreatedAt = createdAt
	report.UpdatedAt = updatedAt

	if report.Filters.AccountIDs, err = unmarshalList(accountIDs); err != nil {
		return nil, fmt.Errorf("corrupt account filter for report %s: %w", report.ID, err)
	}
	if report.Filters.CategoryIDs, err = unmarshalList(categoryIDs); err != nil {
		return nil, fmt.Errorf("corrupt category filter for report %s: %w", report.ID, err)
	}
	if report.Filters.Tags, err = unmarshalList(tags); err != nil {
		return nil, fmt.Errorf("corrupt tag filter for report %s: %w", report.ID, err)
	}
	typeList, err := unmarshalList(types)
	if err != nil {
		return nil, fmt.Errorf("corrupt type filter for report %s: %w", report.ID, err)
	}
	report.Filters.Types = transactionTypes(typeList)
	return &report, nil
}

func typeStrings(types []model.TransactionType) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func transactionTypes(list []string) []model.TransactionType {
	if len(list) == 0 {
		return nil
	}
	out := make([]model.TransactionType, len(list))
	for i, s := range list {
		out[i] = model.TransactionType(s)
	}
	return out
}

func marshalList(list []string) (string, error) {
	if len(list) == 0 {
		return "", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to marshal list: %w", err)
	}
	return string(b), nil
}

func unmarshalList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s.String), &list); err != nil {
		return nil, err
	}
	return list, nil
}
