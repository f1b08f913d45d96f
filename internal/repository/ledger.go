package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/teashop/internal/models"
	"github.com/google/uuid"
)

// PostgresLedgerRepository stores the live tally of each user and the
// archive of day reports.
type PostgresLedgerRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresLedgerRepository creates a PostgresLedgerRepository for db.
func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{DB: db}
}

// LoadTally returns the stored tally of the user, or nil if none was saved yet.
// It returns ErrNotFound for an unknown user.
func (r *PostgresLedgerRepository) LoadTally(ctx context.Context, userID uuid.UUID) (*models.DailyTally, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT today FROM users WHERE id = $1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LoadTally: %w", err)
	}
	return decodeTally(raw)
}

// SaveDay replaces the user's live tally and upserts the report for
// report.Date in one transaction. An existing report for the same user and
// date keeps its id and creation time; items and totals are replaced.
// The stored report is returned.
func (r *PostgresLedgerRepository) SaveDay(ctx context.Context, userID uuid.UUID, t models.DailyTally, report models.Report) (models.Report, error) {
	todayJSON, err := json.Marshal(t)
	if err != nil {
		return models.Report{}, fmt.Errorf("encode tally: %w", err)
	}
	itemsJSON, err := json.Marshal(report.Items)
	if err != nil {
		return models.Report{}, fmt.Errorf("encode items: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Report{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET today = $2 WHERE id = $1`, userID, todayJSON)
	if err != nil {
		return models.Report{}, fmt.Errorf("save tally: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Report{}, ErrNotFound
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO reports (id, user_id, date, items, total_qty, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, date) DO UPDATE SET
			items = EXCLUDED.items,
			total_qty = EXCLUDED.total_qty,
			total_amount = EXCLUDED.total_amount
		RETURNING id, created_at
	`, report.ID, userID, report.Date, itemsJSON, report.TotalQty, report.TotalAmount, report.CreatedAt).
		Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return models.Report{}, fmt.Errorf("upsert report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Report{}, fmt.Errorf("commit: %w", err)
	}
	report.UserID = userID
	return report, nil
}

// ListReports returns all reports of the user, newest date first.
func (r *PostgresLedgerRepository) ListReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, date, items, total_qty, total_amount, created_at
		FROM reports WHERE user_id = $1 ORDER BY date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListReports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var (
			rep   models.Report
			items []byte
		)
		if err := rows.Scan(&rep.ID, &rep.UserID, &rep.Date, &items, &rep.TotalQty, &rep.TotalAmount, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(items, &rep.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		if rep.Items == nil {
			rep.Items = []models.ReportLineItem{}
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListReports: %w", err)
	}
	return reports, nil
}

// DeleteReport removes the user's report identified by ref, which is either
// the report id or its date. References that match nothing, that belong to
// another user or that are neither an id nor a date are ignored.
func (r *PostgresLedgerRepository) DeleteReport(ctx context.Context, userID uuid.UUID, ref string) error {
	var (
		query string
		arg   any
	)
	if id, err := uuid.Parse(ref); err == nil {
		query, arg = `DELETE FROM reports WHERE user_id = $1 AND id = $2`, id
	} else if _, err := time.Parse(models.DateLayout, ref); err == nil {
		query, arg = `DELETE FROM reports WHERE user_id = $1 AND date = $2`, ref
	} else {
		return nil
	}

	if _, err := r.DB.ExecContext(ctx, query, userID, arg); err != nil {
		return fmt.Errorf("DeleteReport: %w", err)
	}
	return nil
}

func decodeTally(raw []byte) (*models.DailyTally, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var t models.DailyTally
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode tally: %w", err)
	}
	return &t, nil
}
