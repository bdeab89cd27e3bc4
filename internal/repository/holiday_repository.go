package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

// HolidayRepository handles persistence for the holiday calendar.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs the repository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// ListByYear returns the year's holidays in date order.
func (r *HolidayRepository) ListByYear(ctx context.Context, year int) ([]models.Holiday, error) {
	var rows []models.Holiday
	query := `SELECT id, name, date, year, day FROM holidays WHERE year = $1 ORDER BY date`
	if err := r.db.SelectContext(ctx, &rows, query, year); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return rows, nil
}

// ListInRange returns holidays whose date falls inside [from, to].
func (r *HolidayRepository) ListInRange(ctx context.Context, from, to string) ([]models.Holiday, error) {
	var rows []models.Holiday
	query := `SELECT id, name, date, year, day FROM holidays WHERE date BETWEEN $1 AND $2 ORDER BY date`
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list holidays in range: %w", err)
	}
	return rows, nil
}

// Create inserts a holiday and fills its id.
func (r *HolidayRepository) Create(ctx context.Context, h *models.Holiday) error {
	query := `INSERT INTO holidays (name, date, year, day) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &h.ID, query, h.Name, h.Date, h.Year, h.Day); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// Delete removes a holiday by id.
func (r *HolidayRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
