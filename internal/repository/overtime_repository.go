package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

// OvertimeRepository handles persistence for overtime records.
type OvertimeRepository struct {
	db *sqlx.DB
}

// NewOvertimeRepository constructs the repository.
func NewOvertimeRepository(db *sqlx.DB) *OvertimeRepository {
	return &OvertimeRepository{db: db}
}

const overtimeColumns = `id, emp_id, date, regular_hours, actual_hours, overtime_hours, overtime_rate, overtime_amount, status, approved_by, approved_at, remarks, created_at`

// Get returns one overtime record or sql.ErrNoRows.
func (r *OvertimeRepository) Get(ctx context.Context, id int64) (*models.OvertimeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM overtime_records WHERE id = $1`, overtimeColumns)
	var rec models.OvertimeRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get overtime: %w", err)
	}
	return &rec, nil
}

// ExistsForDay reports whether the employee already has overtime on the date.
func (r *OvertimeRepository) ExistsForDay(ctx context.Context, empID string, date time.Time) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM overtime_records WHERE emp_id = $1 AND date = $2`
	if err := r.db.GetContext(ctx, &count, query, empID, date); err != nil {
		return false, fmt.Errorf("overtime exists check: %w", err)
	}
	return count > 0, nil
}

// Create inserts an overtime record and fills its id.
func (r *OvertimeRepository) Create(ctx context.Context, rec *models.OvertimeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO overtime_records (emp_id, date, regular_hours, actual_hours, overtime_hours, overtime_rate, overtime_amount, status, remarks, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	if err := r.db.GetContext(ctx, &rec.ID, query,
		rec.EmpID, rec.Date, rec.RegularHours, rec.ActualHours, rec.OvertimeHours,
		rec.OvertimeRate, rec.OvertimeAmount, rec.Status, rec.Remarks, rec.CreatedAt); err != nil {
		return fmt.Errorf("create overtime: %w", err)
	}
	return nil
}

// UpdateStatus moves an overtime record through approval.
func (r *OvertimeRepository) UpdateStatus(ctx context.Context, id int64, status models.OvertimeStatus, approvedBy string, remarks *string) error {
	query := `UPDATE overtime_records
SET status = $2, approved_by = $3, approved_at = NOW(), remarks = COALESCE($4, remarks)
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, approvedBy, remarks)
	if err != nil {
		return fmt.Errorf("update overtime status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns overtime rows matching the filter newest first.
func (r *OvertimeRepository) List(ctx context.Context, empID string, status *models.OvertimeStatus, page, size int) ([]models.OvertimeRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if empID != "" {
		where = append(where, fmt.Sprintf("emp_id = $%d", len(args)+1))
		args = append(args, empID)
	}
	if status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *status)
	}
	whereClause := strings.Join(where, " AND ")
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM overtime_records WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d`,
		overtimeColumns, whereClause, size, offset)
	var rows []models.OvertimeRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list overtime: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM overtime_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count overtime: %w", err)
	}
	return rows, total, nil
}

// ApprovedTotals sums approved overtime hours and amounts for one employee
// in a month.
func (r *OvertimeRepository) ApprovedTotals(ctx context.Context, empID string, month, year int) (decimal.Decimal, decimal.Decimal, error) {
	row := struct {
		Hours  decimal.Decimal `db:"hours"`
		Amount decimal.Decimal `db:"amount"`
	}{}
	query := `SELECT COALESCE(SUM(overtime_hours), 0) AS hours, COALESCE(SUM(overtime_amount), 0) AS amount
FROM overtime_records
WHERE emp_id = $1 AND status = $2 AND EXTRACT(MONTH FROM date) = $3 AND EXTRACT(YEAR FROM date) = $4`
	if err := r.db.GetContext(ctx, &row, query, empID, models.OvertimeApproved, month, year); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("approved overtime totals: %w", err)
	}
	return row.Hours, row.Amount, nil
}
