package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

// PayrollRepository handles persistence for payroll snapshots.
type PayrollRepository struct {
	db *sqlx.DB
}

// NewPayrollRepository constructs the repository.
func NewPayrollRepository(db *sqlx.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

const payrollColumns = `id, emp_id, month, year, basic_salary, hra, transport_allowance, dearness_allowance, medical_allowance, special_allowance, other_allowances, overtime_amount, overtime_hours, gross_salary, total_deductions, net_salary, deduction_details, working_days, present_days, absent_days, leave_days, status, processed_by, processed_at, payment_date, payment_method, transaction_id, bank_reference, created_at`

// Get returns one payroll record or sql.ErrNoRows.
func (r *PayrollRepository) Get(ctx context.Context, id int64) (*models.PayrollRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_records WHERE id = $1`, payrollColumns)
	var rec models.PayrollRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get payroll: %w", err)
	}
	return &rec, nil
}

// GetByPeriod returns the snapshot for (emp, month, year) or sql.ErrNoRows.
func (r *PayrollRepository) GetByPeriod(ctx context.Context, empID string, month, year int) (*models.PayrollRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_records WHERE emp_id = $1 AND month = $2 AND year = $3`, payrollColumns)
	var rec models.PayrollRecord
	if err := r.db.GetContext(ctx, &rec, query, empID, month, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get payroll by period: %w", err)
	}
	return &rec, nil
}

// Create inserts a payroll snapshot and fills its id. The unique key on
// (emp_id, month, year) rejects duplicate periods at the database level.
func (r *PayrollRepository) Create(ctx context.Context, rec *models.PayrollRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO payroll_records (emp_id, month, year, basic_salary, hra, transport_allowance, dearness_allowance, medical_allowance, special_allowance, other_allowances, overtime_amount, overtime_hours, gross_salary, total_deductions, net_salary, deduction_details, working_days, present_days, absent_days, leave_days, status, processed_by, processed_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24) RETURNING id`
	if err := r.db.GetContext(ctx, &rec.ID, query,
		rec.EmpID, rec.Month, rec.Year, rec.BasicSalary, rec.HRA, rec.TransportAllowance,
		rec.DearnessAllowance, rec.MedicalAllowance, rec.SpecialAllowance, rec.OtherAllowances,
		rec.OvertimeAmount, rec.OvertimeHours, rec.GrossSalary, rec.TotalDeductions, rec.NetSalary,
		rec.DeductionDetails, rec.WorkingDays, rec.PresentDays, rec.AbsentDays, rec.LeaveDays,
		rec.Status, rec.ProcessedBy, rec.ProcessedAt, rec.CreatedAt); err != nil {
		return fmt.Errorf("create payroll: %w", err)
	}
	return nil
}

// MarkPaid records payment details against a processed snapshot.
func (r *PayrollRepository) MarkPaid(ctx context.Context, id int64, method string, transactionID, bankReference *string, paymentDate time.Time) error {
	query := `UPDATE payroll_records
SET status = $2, payment_date = $3, payment_method = $4, transaction_id = $5, bank_reference = $6
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.PayrollPaid, paymentDate, method, transactionID, bankReference)
	if err != nil {
		return fmt.Errorf("mark payroll paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns payroll snapshots matching the filter.
func (r *PayrollRepository) List(ctx context.Context, empID string, month, year int, page, size int) ([]models.PayrollRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if empID != "" {
		where = append(where, fmt.Sprintf("emp_id = $%d", len(args)+1))
		args = append(args, empID)
	}
	if month > 0 {
		where = append(where, fmt.Sprintf("month = $%d", len(args)+1))
		args = append(args, month)
	}
	if year > 0 {
		where = append(where, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, year)
	}
	whereClause := strings.Join(where, " AND ")
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM payroll_records WHERE %s ORDER BY year DESC, month DESC, emp_id LIMIT %d OFFSET %d`,
		payrollColumns, whereClause, size, offset)
	var rows []models.PayrollRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payroll: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payroll_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payroll: %w", err)
	}
	return rows, total, nil
}
