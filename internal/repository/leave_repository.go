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

// LeaveRepository handles persistence for leave types, balances, requests
// and approval logs.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// GetType returns one leave type or sql.ErrNoRows.
func (r *LeaveRepository) GetType(ctx context.Context, id int64) (*models.LeaveType, error) {
	query := `SELECT id, name, annual_quota, is_paid, is_active FROM leave_types WHERE id = $1`
	var lt models.LeaveType
	if err := r.db.GetContext(ctx, &lt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get leave type: %w", err)
	}
	return &lt, nil
}

// ListTypes returns active leave types.
func (r *LeaveRepository) ListTypes(ctx context.Context) ([]models.LeaveType, error) {
	var rows []models.LeaveType
	query := `SELECT id, name, annual_quota, is_paid, is_active FROM leave_types WHERE is_active = true ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}
	return rows, nil
}

// GetBalance returns the balance row for (emp, type, year) or sql.ErrNoRows.
func (r *LeaveRepository) GetBalance(ctx context.Context, empID string, leaveTypeID int64, year int) (*models.LeaveBalance, error) {
	query := `SELECT id, emp_id, leave_type_id, year, allocated, used
FROM leave_balances WHERE emp_id = $1 AND leave_type_id = $2 AND year = $3`
	var bal models.LeaveBalance
	if err := r.db.GetContext(ctx, &bal, query, empID, leaveTypeID, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get leave balance: %w", err)
	}
	return &bal, nil
}

// InitBalance creates a year's balance row from the type's annual quota.
// Concurrent initialization is safe: the unique key makes the second insert
// a no-op and the existing row is returned.
func (r *LeaveRepository) InitBalance(ctx context.Context, empID string, leaveTypeID int64, year, allocated int) (*models.LeaveBalance, error) {
	query := `INSERT INTO leave_balances (emp_id, leave_type_id, year, allocated, used)
VALUES ($1, $2, $3, $4, 0)
ON CONFLICT (emp_id, leave_type_id, year) DO UPDATE SET allocated = leave_balances.allocated
RETURNING id, emp_id, leave_type_id, year, allocated, used`
	var bal models.LeaveBalance
	if err := r.db.GetContext(ctx, &bal, query, empID, leaveTypeID, year, allocated); err != nil {
		return nil, fmt.Errorf("init leave balance: %w", err)
	}
	return &bal, nil
}

// ConsumeBalance adds days to used for the balance row.
func (r *LeaveRepository) ConsumeBalance(ctx context.Context, balanceID int64, days int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leave_balances SET used = used + $2 WHERE id = $1`, balanceID, days)
	if err != nil {
		return fmt.Errorf("consume leave balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListBalances returns an employee's balances for a year.
func (r *LeaveRepository) ListBalances(ctx context.Context, empID string, year int) ([]models.LeaveBalance, error) {
	var rows []models.LeaveBalance
	query := `SELECT id, emp_id, leave_type_id, year, allocated, used
FROM leave_balances WHERE emp_id = $1 AND year = $2 ORDER BY leave_type_id`
	if err := r.db.SelectContext(ctx, &rows, query, empID, year); err != nil {
		return nil, fmt.Errorf("list leave balances: %w", err)
	}
	return rows, nil
}

const leaveRequestColumns = `id, emp_id, leave_type_id, start_date, end_date, total_days, reason, status, hr_remarks, ceo_remarks, created_at`

// GetRequest returns one leave request or sql.ErrNoRows.
func (r *LeaveRepository) GetRequest(ctx context.Context, id int64) (*models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE id = $1`, leaveRequestColumns)
	var req models.LeaveRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get leave request: %w", err)
	}
	return &req, nil
}

// CreateRequest inserts a new leave request and fills its id.
func (r *LeaveRepository) CreateRequest(ctx context.Context, req *models.LeaveRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO leave_requests (emp_id, leave_type_id, start_date, end_date, total_days, reason, status, hr_remarks, ceo_remarks, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	if err := r.db.GetContext(ctx, &req.ID, query,
		req.EmpID, req.LeaveTypeID, req.StartDate, req.EndDate, req.TotalDays,
		req.Reason, req.Status, req.HRRemarks, req.CEORemarks, req.CreatedAt); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// UpdateRequestStatus moves a request to a new status with stage remarks.
func (r *LeaveRepository) UpdateRequestStatus(ctx context.Context, id int64, status models.LeaveStatus, hrRemarks, ceoRemarks *string) error {
	query := `UPDATE leave_requests
SET status = $2,
    hr_remarks = COALESCE($3, hr_remarks),
    ceo_remarks = COALESCE($4, ceo_remarks)
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, hrRemarks, ceoRemarks)
	if err != nil {
		return fmt.Errorf("update leave request status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListRequests returns requests matching the filter newest first.
func (r *LeaveRepository) ListRequests(ctx context.Context, empID string, status *models.LeaveStatus, page, size int) ([]models.LeaveRequest, int, error) {
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

	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		leaveRequestColumns, whereClause, size, offset)
	var rows []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leave_requests WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return rows, total, nil
}

// HasOverlapping reports whether the employee already has a non-rejected
// request intersecting the date range.
func (r *LeaveRepository) HasOverlapping(ctx context.Context, empID string, start, end time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM leave_requests
WHERE emp_id = $1 AND status != $2 AND start_date <= $4 AND end_date >= $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, empID, models.LeaveRejected, start, end); err != nil {
		return false, fmt.Errorf("overlapping leave check: %w", err)
	}
	return count > 0, nil
}

// AppendApprovalLog records one approval-stage action.
func (r *LeaveRepository) AppendApprovalLog(ctx context.Context, log *models.LeaveApprovalLog) error {
	if log.ActionAt.IsZero() {
		log.ActionAt = time.Now().UTC()
	}
	query := `INSERT INTO leave_approval_logs (request_id, approver_id, action, remarks, action_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &log.ID, query,
		log.RequestID, log.ApproverID, log.Action, log.Remarks, log.ActionAt); err != nil {
		return fmt.Errorf("append approval log: %w", err)
	}
	return nil
}

// ApprovalHistory returns the approval trail for a request in order.
func (r *LeaveRepository) ApprovalHistory(ctx context.Context, requestID int64) ([]models.LeaveApprovalLog, error) {
	var rows []models.LeaveApprovalLog
	query := `SELECT id, request_id, approver_id, action, remarks, action_at
FROM leave_approval_logs WHERE request_id = $1 ORDER BY action_at`
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("approval history: %w", err)
	}
	return rows, nil
}
