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

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, emp_id, date, first_in, last_out, in_duration, out_duration, total_duration, punch_records, attendance_status, employee_name, source_file, created_at, updated_at`

// GetByEmpAndDate returns the record for one employee-day or sql.ErrNoRows.
func (r *AttendanceRepository) GetByEmpAndDate(ctx context.Context, empID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE emp_id = $1 AND date = $2`, attendanceColumns)
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, query, empID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &rec, nil
}

// Upsert inserts or replaces the record for (emp_id, date). The caller has
// already resolved status precedence; the stored row reflects its decision.
func (r *AttendanceRepository) Upsert(ctx context.Context, rec *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO attendance (emp_id, date, first_in, last_out, in_duration, out_duration, total_duration, punch_records, attendance_status, employee_name, source_file, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (emp_id, date)
DO UPDATE SET first_in = EXCLUDED.first_in, last_out = EXCLUDED.last_out,
    in_duration = EXCLUDED.in_duration, out_duration = EXCLUDED.out_duration,
    total_duration = EXCLUDED.total_duration, punch_records = EXCLUDED.punch_records,
    attendance_status = EXCLUDED.attendance_status, employee_name = EXCLUDED.employee_name,
    source_file = EXCLUDED.source_file, updated_at = EXCLUDED.updated_at
RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		rec.EmpID, rec.Date, rec.FirstIn, rec.LastOut, rec.InDuration, rec.OutDuration,
		rec.TotalDuration, rec.PunchRecords, rec.Status, rec.EmployeeName, rec.SourceFile,
		rec.CreatedAt, rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// List returns attendance rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmpID != "" {
		where = append(where, fmt.Sprintf("emp_id = $%d", len(args)+1))
		args = append(args, filter.EmpID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("attendance_status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE %s ORDER BY date DESC, emp_id LIMIT %d OFFSET %d`,
		attendanceColumns, whereClause, size, offset)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// Update persists mutable fields of an existing record by id.
func (r *AttendanceRepository) Update(ctx context.Context, rec *models.AttendanceRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	query := `UPDATE attendance
SET first_in = $2, last_out = $3, total_duration = $4, attendance_status = $5, updated_at = $6
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.FirstIn, rec.LastOut, rec.TotalDuration, rec.Status, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes one attendance record by id.
func (r *AttendanceRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MonthlySummary aggregates one employee's month by status. Residual half-day
// rows contribute 0.5 to the present count. Absent days are not taken from
// stored rows: callers derive them from working days minus present and leave,
// so unrecorded working days count as absent.
func (r *AttendanceRepository) MonthlySummary(ctx context.Context, empID string, month, year int) (*models.AttendanceSummary, error) {
	query := `SELECT attendance_status, COUNT(*) AS cnt
FROM attendance
WHERE emp_id = $1 AND EXTRACT(MONTH FROM date) = $2 AND EXTRACT(YEAR FROM date) = $3
GROUP BY attendance_status`
	rows := []struct {
		Status string `db:"attendance_status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, empID, month, year); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.StatusPresent:
			summary.PresentDays += float64(row.Count)
		case models.StatusOnLeave:
			summary.LeaveDays += row.Count
		case models.StatusHalfDay:
			summary.PresentDays += 0.5 * float64(row.Count)
		}
	}
	return summary, nil
}

// DatesWithStatus returns the dates in a range carrying the given status.
func (r *AttendanceRepository) DatesWithStatus(ctx context.Context, empID string, from, to time.Time, status models.AttendanceStatus) ([]time.Time, error) {
	var dates []time.Time
	query := `SELECT date FROM attendance WHERE emp_id = $1 AND date BETWEEN $2 AND $3 AND attendance_status = $4 ORDER BY date`
	if err := r.db.SelectContext(ctx, &dates, query, empID, from, to, status); err != nil {
		return nil, fmt.Errorf("attendance dates by status: %w", err)
	}
	return dates, nil
}
