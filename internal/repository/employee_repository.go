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

// EmployeeRepository handles persistence for the employee directory.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByEmpID returns one employee or sql.ErrNoRows.
func (r *EmployeeRepository) GetByEmpID(ctx context.Context, empID string) (*models.Employee, error) {
	query := `SELECT emp_id, full_name, email, designation, role, status, bank_account, bank_ifsc, password_hash, created_at, updated_at
FROM employees WHERE emp_id = $1`
	var emp models.Employee
	if err := r.db.GetContext(ctx, &emp, query, empID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &emp, nil
}

// GetByEmail returns one employee by email or sql.ErrNoRows.
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	query := `SELECT emp_id, full_name, email, designation, role, status, bank_account, bank_ifsc, password_hash, created_at, updated_at
FROM employees WHERE LOWER(email) = LOWER($1)`
	var emp models.Employee
	if err := r.db.GetContext(ctx, &emp, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get employee by email: %w", err)
	}
	return &emp, nil
}

// List returns employees matching the filter with a total count.
func (r *EmployeeRepository) List(ctx context.Context, status string, search string, page, size int) ([]models.Employee, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, status)
	}
	if search != "" {
		where = append(where, fmt.Sprintf("(emp_id ILIKE $%d OR full_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+search+"%")
	}
	whereClause := strings.Join(where, " AND ")
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT emp_id, full_name, email, designation, role, status, bank_account, bank_ifsc, password_hash, created_at, updated_at
FROM employees WHERE %s ORDER BY emp_id LIMIT %d OFFSET %d`, whereClause, size, offset)
	var rows []models.Employee
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM employees WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return rows, total, nil
}

// ActiveEmpIDs returns the set of active employee IDs for directory lookups.
func (r *EmployeeRepository) ActiveEmpIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT emp_id FROM employees WHERE status = 'ACTIVE'`); err != nil {
		return nil, fmt.Errorf("active employee ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Create inserts a new employee.
func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	now := time.Now().UTC()
	emp.CreatedAt = now
	emp.UpdatedAt = now
	query := `INSERT INTO employees (emp_id, full_name, email, designation, role, status, bank_account, bank_ifsc, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		emp.EmpID, emp.FullName, emp.Email, emp.Designation, emp.Role, emp.Status,
		emp.BankAccount, emp.BankIFSC, emp.PasswordHash, emp.CreatedAt, emp.UpdatedAt); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// Update persists directory fields for an existing employee.
func (r *EmployeeRepository) Update(ctx context.Context, emp *models.Employee) error {
	emp.UpdatedAt = time.Now().UTC()
	query := `UPDATE employees
SET full_name = $2, email = $3, designation = $4, role = $5, status = $6, bank_account = $7, bank_ifsc = $8, updated_at = $9
WHERE emp_id = $1`
	res, err := r.db.ExecContext(ctx, query,
		emp.EmpID, emp.FullName, emp.Email, emp.Designation, emp.Role, emp.Status,
		emp.BankAccount, emp.BankIFSC, emp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsConflict reports which of the identity fields already exist.
func (r *EmployeeRepository) ExistsConflict(ctx context.Context, empID, email string) ([]string, error) {
	rows := []struct {
		EmpID string `db:"emp_id"`
		Email string `db:"email"`
	}{}
	query := `SELECT emp_id, email FROM employees WHERE emp_id = $1 OR LOWER(email) = LOWER($2)`
	if err := r.db.SelectContext(ctx, &rows, query, empID, email); err != nil {
		return nil, fmt.Errorf("employee conflict check: %w", err)
	}
	var fields []string
	for _, row := range rows {
		if row.EmpID == empID {
			fields = append(fields, "emp_id")
		}
		if strings.EqualFold(row.Email, email) {
			fields = append(fields, "email")
		}
	}
	return fields, nil
}
