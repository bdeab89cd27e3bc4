package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

// DeductionRepository handles persistence for deduction catalog entries and
// per-employee assignments.
type DeductionRepository struct {
	db *sqlx.DB
}

// NewDeductionRepository constructs the repository.
func NewDeductionRepository(db *sqlx.DB) *DeductionRepository {
	return &DeductionRepository{db: db}
}

// GetType returns one deduction type or sql.ErrNoRows.
func (r *DeductionRepository) GetType(ctx context.Context, id int64) (*models.DeductionType, error) {
	query := `SELECT id, name, description, calculation_type, default_value, is_mandatory, is_active
FROM deduction_types WHERE id = $1`
	var dt models.DeductionType
	if err := r.db.GetContext(ctx, &dt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get deduction type: %w", err)
	}
	return &dt, nil
}

// ListTypes returns active deduction types.
func (r *DeductionRepository) ListTypes(ctx context.Context) ([]models.DeductionType, error) {
	var rows []models.DeductionType
	query := `SELECT id, name, description, calculation_type, default_value, is_mandatory, is_active
FROM deduction_types WHERE is_active = true ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list deduction types: %w", err)
	}
	return rows, nil
}

// ActiveForEmployee returns the employee's active deduction assignments.
func (r *DeductionRepository) ActiveForEmployee(ctx context.Context, empID string) ([]models.EmployeeDeduction, error) {
	var rows []models.EmployeeDeduction
	query := `SELECT id, emp_id, deduction_type_id, calculation_type, value, is_active, effective_from, effective_to
FROM employee_deductions WHERE emp_id = $1 AND is_active = true ORDER BY deduction_type_id`
	if err := r.db.SelectContext(ctx, &rows, query, empID); err != nil {
		return nil, fmt.Errorf("active deductions: %w", err)
	}
	return rows, nil
}

// TypeNames resolves the catalog names for the given type ids.
func (r *DeductionRepository) TypeNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	query, args, err := sqlx.In(`SELECT id, name FROM deduction_types WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("deduction type names query: %w", err)
	}
	query = r.db.Rebind(query)
	rows := []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("deduction type names: %w", err)
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

// Assign inserts an employee deduction and fills its id.
func (r *DeductionRepository) Assign(ctx context.Context, d *models.EmployeeDeduction) error {
	query := `INSERT INTO employee_deductions (emp_id, deduction_type_id, calculation_type, value, is_active, effective_from, effective_to)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.GetContext(ctx, &d.ID, query,
		d.EmpID, d.DeductionTypeID, d.CalculationType, d.Value, d.IsActive, d.EffectiveFrom, d.EffectiveTo); err != nil {
		return fmt.Errorf("assign deduction: %w", err)
	}
	return nil
}

// Deactivate ends an employee deduction assignment.
func (r *DeductionRepository) Deactivate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employee_deductions SET is_active = false, effective_to = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate deduction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
