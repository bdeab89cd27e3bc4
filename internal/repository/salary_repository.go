package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

// SalaryRepository handles persistence for salary structures.
type SalaryRepository struct {
	db *sqlx.DB
}

// NewSalaryRepository constructs the repository.
func NewSalaryRepository(db *sqlx.DB) *SalaryRepository {
	return &SalaryRepository{db: db}
}

const salaryColumns = `id, emp_id, basic_salary, hra, transport_allowance, dearness_allowance, medical_allowance, special_allowance, other_allowances, gross_salary, effective_from, effective_to, is_active, created_by, created_at`

// GetActive returns the single active structure for an employee or
// sql.ErrNoRows when none has been assigned.
func (r *SalaryRepository) GetActive(ctx context.Context, empID string) (*models.SalaryStructure, error) {
	query := fmt.Sprintf(`SELECT %s FROM salary_structures WHERE emp_id = $1 AND is_active = true`, salaryColumns)
	var s models.SalaryStructure
	if err := r.db.GetContext(ctx, &s, query, empID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get active salary: %w", err)
	}
	return &s, nil
}

// Assign deactivates any previous structure and inserts the new one inside
// a transaction, keeping exactly one active row per employee.
func (r *SalaryRepository) Assign(ctx context.Context, s *models.SalaryStructure) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin salary assignment: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE salary_structures SET is_active = false, effective_to = $2 WHERE emp_id = $1 AND is_active = true`,
		s.EmpID, s.EffectiveFrom); err != nil {
		return fmt.Errorf("deactivate previous salary: %w", err)
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.IsActive = true
	query := `INSERT INTO salary_structures (emp_id, basic_salary, hra, transport_allowance, dearness_allowance, medical_allowance, special_allowance, other_allowances, gross_salary, effective_from, is_active, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	if err := tx.GetContext(ctx, &s.ID, query,
		s.EmpID, s.BasicSalary, s.HRA, s.TransportAllowance, s.DearnessAllowance,
		s.MedicalAllowance, s.SpecialAllowance, s.OtherAllowances, s.GrossSalary,
		s.EffectiveFrom, s.IsActive, s.CreatedBy, s.CreatedAt); err != nil {
		return fmt.Errorf("insert salary structure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit salary assignment: %w", err)
	}
	commit = true
	return nil
}

// History returns all structures for an employee, newest first.
func (r *SalaryRepository) History(ctx context.Context, empID string) ([]models.SalaryStructure, error) {
	var rows []models.SalaryStructure
	query := fmt.Sprintf(`SELECT %s FROM salary_structures WHERE emp_id = $1 ORDER BY effective_from DESC`, salaryColumns)
	if err := r.db.SelectContext(ctx, &rows, query, empID); err != nil {
		return nil, fmt.Errorf("salary history: %w", err)
	}
	return rows, nil
}
