package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type deductionAdmin interface {
	deductionRepository
	GetType(ctx context.Context, id int64) (*models.DeductionType, error)
	ListTypes(ctx context.Context) ([]models.DeductionType, error)
	Assign(ctx context.Context, d *models.EmployeeDeduction) error
	Deactivate(ctx context.Context, id int64) error
}

// SalaryService manages salary structures and deduction assignments.
type SalaryService struct {
	salaries   salaryRepository
	deductions deductionAdmin
	employees  employeeLookup
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSalaryService constructs the salary service.
func NewSalaryService(salaries salaryRepository, deductions deductionAdmin, employees employeeLookup, validate *validator.Validate, logger *zap.Logger) *SalaryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalaryService{salaries: salaries, deductions: deductions, employees: employees, validator: validate, logger: logger}
}

// AssignSalaryRequest carries a new salary structure. Component amounts are
// decimal strings so no precision is lost in transport.
type AssignSalaryRequest struct {
	EmpID              string `json:"emp_id" validate:"required"`
	BasicSalary        string `json:"basic_salary" validate:"required"`
	HRA                string `json:"hra"`
	TransportAllowance string `json:"transport_allowance"`
	DearnessAllowance  string `json:"dearness_allowance"`
	MedicalAllowance   string `json:"medical_allowance"`
	SpecialAllowance   string `json:"special_allowance"`
	OtherAllowances    string `json:"other_allowances"`
	EffectiveFrom      string `json:"effective_from" validate:"required"`
}

// Assign replaces the employee's active salary structure.
func (s *SalaryService) Assign(ctx context.Context, req AssignSalaryRequest, createdBy string) (*models.SalaryStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.employees.GetByEmpID(ctx, req.EmpID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "employee lookup failed")
	}
	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_from, expected YYYY-MM-DD")
	}

	structure := &models.SalaryStructure{
		EmpID:         req.EmpID,
		EffectiveFrom: effectiveFrom,
		CreatedBy:     &createdBy,
	}
	fields := []struct {
		raw      string
		dest     *decimal.Decimal
		name     string
		required bool
	}{
		{req.BasicSalary, &structure.BasicSalary, "basic_salary", true},
		{req.HRA, &structure.HRA, "hra", false},
		{req.TransportAllowance, &structure.TransportAllowance, "transport_allowance", false},
		{req.DearnessAllowance, &structure.DearnessAllowance, "dearness_allowance", false},
		{req.MedicalAllowance, &structure.MedicalAllowance, "medical_allowance", false},
		{req.SpecialAllowance, &structure.SpecialAllowance, "special_allowance", false},
		{req.OtherAllowances, &structure.OtherAllowances, "other_allowances", false},
	}
	for _, f := range fields {
		if f.raw == "" {
			if f.required {
				return nil, appErrors.Clone(appErrors.ErrValidation, f.name+" is required")
			}
			*f.dest = decimal.Zero
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil || v.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid amount for "+f.name)
		}
		*f.dest = v
	}
	if structure.BasicSalary.LessThanOrEqual(decimal.Zero) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "basic_salary must be positive")
	}
	structure.GrossSalary = structure.Gross()

	if err := s.salaries.Assign(ctx, structure); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "salary assignment failed")
	}
	s.logger.Info("salary structure assigned",
		zap.String("emp_id", req.EmpID),
		zap.String("gross", structure.GrossSalary.StringFixed(2)))
	return structure, nil
}

// Active returns the employee's active salary structure.
func (s *SalaryService) Active(ctx context.Context, empID string) (*models.SalaryStructure, error) {
	structure, err := s.salaries.GetActive(ctx, empID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNoSalaryStructure, "no active salary structure found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "salary lookup failed")
	}
	return structure, nil
}

// History returns all of the employee's structures, newest first.
func (s *SalaryService) History(ctx context.Context, empID string) ([]models.SalaryStructure, error) {
	rows, err := s.salaries.History(ctx, empID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "salary history failed")
	}
	return rows, nil
}

// AssignDeductionRequest attaches a deduction to an employee.
type AssignDeductionRequest struct {
	EmpID           string `json:"emp_id" validate:"required"`
	DeductionTypeID int64  `json:"deduction_type_id" validate:"required"`
	Value           string `json:"value" validate:"required"`
	EffectiveFrom   string `json:"effective_from" validate:"required"`
}

// AssignDeduction activates a deduction for the employee. The calculation
// type is inherited from the catalog entry.
func (s *SalaryService) AssignDeduction(ctx context.Context, req AssignDeductionRequest) (*models.EmployeeDeduction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	dt, err := s.deductions.GetType(ctx, req.DeductionTypeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deduction type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deduction type lookup failed")
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil || value.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid deduction value")
	}
	if dt.CalculationType == models.CalcPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "percentage deduction cannot exceed 100")
	}
	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_from, expected YYYY-MM-DD")
	}

	d := &models.EmployeeDeduction{
		EmpID:           req.EmpID,
		DeductionTypeID: req.DeductionTypeID,
		CalculationType: dt.CalculationType,
		Value:           value,
		IsActive:        true,
		EffectiveFrom:   effectiveFrom,
	}
	if err := s.deductions.Assign(ctx, d); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deduction assignment failed")
	}
	return d, nil
}

// RemoveDeduction deactivates an employee deduction.
func (s *SalaryService) RemoveDeduction(ctx context.Context, id int64) error {
	if err := s.deductions.Deactivate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "deduction assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deduction removal failed")
	}
	return nil
}

// DeductionTypes lists the active catalog.
func (s *SalaryService) DeductionTypes(ctx context.Context) ([]models.DeductionType, error) {
	rows, err := s.deductions.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deduction types")
	}
	return rows, nil
}

// EmployeeDeductions lists the employee's active deductions.
func (s *SalaryService) EmployeeDeductions(ctx context.Context, empID string) ([]models.EmployeeDeduction, error) {
	rows, err := s.deductions.ActiveForEmployee(ctx, empID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deductions")
	}
	return rows, nil
}
