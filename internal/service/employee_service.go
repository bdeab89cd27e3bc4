package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hrms-payroll-api/internal/cleaner"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type employeeRepository interface {
	employeeLookup
	GetByEmail(ctx context.Context, email string) (*models.Employee, error)
	List(ctx context.Context, status, search string, page, size int) ([]models.Employee, int, error)
	Create(ctx context.Context, emp *models.Employee) error
	Update(ctx context.Context, emp *models.Employee) error
	ExistsConflict(ctx context.Context, empID, email string) ([]string, error)
}

// EmployeeService manages the employee directory.
type EmployeeService struct {
	repo       employeeRepository
	normalizer *cleaner.Normalizer
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEmployeeService constructs the employee service.
func NewEmployeeService(repo employeeRepository, normalizer *cleaner.Normalizer, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, normalizer: normalizer, validator: validate, logger: logger}
}

// OnboardRequest creates a directory entry. EmpID accepts any recognizable
// form; it is normalized before storage.
type OnboardRequest struct {
	EmpID       string  `json:"emp_id" validate:"required"`
	FullName    string  `json:"full_name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Designation *string `json:"designation"`
	Role        string  `json:"role" validate:"required"`
	Password    string  `json:"password" validate:"required,min=8"`
	BankAccount *string `json:"bank_account"`
	BankIFSC    *string `json:"bank_ifsc"`
}

// Onboard registers a new employee. Identity collisions are reported field
// by field so the operator can fix the right one.
func (s *EmployeeService) Onboard(ctx context.Context, req OnboardRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	role := models.UserRole(strings.ToUpper(req.Role))
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role '"+req.Role+"'")
	}
	empID := s.normalizer.Normalize(req.EmpID)
	if !s.normalizer.IsStrict(empID) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			"emp_id does not normalize to the expected "+s.normalizer.Prefix()+"#### form")
	}

	conflicts, err := s.repo.ExistsConflict(ctx, empID, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict check failed")
	}
	if len(conflicts) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			"already in use: "+strings.Join(conflicts, ", "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "password hashing failed")
	}

	emp := &models.Employee{
		EmpID:        empID,
		FullName:     req.FullName,
		Email:        strings.ToLower(req.Email),
		Designation:  req.Designation,
		Role:         role,
		Status:       "ACTIVE",
		BankAccount:  req.BankAccount,
		BankIFSC:     req.BankIFSC,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, emp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "employee create failed")
	}
	s.logger.Info("employee onboarded", zap.String("emp_id", empID), zap.String("role", string(role)))
	return emp, nil
}

// Get returns one employee by raw or normalized id.
func (s *EmployeeService) Get(ctx context.Context, rawID string) (*models.Employee, error) {
	empID := s.normalizer.Normalize(rawID)
	emp, err := s.repo.GetByEmpID(ctx, empID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "employee lookup failed")
	}
	return emp, nil
}

// List returns paginated directory entries.
func (s *EmployeeService) List(ctx context.Context, status, search string, page, size int) ([]models.Employee, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, status, search, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateRequest patches directory fields. Nil fields stay untouched.
type UpdateEmployeeRequest struct {
	FullName    *string `json:"full_name"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Designation *string `json:"designation"`
	Role        *string `json:"role"`
	Status      *string `json:"status"`
	BankAccount *string `json:"bank_account"`
	BankIFSC    *string `json:"bank_ifsc"`
}

// Update patches one employee.
func (s *EmployeeService) Update(ctx context.Context, rawID string, req UpdateEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	emp, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		emp.FullName = *req.FullName
	}
	if req.Email != nil {
		emp.Email = strings.ToLower(*req.Email)
	}
	if req.Designation != nil {
		emp.Designation = req.Designation
	}
	if req.Role != nil {
		role := models.UserRole(strings.ToUpper(*req.Role))
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role '"+*req.Role+"'")
		}
		emp.Role = role
	}
	if req.Status != nil {
		emp.Status = strings.ToUpper(*req.Status)
	}
	if req.BankAccount != nil {
		emp.BankAccount = req.BankAccount
	}
	if req.BankIFSC != nil {
		emp.BankIFSC = req.BankIFSC
	}
	if err := s.repo.Update(ctx, emp); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "employee update failed")
	}
	return emp, nil
}
