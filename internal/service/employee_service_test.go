package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hrms-payroll-api/internal/cleaner"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type mockEmployeeRepo struct {
	byID      map[string]*models.Employee
	conflicts []string
}

func (m *mockEmployeeRepo) GetByEmpID(_ context.Context, empID string) (*models.Employee, error) {
	if e, ok := m.byID[empID]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEmployeeRepo) GetByEmail(_ context.Context, email string) (*models.Employee, error) {
	for _, e := range m.byID {
		if e.Email == email {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEmployeeRepo) List(_ context.Context, _, search string, _, _ int) ([]models.Employee, int, error) {
	var out []models.Employee
	for _, e := range m.byID {
		if search == "" || strings.Contains(strings.ToLower(e.FullName), strings.ToLower(search)) {
			out = append(out, *e)
		}
	}
	return out, len(out), nil
}

func (m *mockEmployeeRepo) Create(_ context.Context, emp *models.Employee) error {
	if m.byID == nil {
		m.byID = map[string]*models.Employee{}
	}
	m.byID[emp.EmpID] = emp
	return nil
}

func (m *mockEmployeeRepo) Update(_ context.Context, emp *models.Employee) error {
	if _, ok := m.byID[emp.EmpID]; !ok {
		return sql.ErrNoRows
	}
	m.byID[emp.EmpID] = emp
	return nil
}

func (m *mockEmployeeRepo) ExistsConflict(_ context.Context, _, _ string) ([]string, error) {
	return m.conflicts, nil
}

func newEmployeeFixture() (*EmployeeService, *mockEmployeeRepo) {
	repo := &mockEmployeeRepo{byID: map[string]*models.Employee{}}
	svc := NewEmployeeService(repo, cleaner.NewNormalizer("RBIS"), nil, nil)
	return svc, repo
}

func onboardReq() OnboardRequest {
	return OnboardRequest{
		EmpID:    "42",
		FullName: "Asha Verma",
		Email:    "Asha.Verma@Example.com",
		Role:     "employee",
		Password: "s3cret-pass",
	}
}

func TestOnboardNormalizesIdentity(t *testing.T) {
	svc, repo := newEmployeeFixture()

	emp, err := svc.Onboard(context.Background(), onboardReq())
	require.NoError(t, err)
	assert.Equal(t, "RBIS0042", emp.EmpID)
	assert.Equal(t, "asha.verma@example.com", emp.Email)
	assert.Equal(t, models.RoleEmployee, emp.Role)
	require.Contains(t, repo.byID, "RBIS0042")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte("s3cret-pass")))
}

func TestOnboardReportsCollidingFields(t *testing.T) {
	svc, repo := newEmployeeFixture()
	repo.conflicts = []string{"emp_id", "email"}

	_, err := svc.Onboard(context.Background(), onboardReq())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "emp_id")
	assert.Contains(t, appErr.Message, "email")
}

func TestOnboardRejectsUnknownRole(t *testing.T) {
	svc, _ := newEmployeeFixture()

	req := onboardReq()
	req.Role = "INTERN"
	_, err := svc.Onboard(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOnboardRejectsUnnormalizableID(t *testing.T) {
	svc, _ := newEmployeeFixture()

	req := onboardReq()
	req.EmpID = "ACME-12"
	_, err := svc.Onboard(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEmployeeGetAcceptsRawID(t *testing.T) {
	svc, _ := newEmployeeFixture()
	_, err := svc.Onboard(context.Background(), onboardReq())
	require.NoError(t, err)

	emp, err := svc.Get(context.Background(), "rbis-42")
	require.NoError(t, err)
	assert.Equal(t, "RBIS0042", emp.EmpID)

	_, err = svc.Get(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEmployeeUpdatePatchesBankDetails(t *testing.T) {
	svc, _ := newEmployeeFixture()
	_, err := svc.Onboard(context.Background(), onboardReq())
	require.NoError(t, err)

	account := "1234567890"
	ifsc := "HDFC0000001"
	emp, err := svc.Update(context.Background(), "42", UpdateEmployeeRequest{
		BankAccount: &account,
		BankIFSC:    &ifsc,
	})
	require.NoError(t, err)
	assert.True(t, emp.HasBankDetails())
	assert.Equal(t, "Asha Verma", emp.FullName)
}
