package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type mockDeductionAdmin struct {
	mockDeductionRepo
	types       map[int64]*models.DeductionType
	assigned    []*models.EmployeeDeduction
	deactivated []int64
}

func (m *mockDeductionAdmin) GetType(_ context.Context, id int64) (*models.DeductionType, error) {
	if dt, ok := m.types[id]; ok {
		return dt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDeductionAdmin) ListTypes(_ context.Context) ([]models.DeductionType, error) {
	var out []models.DeductionType
	for _, dt := range m.types {
		out = append(out, *dt)
	}
	return out, nil
}

func (m *mockDeductionAdmin) Assign(_ context.Context, d *models.EmployeeDeduction) error {
	d.ID = int64(len(m.assigned) + 1)
	m.assigned = append(m.assigned, d)
	return nil
}

func (m *mockDeductionAdmin) Deactivate(_ context.Context, id int64) error {
	if id > int64(len(m.assigned)) {
		return sql.ErrNoRows
	}
	m.deactivated = append(m.deactivated, id)
	return nil
}

func newSalaryFixture() (*SalaryService, *mockSalaryRepo, *mockDeductionAdmin) {
	salaries := &mockSalaryRepo{}
	deductions := &mockDeductionAdmin{types: map[int64]*models.DeductionType{
		1: {ID: 1, Name: "Provident Fund", CalculationType: models.CalcPercentage},
		2: {ID: 2, Name: "Professional Tax", CalculationType: models.CalcFixed},
	}}
	employees := &mockEmployeeDir{byID: map[string]*models.Employee{
		"RBIS0042": {EmpID: "RBIS0042", FullName: "Asha Verma"},
	}}
	return NewSalaryService(salaries, deductions, employees, nil, nil), salaries, deductions
}

func assignReq(basic string) AssignSalaryRequest {
	return AssignSalaryRequest{
		EmpID:         "RBIS0042",
		BasicSalary:   basic,
		HRA:           "20000",
		EffectiveFrom: "2026-01-01",
	}
}

func TestSalaryAssignComputesGross(t *testing.T) {
	svc, _, _ := newSalaryFixture()

	structure, err := svc.Assign(context.Background(), assignReq("50000"), "HR001")
	require.NoError(t, err)
	assert.Equal(t, "70000.00", structure.GrossSalary.StringFixed(2))
	require.NotNil(t, structure.CreatedBy)
	assert.Equal(t, "HR001", *structure.CreatedBy)
}

func TestSalaryReassignSupersedesActive(t *testing.T) {
	svc, salaries, _ := newSalaryFixture()

	_, err := svc.Assign(context.Background(), assignReq("50000"), "HR001")
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), assignReq("60000"), "HR001")
	require.NoError(t, err)

	active, err := svc.Active(context.Background(), "RBIS0042")
	require.NoError(t, err)
	assert.Equal(t, "80000.00", active.GrossSalary.StringFixed(2))
	assert.Len(t, salaries.history, 2)
}

func TestSalaryAssignUnknownEmployee(t *testing.T) {
	svc, _, _ := newSalaryFixture()

	req := assignReq("50000")
	req.EmpID = "RBIS9999"
	_, err := svc.Assign(context.Background(), req, "HR001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSalaryAssignRejectsNegativeComponent(t *testing.T) {
	svc, _, _ := newSalaryFixture()

	req := assignReq("50000")
	req.HRA = "-100"
	_, err := svc.Assign(context.Background(), req, "HR001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSalaryActiveMissingIsNoStructureError(t *testing.T) {
	svc, _, _ := newSalaryFixture()

	_, err := svc.Active(context.Background(), "RBIS0042")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSalaryStructure.Code, appErrors.FromError(err).Code)
}

func TestDeductionAssignInheritsCalculationType(t *testing.T) {
	svc, _, deductions := newSalaryFixture()

	d, err := svc.AssignDeduction(context.Background(), AssignDeductionRequest{
		EmpID: "RBIS0042", DeductionTypeID: 1, Value: "12", EffectiveFrom: "2026-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CalcPercentage, d.CalculationType)
	assert.True(t, d.IsActive)
	assert.Len(t, deductions.assigned, 1)
}

func TestDeductionAssignPercentageOverHundredRejected(t *testing.T) {
	svc, _, _ := newSalaryFixture()

	_, err := svc.AssignDeduction(context.Background(), AssignDeductionRequest{
		EmpID: "RBIS0042", DeductionTypeID: 1, Value: "120", EffectiveFrom: "2026-01-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDeductionRemoveUnknownNotFound(t *testing.T) {
	svc, _, _ := newSalaryFixture()

	err := svc.RemoveDeduction(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
