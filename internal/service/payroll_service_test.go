package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	"github.com/noah-isme/hrms-payroll-api/internal/payout"
	"github.com/noah-isme/hrms-payroll-api/pkg/config"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type mockSalaryRepo struct {
	active  map[string]*models.SalaryStructure
	history []models.SalaryStructure
}

func (m *mockSalaryRepo) GetActive(_ context.Context, empID string) (*models.SalaryStructure, error) {
	if s, ok := m.active[empID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSalaryRepo) Assign(_ context.Context, s *models.SalaryStructure) error {
	if m.active == nil {
		m.active = map[string]*models.SalaryStructure{}
	}
	m.active[s.EmpID] = s
	m.history = append(m.history, *s)
	return nil
}

func (m *mockSalaryRepo) History(_ context.Context, _ string) ([]models.SalaryStructure, error) {
	return m.history, nil
}

type mockDeductionRepo struct {
	active map[string][]models.EmployeeDeduction
	names  map[int64]string
}

func (m *mockDeductionRepo) ActiveForEmployee(_ context.Context, empID string) ([]models.EmployeeDeduction, error) {
	return m.active[empID], nil
}

func (m *mockDeductionRepo) TypeNames(_ context.Context, _ []int64) (map[int64]string, error) {
	return m.names, nil
}

type mockOvertimeTotals struct {
	hours  decimal.Decimal
	amount decimal.Decimal
}

func (m *mockOvertimeTotals) ApprovedTotals(_ context.Context, _ string, _, _ int) (decimal.Decimal, decimal.Decimal, error) {
	return m.hours, m.amount, nil
}

type mockPayrollRepo struct {
	byPeriod map[string]*models.PayrollRecord
	byID     map[int64]*models.PayrollRecord
	paid     map[int64]string
}

func periodKey(empID string, month, year int) string {
	return fmt.Sprintf("%s|%d|%d", empID, month, year)
}

func (m *mockPayrollRepo) Get(_ context.Context, id int64) (*models.PayrollRecord, error) {
	if rec, ok := m.byID[id]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPayrollRepo) GetByPeriod(_ context.Context, empID string, month, year int) (*models.PayrollRecord, error) {
	if rec, ok := m.byPeriod[periodKey(empID, month, year)]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPayrollRepo) Create(_ context.Context, rec *models.PayrollRecord) error {
	if m.byPeriod == nil {
		m.byPeriod = map[string]*models.PayrollRecord{}
	}
	if m.byID == nil {
		m.byID = map[int64]*models.PayrollRecord{}
	}
	rec.ID = int64(len(m.byID) + 1)
	m.byPeriod[periodKey(rec.EmpID, rec.Month, rec.Year)] = rec
	m.byID[rec.ID] = rec
	return nil
}

func (m *mockPayrollRepo) MarkPaid(_ context.Context, id int64, method string, transactionID, _ *string, _ time.Time) error {
	if m.paid == nil {
		m.paid = map[int64]string{}
	}
	rec, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	rec.Status = models.PayrollPaid
	rec.PaymentMethod = &method
	rec.TransactionID = transactionID
	m.paid[id] = method
	return nil
}

func (m *mockPayrollRepo) List(_ context.Context, _ string, _, _, _, _ int) ([]models.PayrollRecord, int, error) {
	return nil, 0, nil
}

type mockSummarizer struct {
	summary models.AttendanceSummary
}

func (m *mockSummarizer) MonthlySummary(_ context.Context, _ string, _, _ int) (*models.AttendanceSummary, error) {
	cp := m.summary
	return &cp, nil
}

type mockEmployeeDir struct {
	byID map[string]*models.Employee
}

func (m *mockEmployeeDir) GetByEmpID(_ context.Context, empID string) (*models.Employee, error) {
	if e, ok := m.byID[empID]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPayrollFixture() (*PayrollService, *mockPayrollRepo) {
	salaries := &mockSalaryRepo{active: map[string]*models.SalaryStructure{
		"RBIS0042": {
			EmpID:       "RBIS0042",
			BasicSalary: dec("50000"),
			HRA:         dec("20000"),
		},
	}}
	deductions := &mockDeductionRepo{
		active: map[string][]models.EmployeeDeduction{
			"RBIS0042": {
				{DeductionTypeID: 1, CalculationType: models.CalcPercentage, Value: dec("12")},
				{DeductionTypeID: 2, CalculationType: models.CalcFixed, Value: dec("200")},
			},
		},
		names: map[int64]string{1: "Provident Fund", 2: "Professional Tax"},
	}
	payrolls := &mockPayrollRepo{}
	bank := "1234567890"
	ifsc := "HDFC0000001"
	employees := &mockEmployeeDir{byID: map[string]*models.Employee{
		"RBIS0042": {EmpID: "RBIS0042", FullName: "Asha Verma", BankAccount: &bank, BankIFSC: &ifsc},
		"RBIS0007": {EmpID: "RBIS0007", FullName: "No Bank"},
	}}
	svc := NewPayrollService(payrolls, salaries, deductions, &mockOvertimeTotals{hours: decimal.Zero, amount: decimal.Zero},
		&mockSummarizer{summary: models.AttendanceSummary{PresentDays: 24, LeaveDays: 2}},
		employees, payout.New(config.PayoutConfig{Mode: "dryrun"}), nil)
	return svc, payrolls
}

func TestPayrollProcessComputesNet(t *testing.T) {
	svc, _ := newPayrollFixture()

	rec, err := svc.Process(context.Background(), "RBIS0042", 1, 2026, "HR001")
	require.NoError(t, err)

	// 12% of basic 50000 is 6000.00; fixed 200 on top.
	assert.True(t, rec.TotalDeductions.Equal(dec("6200")), "total deductions %s", rec.TotalDeductions)
	assert.True(t, rec.GrossSalary.Equal(dec("70000")), "gross %s", rec.GrossSalary)
	assert.True(t, rec.NetSalary.Equal(dec("63800")), "net %s", rec.NetSalary)
	assert.Equal(t, models.PayrollProcessed, rec.Status)
	assert.Equal(t, 24.0, rec.PresentDays)
	assert.Equal(t, 2, rec.LeaveDays)
	// January 2026 has 27 non-Sundays; the one unaccounted working day is
	// absent.
	assert.Equal(t, 27, rec.WorkingDays)
	assert.Equal(t, 1.0, rec.AbsentDays)
	require.NotNil(t, rec.DeductionDetails)
	assert.Contains(t, *rec.DeductionDetails, "Provident Fund")
}

func TestPayrollProcessDuplicatePeriodRejected(t *testing.T) {
	svc, _ := newPayrollFixture()

	_, err := svc.Process(context.Background(), "RBIS0042", 1, 2026, "HR001")
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), "RBIS0042", 1, 2026, "HR001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicatePeriod.Code, appErrors.FromError(err).Code)
}

func TestPayrollProcessNoSalaryStructure(t *testing.T) {
	svc, _ := newPayrollFixture()

	_, err := svc.Process(context.Background(), "RBIS0007", 1, 2026, "HR001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSalaryStructure.Code, appErrors.FromError(err).Code)
}

func TestPayrollProcessOvertimeEntersNetNotGross(t *testing.T) {
	svc, _ := newPayrollFixture()
	svc.overtime = &mockOvertimeTotals{hours: dec("4"), amount: dec("1500")}

	rec, err := svc.Process(context.Background(), "RBIS0042", 2, 2026, "HR001")
	require.NoError(t, err)
	// The frozen gross stays the component sum; overtime lifts only net.
	assert.True(t, rec.GrossSalary.Equal(dec("70000")), "gross %s", rec.GrossSalary)
	assert.True(t, rec.OvertimeAmount.Equal(dec("1500")), "overtime %s", rec.OvertimeAmount)
	assert.True(t, rec.NetSalary.Equal(dec("65300")), "net %s", rec.NetSalary)
}

func TestPayrollProcessUnrecordedWorkingDaysCountAbsent(t *testing.T) {
	svc, _ := newPayrollFixture()
	svc.attendance = &mockSummarizer{summary: models.AttendanceSummary{PresentDays: 10}}

	// June 2026 has 26 non-Sundays; 16 of them have no attendance row at all.
	rec, err := svc.Process(context.Background(), "RBIS0042", 6, 2026, "HR001")
	require.NoError(t, err)
	assert.Equal(t, 26, rec.WorkingDays)
	assert.Equal(t, 16.0, rec.AbsentDays)
}

func TestPayrollPayDisbursesAndRecords(t *testing.T) {
	svc, payrolls := newPayrollFixture()

	rec, err := svc.Process(context.Background(), "RBIS0042", 1, 2026, "HR001")
	require.NoError(t, err)

	paid, err := svc.Pay(context.Background(), rec.ID, "BANK_TRANSFER")
	require.NoError(t, err)
	assert.Equal(t, models.PayrollPaid, paid.Status)
	require.NotNil(t, paid.TransactionID)
	assert.Equal(t, "BANK_TRANSFER", payrolls.paid[rec.ID])

	// A paid snapshot cannot be paid again.
	_, err = svc.Pay(context.Background(), rec.ID, "BANK_TRANSFER")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPayrollPayRequiresBankDetails(t *testing.T) {
	svc, payrolls := newPayrollFixture()
	svc.salaries.(*mockSalaryRepo).active["RBIS0007"] = &models.SalaryStructure{
		EmpID:       "RBIS0007",
		BasicSalary: dec("30000"),
	}

	rec, err := svc.Process(context.Background(), "RBIS0007", 1, 2026, "HR001")
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), rec.ID, "BANK_TRANSFER")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, payrolls.paid)
}
