package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/hrms-payroll-api/internal/calendar"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	"github.com/noah-isme/hrms-payroll-api/internal/payout"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type salaryRepository interface {
	GetActive(ctx context.Context, empID string) (*models.SalaryStructure, error)
	Assign(ctx context.Context, s *models.SalaryStructure) error
	History(ctx context.Context, empID string) ([]models.SalaryStructure, error)
}

type deductionRepository interface {
	ActiveForEmployee(ctx context.Context, empID string) ([]models.EmployeeDeduction, error)
	TypeNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

type overtimeTotals interface {
	ApprovedTotals(ctx context.Context, empID string, month, year int) (decimal.Decimal, decimal.Decimal, error)
}

type payrollRepository interface {
	Get(ctx context.Context, id int64) (*models.PayrollRecord, error)
	GetByPeriod(ctx context.Context, empID string, month, year int) (*models.PayrollRecord, error)
	Create(ctx context.Context, rec *models.PayrollRecord) error
	MarkPaid(ctx context.Context, id int64, method string, transactionID, bankReference *string, paymentDate time.Time) error
	List(ctx context.Context, empID string, month, year, page, size int) ([]models.PayrollRecord, int, error)
}

type attendanceSummarizer interface {
	MonthlySummary(ctx context.Context, empID string, month, year int) (*models.AttendanceSummary, error)
}

type employeeLookup interface {
	GetByEmpID(ctx context.Context, empID string) (*models.Employee, error)
}

// PayrollService computes and freezes monthly payroll snapshots and hands
// paid runs to the payout gateway.
type PayrollService struct {
	payrolls   payrollRepository
	salaries   salaryRepository
	deductions deductionRepository
	overtime   overtimeTotals
	attendance attendanceSummarizer
	employees  employeeLookup
	gateway    payout.Client
	logger     *zap.Logger
}

// NewPayrollService constructs the payroll service.
func NewPayrollService(payrolls payrollRepository, salaries salaryRepository, deductions deductionRepository, overtime overtimeTotals, attendance attendanceSummarizer, employees employeeLookup, gateway payout.Client, logger *zap.Logger) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{
		payrolls:   payrolls,
		salaries:   salaries,
		deductions: deductions,
		overtime:   overtime,
		attendance: attendance,
		employees:  employees,
		gateway:    gateway,
		logger:     logger,
	}
}

// Process computes one employee's payroll for a month and freezes it. A
// period already processed is rejected, never recomputed.
func (s *PayrollService) Process(ctx context.Context, empID string, month, year int, processedBy string) (*models.PayrollRecord, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if _, err := s.payrolls.GetByPeriod(ctx, empID, month, year); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicatePeriod,
			fmt.Sprintf("payroll already processed for %s %d/%d", empID, month, year))
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payroll period lookup failed")
	}

	structure, err := s.salaries.GetActive(ctx, empID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNoSalaryStructure,
				fmt.Sprintf("no active salary structure for %s", empID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "salary lookup failed")
	}

	summary, err := s.attendance.MonthlySummary(ctx, empID, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance summary failed")
	}

	otHours, otAmount, err := s.overtime.ApprovedTotals(ctx, empID, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "overtime totals failed")
	}

	lines, totalDeductions, err := s.deductionLines(ctx, empID, structure.BasicSalary)
	if err != nil {
		return nil, err
	}
	details, err := json.Marshal(lines)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deduction detail encoding failed")
	}
	detailsStr := string(details)

	// Gross freezes the structure's component sum; overtime enters only the
	// net figure.
	gross := structure.Gross().Round(2)
	net := gross.Add(otAmount).Sub(totalDeductions).Round(2)

	workingDays := calendar.WorkingDaysInMonth(month, year)
	absentDays := deriveAbsentDays(workingDays, summary.PresentDays, summary.LeaveDays)

	now := time.Now().UTC()
	rec := &models.PayrollRecord{
		EmpID:              empID,
		Month:              month,
		Year:               year,
		BasicSalary:        structure.BasicSalary,
		HRA:                structure.HRA,
		TransportAllowance: structure.TransportAllowance,
		DearnessAllowance:  structure.DearnessAllowance,
		MedicalAllowance:   structure.MedicalAllowance,
		SpecialAllowance:   structure.SpecialAllowance,
		OtherAllowances:    structure.OtherAllowances,
		OvertimeAmount:     otAmount,
		OvertimeHours:      otHours,
		GrossSalary:        gross,
		TotalDeductions:    totalDeductions,
		NetSalary:          net,
		DeductionDetails:   &detailsStr,
		WorkingDays:        workingDays,
		PresentDays:        summary.PresentDays,
		AbsentDays:         absentDays,
		LeaveDays:          summary.LeaveDays,
		Status:             models.PayrollProcessed,
		ProcessedBy:        &processedBy,
		ProcessedAt:        &now,
	}
	if err := s.payrolls.Create(ctx, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payroll create failed")
	}
	s.logger.Info("payroll processed",
		zap.String("emp_id", empID),
		zap.Int("month", month),
		zap.Int("year", year),
		zap.String("net_salary", net.StringFixed(2)))
	return rec, nil
}

// ProcessAllResult summarises a batch payroll run.
type ProcessAllResult struct {
	Processed int               `json:"processed"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// ProcessAll runs Process for every listed employee, collecting per-employee
// failures instead of aborting the batch.
func (s *PayrollService) ProcessAll(ctx context.Context, empIDs []string, month, year int, processedBy string) (*ProcessAllResult, error) {
	result := &ProcessAllResult{Failed: map[string]string{}}
	for _, empID := range empIDs {
		if _, err := s.Process(ctx, empID, month, year, processedBy); err != nil {
			result.Failed[empID] = err.Error()
			continue
		}
		result.Processed++
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// Pay disburses a processed payroll through the payout gateway and records
// the payment against the snapshot.
func (s *PayrollService) Pay(ctx context.Context, payrollID int64, method string) (*models.PayrollRecord, error) {
	rec, err := s.payrolls.Get(ctx, payrollID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payroll lookup failed")
	}
	if rec.Status == models.PayrollPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payroll already paid")
	}
	if rec.Status != models.PayrollProcessed {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("payroll is %s, payment requires PROCESSED", rec.Status))
	}

	emp, err := s.employees.GetByEmpID(ctx, rec.EmpID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "employee lookup failed")
	}
	if !emp.HasBankDetails() {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("employee %s has no bank details on file", emp.EmpID))
	}

	reference := fmt.Sprintf("SAL-%s-%d%02d", rec.EmpID, rec.Year, rec.Month)
	transfer, err := s.gateway.Transfer(ctx, payout.TransferRequest{
		EmpID:       emp.EmpID,
		FullName:    emp.FullName,
		BankAccount: *emp.BankAccount,
		BankIFSC:    *emp.BankIFSC,
		Amount:      rec.NetSalary,
		Currency:    "INR",
		Reference:   reference,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var bankRef *string
	if transfer.BankReference != "" {
		bankRef = &transfer.BankReference
	}
	if err := s.payrolls.MarkPaid(ctx, payrollID, method, &transfer.TransactionID, bankRef, now); err != nil {
		// The money moved; surface the bookkeeping failure loudly.
		s.logger.Error("payment recorded at gateway but snapshot update failed",
			zap.Int64("payroll_id", payrollID),
			zap.String("transaction_id", transfer.TransactionID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payment bookkeeping failed")
	}

	rec.Status = models.PayrollPaid
	rec.PaymentDate = &now
	rec.PaymentMethod = &method
	rec.TransactionID = &transfer.TransactionID
	rec.BankReference = bankRef
	return rec, nil
}

// Get returns one payroll snapshot.
func (s *PayrollService) Get(ctx context.Context, id int64) (*models.PayrollRecord, error) {
	rec, err := s.payrolls.Get(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payroll lookup failed")
	}
	return rec, nil
}

// GetByPeriod returns one employee's snapshot for a period.
func (s *PayrollService) GetByPeriod(ctx context.Context, empID string, month, year int) (*models.PayrollRecord, error) {
	rec, err := s.payrolls.GetByPeriod(ctx, empID, month, year)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payroll lookup failed")
	}
	return rec, nil
}

// List returns paginated payroll snapshots.
func (s *PayrollService) List(ctx context.Context, empID string, month, year, page, size int) ([]models.PayrollRecord, *models.Pagination, error) {
	rows, total, err := s.payrolls.List(ctx, empID, month, year, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payroll")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// deductionLines itemizes the employee's active deductions against the
// given basic salary.
func (s *PayrollService) deductionLines(ctx context.Context, empID string, basic decimal.Decimal) ([]models.DeductionLine, decimal.Decimal, error) {
	active, err := s.deductions.ActiveForEmployee(ctx, empID)
	if err != nil {
		return nil, decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deduction lookup failed")
	}
	ids := make([]int64, len(active))
	for i, d := range active {
		ids[i] = d.DeductionTypeID
	}
	names, err := s.deductions.TypeNames(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deduction names failed")
	}

	lines := make([]models.DeductionLine, 0, len(active))
	total := decimal.Zero
	for i := range active {
		amount := active[i].Amount(basic)
		lines = append(lines, models.DeductionLine{
			Name:   names[active[i].DeductionTypeID],
			Type:   active[i].CalculationType,
			Value:  active[i].Value,
			Amount: amount,
		})
		total = total.Add(amount)
	}
	return lines, total.Round(2), nil
}
