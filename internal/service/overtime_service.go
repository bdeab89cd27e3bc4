package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

// Overtime is computed against a 176-hour month (22 days at 8 hours).
var monthlyBaseHours = decimal.NewFromInt(176)

// regularDayHours is the span beyond which a day accrues overtime.
var regularDayHours = decimal.NewFromInt(8)

type overtimeRepository interface {
	Get(ctx context.Context, id int64) (*models.OvertimeRecord, error)
	ExistsForDay(ctx context.Context, empID string, date time.Time) (bool, error)
	Create(ctx context.Context, rec *models.OvertimeRecord) error
	UpdateStatus(ctx context.Context, id int64, status models.OvertimeStatus, approvedBy string, remarks *string) error
	List(ctx context.Context, empID string, status *models.OvertimeStatus, page, size int) ([]models.OvertimeRecord, int, error)
	ApprovedTotals(ctx context.Context, empID string, month, year int) (decimal.Decimal, decimal.Decimal, error)
}

// OvertimeService computes daily overtime from worked hours and moves
// records through approval.
type OvertimeService struct {
	repo       overtimeRepository
	attendance attendanceWriter
	salaries   salaryRepository
	multiplier decimal.Decimal
	logger     *zap.Logger
}

// NewOvertimeService constructs the overtime service. The multiplier string
// comes from config; an unparseable value falls back to 1.5.
func NewOvertimeService(repo overtimeRepository, attendance attendanceWriter, salaries salaryRepository, multiplier string, logger *zap.Logger) *OvertimeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := decimal.NewFromString(multiplier)
	if err != nil || m.LessThanOrEqual(decimal.Zero) {
		m = decimal.NewFromFloat(1.5)
	}
	return &OvertimeService{repo: repo, attendance: attendance, salaries: salaries, multiplier: m, logger: logger}
}

// Record computes and stores overtime for one employee-day from the stored
// attendance span. Only one record is allowed per day.
func (s *OvertimeService) Record(ctx context.Context, empID string, date time.Time) (*models.OvertimeRecord, error) {
	exists, err := s.repo.ExistsForDay(ctx, empID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "overtime lookup failed")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("overtime already recorded for %s on %s", empID, date.Format("2006-01-02")))
	}

	att, err := s.attendance.GetByEmpAndDate(ctx, empID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance record for that day")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance lookup failed")
	}
	actual := durationHours(att.TotalDuration)
	if actual.LessThanOrEqual(regularDayHours) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("worked %s hours, no overtime beyond %s", actual.StringFixed(2), regularDayHours))
	}

	structure, err := s.salaries.GetActive(ctx, empID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNoSalaryStructure,
				fmt.Sprintf("no active salary structure for %s", empID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "salary lookup failed")
	}

	otHours := actual.Sub(regularDayHours).Round(2)
	hourlyRate := structure.BasicSalary.Div(monthlyBaseHours).Round(2)
	otRate := hourlyRate.Mul(s.multiplier).Round(2)
	amount := otHours.Mul(otRate).Round(2)

	rec := &models.OvertimeRecord{
		EmpID:          empID,
		Date:           date,
		RegularHours:   regularDayHours,
		ActualHours:    actual,
		OvertimeHours:  otHours,
		OvertimeRate:   otRate,
		OvertimeAmount: amount,
		Status:         models.OvertimePending,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "overtime create failed")
	}
	return rec, nil
}

// Review approves or rejects a pending overtime record.
func (s *OvertimeService) Review(ctx context.Context, id int64, approverID string, approve bool, remarks *string) (*models.OvertimeRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "overtime record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "overtime lookup failed")
	}
	if rec.Status != models.OvertimePending {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("overtime record is %s, review requires PENDING", rec.Status))
	}
	next := models.OvertimeApproved
	if !approve {
		next = models.OvertimeRejected
	}
	if err := s.repo.UpdateStatus(ctx, id, next, approverID, remarks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "overtime status update failed")
	}
	rec.Status = next
	rec.ApprovedBy = &approverID
	rec.Remarks = remarks
	return rec, nil
}

// List returns paginated overtime records.
func (s *OvertimeService) List(ctx context.Context, empID string, status *models.OvertimeStatus, page, size int) ([]models.OvertimeRecord, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, empID, status, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overtime")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// durationHours converts an "HH:MM" span into decimal hours. Anything
// unparseable counts as zero.
func durationHours(span *string) decimal.Decimal {
	if span == nil {
		return decimal.Zero
	}
	var h, m int
	if _, err := fmt.Sscanf(*span, "%d:%d", &h, &m); err != nil {
		return decimal.Zero
	}
	if h < 0 || m < 0 || m > 59 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(h)).Add(decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(60))).Round(4)
}
