package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hrms-payroll-api/internal/calendar"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type leaveRepository interface {
	GetType(ctx context.Context, id int64) (*models.LeaveType, error)
	ListTypes(ctx context.Context) ([]models.LeaveType, error)
	GetBalance(ctx context.Context, empID string, leaveTypeID int64, year int) (*models.LeaveBalance, error)
	InitBalance(ctx context.Context, empID string, leaveTypeID int64, year, allocated int) (*models.LeaveBalance, error)
	ConsumeBalance(ctx context.Context, balanceID int64, days int) error
	ListBalances(ctx context.Context, empID string, year int) ([]models.LeaveBalance, error)
	GetRequest(ctx context.Context, id int64) (*models.LeaveRequest, error)
	CreateRequest(ctx context.Context, req *models.LeaveRequest) error
	UpdateRequestStatus(ctx context.Context, id int64, status models.LeaveStatus, hrRemarks, ceoRemarks *string) error
	ListRequests(ctx context.Context, empID string, status *models.LeaveStatus, page, size int) ([]models.LeaveRequest, int, error)
	HasOverlapping(ctx context.Context, empID string, start, end time.Time) (bool, error)
	AppendApprovalLog(ctx context.Context, log *models.LeaveApprovalLog) error
	ApprovalHistory(ctx context.Context, requestID int64) ([]models.LeaveApprovalLog, error)
}

type holidayRepository interface {
	ListByYear(ctx context.Context, year int) ([]models.Holiday, error)
	ListInRange(ctx context.Context, from, to string) ([]models.Holiday, error)
	Create(ctx context.Context, h *models.Holiday) error
	Delete(ctx context.Context, id int64) error
}

// LeaveService owns the leave application workflow: quota accounting, the
// two-stage approval state machine and the attendance sync on approval.
type LeaveService struct {
	leaves     leaveRepository
	holidays   holidayRepository
	attendance attendanceWriter
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewLeaveService constructs the leave service.
func NewLeaveService(leaves leaveRepository, holidays holidayRepository, attendance attendanceWriter, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{leaves: leaves, holidays: holidays, attendance: attendance, validator: validate, logger: logger, now: time.Now}
}

// ListTypes returns the active leave catalog.
func (s *LeaveService) ListTypes(ctx context.Context) ([]models.LeaveType, error) {
	types, err := s.leaves.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave types")
	}
	return types, nil
}

// ApplyLeaveRequest is the employee-facing application payload.
type ApplyLeaveRequest struct {
	LeaveTypeID int64  `json:"leave_type_id" validate:"required"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
}

// Apply files a leave request for the employee. CEO and super admin
// applications skip the approval flow and take effect immediately.
func (s *LeaveService) Apply(ctx context.Context, empID string, role models.UserRole, req ApplyLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if start.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must not be in the past")
	}

	leaveType, err := s.leaves.GetType(ctx, req.LeaveTypeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "leave type lookup failed")
	}
	if !leaveType.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selected leave type is not active")
	}

	overlap, err := s.leaves.HasOverlapping(ctx, empID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "overlap check failed")
	}
	if overlap {
		return nil, appErrors.ErrOverlappingLeave
	}

	holidays, err := s.holidaySet(ctx, start, end)
	if err != nil {
		return nil, err
	}
	days := calendar.WorkDays(start, end, holidays)
	if days == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested range contains no work days")
	}

	balance, err := s.balanceFor(ctx, empID, leaveType, start.Year())
	if err != nil {
		return nil, err
	}
	if balance.Available() < days {
		return nil, appErrors.Clone(appErrors.ErrInsufficientBalance,
			fmt.Sprintf("insufficient leave balance: %d day(s) available, %d requested", balance.Available(), days))
	}

	leave := &models.LeaveRequest{
		EmpID:       empID,
		LeaveTypeID: req.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   days,
		Reason:      req.Reason,
		Status:      models.LeavePending,
	}
	if role.AutoApprovesLeave() {
		leave.Status = models.LeaveApproved
	}
	if err := s.leaves.CreateRequest(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}

	if leave.Status == models.LeaveApproved {
		if err := s.finalize(ctx, leave, balance, holidays); err != nil {
			return nil, err
		}
		if err := s.leaves.AppendApprovalLog(ctx, &models.LeaveApprovalLog{
			RequestID:  leave.ID,
			ApproverID: empID,
			Action:     "AUTO_APPROVED",
		}); err != nil {
			s.logger.Warn("approval log write failed", zap.Int64("request_id", leave.ID), zap.Error(err))
		}
	}
	return leave, nil
}

// ApprovalRequest carries one approval-stage decision.
type ApprovalRequest struct {
	Approve bool    `json:"approve"`
	Remarks *string `json:"remarks"`
}

// ApproveByHR moves a pending request to APPROVED_BY_HR or REJECTED.
func (s *LeaveService) ApproveByHR(ctx context.Context, requestID int64, approverID string, req ApprovalRequest) (*models.LeaveRequest, error) {
	leave, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if leave.Status != models.LeavePending {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("request is %s, HR review requires PENDING", leave.Status))
	}
	next := models.LeaveApprovedByHR
	action := "HR_APPROVED"
	if !req.Approve {
		next = models.LeaveRejected
		action = "HR_REJECTED"
	}
	if err := s.leaves.UpdateRequestStatus(ctx, requestID, next, req.Remarks, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "status update failed")
	}
	leave.Status = next
	leave.HRRemarks = req.Remarks
	s.appendLog(ctx, requestID, approverID, action, req.Remarks)
	return leave, nil
}

// FinalApprove moves an HR-approved request to APPROVED or REJECTED. On
// approval the balance is consumed and attendance rows are written.
func (s *LeaveService) FinalApprove(ctx context.Context, requestID int64, approverID string, req ApprovalRequest) (*models.LeaveRequest, error) {
	leave, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if leave.Status != models.LeaveApprovedByHR {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("request is %s, final review requires APPROVED_BY_HR", leave.Status))
	}
	if !req.Approve {
		if err := s.leaves.UpdateRequestStatus(ctx, requestID, models.LeaveRejected, nil, req.Remarks); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "status update failed")
		}
		leave.Status = models.LeaveRejected
		leave.CEORemarks = req.Remarks
		s.appendLog(ctx, requestID, approverID, "FINAL_REJECTED", req.Remarks)
		return leave, nil
	}

	leaveType, err := s.leaves.GetType(ctx, leave.LeaveTypeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "leave type lookup failed")
	}
	holidays, err := s.holidaySet(ctx, leave.StartDate, leave.EndDate)
	if err != nil {
		return nil, err
	}
	balance, err := s.balanceFor(ctx, leave.EmpID, leaveType, leave.StartDate.Year())
	if err != nil {
		return nil, err
	}
	if balance.Available() < leave.TotalDays {
		return nil, appErrors.Clone(appErrors.ErrInsufficientBalance,
			fmt.Sprintf("balance depleted since application: %d day(s) available, %d needed", balance.Available(), leave.TotalDays))
	}
	if err := s.leaves.UpdateRequestStatus(ctx, requestID, models.LeaveApproved, nil, req.Remarks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "status update failed")
	}
	leave.Status = models.LeaveApproved
	leave.CEORemarks = req.Remarks
	if err := s.finalize(ctx, leave, balance, holidays); err != nil {
		return nil, err
	}
	s.appendLog(ctx, requestID, approverID, "FINAL_APPROVED", req.Remarks)
	return leave, nil
}

// finalize consumes the balance and writes On Leave attendance for every
// work day in the approved range.
func (s *LeaveService) finalize(ctx context.Context, leave *models.LeaveRequest, balance *models.LeaveBalance, holidays calendar.HolidaySet) error {
	if err := s.leaves.ConsumeBalance(ctx, balance.ID, leave.TotalDays); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "balance consume failed")
	}
	var syncErr error
	calendar.EachWorkDay(leave.StartDate, leave.EndDate, holidays, func(day time.Time) {
		if syncErr != nil {
			return
		}
		rec := &models.AttendanceRecord{
			EmpID:  leave.EmpID,
			Date:   day,
			Status: models.StatusOnLeave,
		}
		if prev, err := s.attendance.GetByEmpAndDate(ctx, leave.EmpID, day); err == nil {
			// Keep the punch detail from any feed row already stored.
			prev.Status = models.StatusOnLeave
			rec = prev
		} else if err != sql.ErrNoRows {
			syncErr = err
			return
		}
		if _, err := s.attendance.Upsert(ctx, rec); err != nil {
			syncErr = err
		}
	})
	if syncErr != nil {
		return appErrors.Wrap(syncErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance sync failed")
	}
	return nil
}

// ListRequests returns paginated leave requests.
func (s *LeaveService) ListRequests(ctx context.Context, empID string, status *models.LeaveStatus, page, size int) ([]models.LeaveRequest, *models.Pagination, error) {
	rows, total, err := s.leaves.ListRequests(ctx, empID, status, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Balances returns an employee's balances for a year, lazily initializing
// missing rows from the catalog quotas.
func (s *LeaveService) Balances(ctx context.Context, empID string, year int) ([]models.LeaveBalance, error) {
	types, err := s.leaves.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "leave catalog lookup failed")
	}
	existing, err := s.leaves.ListBalances(ctx, empID, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "balance lookup failed")
	}
	have := make(map[int64]struct{}, len(existing))
	for _, b := range existing {
		have[b.LeaveTypeID] = struct{}{}
	}
	for i := range types {
		if _, ok := have[types[i].ID]; ok {
			continue
		}
		bal, err := s.leaves.InitBalance(ctx, empID, types[i].ID, year, types[i].AnnualQuota)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "balance init failed")
		}
		existing = append(existing, *bal)
	}
	return existing, nil
}

// History returns the approval trail for a request.
func (s *LeaveService) History(ctx context.Context, requestID int64) ([]models.LeaveApprovalLog, error) {
	logs, err := s.leaves.ApprovalHistory(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "approval history lookup failed")
	}
	return logs, nil
}

// HolidayRequest creates a calendar entry.
type HolidayRequest struct {
	Name string `json:"name" validate:"required"`
	Date string `json:"date" validate:"required"`
}

// AddHoliday inserts a holiday into the calendar.
func (s *LeaveService) AddHoliday(ctx context.Context, req HolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	existing, err := s.holidays.ListInRange(ctx, req.Date, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check holiday calendar")
	}
	if len(existing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a holiday already exists on this date")
	}
	day := date.Weekday().String()
	h := &models.Holiday{
		Name: req.Name,
		Date: date,
		Year: date.Year(),
		Day:  &day,
	}
	if err := s.holidays.Create(ctx, h); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	return h, nil
}

// ListHolidays returns a year's calendar.
func (s *LeaveService) ListHolidays(ctx context.Context, year int) ([]models.Holiday, error) {
	rows, err := s.holidays.ListByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return rows, nil
}

// DeleteHoliday removes a holiday.
func (s *LeaveService) DeleteHoliday(ctx context.Context, id int64) error {
	if err := s.holidays.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	return nil
}

func (s *LeaveService) getRequest(ctx context.Context, id int64) (*models.LeaveRequest, error) {
	leave, err := s.leaves.GetRequest(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "leave request lookup failed")
	}
	return leave, nil
}

func (s *LeaveService) balanceFor(ctx context.Context, empID string, leaveType *models.LeaveType, year int) (*models.LeaveBalance, error) {
	balance, err := s.leaves.GetBalance(ctx, empID, leaveType.ID, year)
	if err == nil {
		return balance, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "balance lookup failed")
	}
	balance, err = s.leaves.InitBalance(ctx, empID, leaveType.ID, year, leaveType.AnnualQuota)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "balance init failed")
	}
	return balance, nil
}

func (s *LeaveService) holidaySet(ctx context.Context, start, end time.Time) (calendar.HolidaySet, error) {
	rows, err := s.holidays.ListInRange(ctx, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "holiday lookup failed")
	}
	dates := make([]time.Time, len(rows))
	for i, h := range rows {
		dates[i] = h.Date
	}
	return calendar.NewHolidaySet(dates), nil
}

func (s *LeaveService) appendLog(ctx context.Context, requestID int64, approverID, action string, remarks *string) {
	if err := s.leaves.AppendApprovalLog(ctx, &models.LeaveApprovalLog{
		RequestID:  requestID,
		ApproverID: approverID,
		Action:     action,
		Remarks:    remarks,
	}); err != nil {
		s.logger.Warn("approval log write failed", zap.Int64("request_id", requestID), zap.Error(err))
	}
}
