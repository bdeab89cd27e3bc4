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

type attendanceRepository interface {
	GetByEmpAndDate(ctx context.Context, empID string, date time.Time) (*models.AttendanceRecord, error)
	Upsert(ctx context.Context, rec *models.AttendanceRecord) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	Update(ctx context.Context, rec *models.AttendanceRecord) error
	Delete(ctx context.Context, id int64) error
	MonthlySummary(ctx context.Context, empID string, month, year int) (*models.AttendanceSummary, error)
}

// AttendanceService coordinates attendance queries and manual corrections.
type AttendanceService struct {
	repo      attendanceRepository
	cache     directoryCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, cache directoryCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &AttendanceService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// AttendanceListRequest filters attendance listing.
type AttendanceListRequest struct {
	EmpID    string  `json:"emp_id"`
	Status   *string `json:"status"`
	DateFrom *string `json:"date_from"`
	DateTo   *string `json:"date_to"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// List returns paginated attendance records.
func (s *AttendanceService) List(ctx context.Context, req AttendanceListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	filter := models.AttendanceFilter{
		EmpID:    req.EmpID,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != nil {
		st := models.AttendanceStatus(*req.Status)
		if !st.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance status '%s'", *req.Status))
		}
		filter.Status = &st
	}
	var err error
	if filter.DateFrom, err = parseDatePtr(req.DateFrom); err != nil {
		return nil, nil, err
	}
	if filter.DateTo, err = parseDatePtr(req.DateTo); err != nil {
		return nil, nil, err
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AttendanceUpdateRequest patches a manual correction onto one record.
// Nil fields are left untouched.
type AttendanceUpdateRequest struct {
	FirstIn       *string `json:"first_in"`
	LastOut       *string `json:"last_out"`
	TotalDuration *string `json:"total_duration"`
	Status        *string `json:"status"`
}

// Update applies a manual correction to the record for one employee-day.
func (s *AttendanceService) Update(ctx context.Context, empID string, date time.Time, req AttendanceUpdateRequest) (*models.AttendanceRecord, error) {
	rec, err := s.repo.GetByEmpAndDate(ctx, empID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance lookup failed")
	}
	if req.FirstIn != nil {
		rec.FirstIn = req.FirstIn
	}
	if req.LastOut != nil {
		rec.LastOut = req.LastOut
	}
	if req.TotalDuration != nil {
		rec.TotalDuration = req.TotalDuration
	}
	if req.Status != nil {
		st := models.AttendanceStatus(*req.Status)
		if !st.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance status '%s'", *req.Status))
		}
		rec.Status = st
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance update failed")
	}
	s.invalidateSummary(ctx, rec.EmpID, rec.Date)
	return rec, nil
}

// Delete removes one attendance record.
func (s *AttendanceService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance delete failed")
	}
	return nil
}

// MonthlySummary returns an employee's month aggregated by status, cached.
func (s *AttendanceService) MonthlySummary(ctx context.Context, empID string, month, year int) (*models.AttendanceSummary, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	key := summaryCacheKey(empID, month, year)
	if s.cache != nil {
		var cached models.AttendanceSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}
	summary, err := s.repo.MonthlySummary(ctx, empID, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance summary failed")
	}
	summary.WorkingDays = calendar.WorkingDaysInMonth(month, year)
	summary.AbsentDays = deriveAbsentDays(summary.WorkingDays, summary.PresentDays, summary.LeaveDays)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Warn("summary cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return summary, nil
}

func (s *AttendanceService) invalidateSummary(ctx context.Context, empID string, date time.Time) {
	if s.cache == nil {
		return
	}
	type deleter interface {
		Delete(ctx context.Context, keys ...string) error
	}
	if d, ok := s.cache.(deleter); ok {
		key := summaryCacheKey(empID, int(date.Month()), date.Year())
		if err := d.Delete(ctx, key); err != nil {
			s.logger.Warn("summary cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// deriveAbsentDays treats every working day without a present or leave row
// as absent, floored at zero.
func deriveAbsentDays(workingDays int, presentDays float64, leaveDays int) float64 {
	absent := float64(workingDays) - presentDays - float64(leaveDays)
	if absent < 0 {
		return 0
	}
	return absent
}

func summaryCacheKey(empID string, month, year int) string {
	return fmt.Sprintf("hrms:attendance:summary:%s:%d-%02d", empID, year, month)
}

func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return &t, nil
}
