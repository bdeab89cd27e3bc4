package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type mockLeaveRepo struct {
	types     map[int64]*models.LeaveType
	balances  map[string]*models.LeaveBalance
	requests  map[int64]*models.LeaveRequest
	logs      []models.LeaveApprovalLog
	overlaps  bool
	nextReqID int64
}

func balKey(empID string, typeID int64, year int) string {
	return fmt.Sprintf("%s|%d|%d", empID, typeID, year)
}

func (m *mockLeaveRepo) GetType(_ context.Context, id int64) (*models.LeaveType, error) {
	if t, ok := m.types[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeaveRepo) ListTypes(_ context.Context) ([]models.LeaveType, error) {
	var out []models.LeaveType
	for _, t := range m.types {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockLeaveRepo) GetBalance(_ context.Context, empID string, typeID int64, year int) (*models.LeaveBalance, error) {
	if b, ok := m.balances[balKey(empID, typeID, year)]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeaveRepo) InitBalance(_ context.Context, empID string, typeID int64, year, allocated int) (*models.LeaveBalance, error) {
	if m.balances == nil {
		m.balances = map[string]*models.LeaveBalance{}
	}
	key := balKey(empID, typeID, year)
	if b, ok := m.balances[key]; ok {
		return b, nil
	}
	b := &models.LeaveBalance{ID: int64(len(m.balances) + 1), EmpID: empID, LeaveTypeID: typeID, Year: year, Allocated: allocated}
	m.balances[key] = b
	return b, nil
}

func (m *mockLeaveRepo) ConsumeBalance(_ context.Context, balanceID int64, days int) error {
	for _, b := range m.balances {
		if b.ID == balanceID {
			b.Used += days
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockLeaveRepo) ListBalances(_ context.Context, empID string, year int) ([]models.LeaveBalance, error) {
	var out []models.LeaveBalance
	for _, b := range m.balances {
		if b.EmpID == empID && b.Year == year {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockLeaveRepo) GetRequest(_ context.Context, id int64) (*models.LeaveRequest, error) {
	if r, ok := m.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeaveRepo) CreateRequest(_ context.Context, req *models.LeaveRequest) error {
	if m.requests == nil {
		m.requests = map[int64]*models.LeaveRequest{}
	}
	m.nextReqID++
	req.ID = m.nextReqID
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockLeaveRepo) UpdateRequestStatus(_ context.Context, id int64, status models.LeaveStatus, hrRemarks, ceoRemarks *string) error {
	r, ok := m.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	if hrRemarks != nil {
		r.HRRemarks = hrRemarks
	}
	if ceoRemarks != nil {
		r.CEORemarks = ceoRemarks
	}
	return nil
}

func (m *mockLeaveRepo) ListRequests(_ context.Context, _ string, _ *models.LeaveStatus, _, _ int) ([]models.LeaveRequest, int, error) {
	return nil, 0, nil
}

func (m *mockLeaveRepo) HasOverlapping(_ context.Context, _ string, _, _ time.Time) (bool, error) {
	return m.overlaps, nil
}

func (m *mockLeaveRepo) AppendApprovalLog(_ context.Context, log *models.LeaveApprovalLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockLeaveRepo) ApprovalHistory(_ context.Context, requestID int64) ([]models.LeaveApprovalLog, error) {
	var out []models.LeaveApprovalLog
	for _, l := range m.logs {
		if l.RequestID == requestID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockHolidayRepo struct {
	holidays []models.Holiday
}

func (m *mockHolidayRepo) ListByYear(_ context.Context, year int) ([]models.Holiday, error) {
	var out []models.Holiday
	for _, h := range m.holidays {
		if h.Year == year {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHolidayRepo) ListInRange(_ context.Context, from, to string) ([]models.Holiday, error) {
	var out []models.Holiday
	for _, h := range m.holidays {
		d := h.Date.Format("2006-01-02")
		if d >= from && d <= to {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHolidayRepo) Create(_ context.Context, h *models.Holiday) error {
	h.ID = int64(len(m.holidays) + 1)
	m.holidays = append(m.holidays, *h)
	return nil
}

func (m *mockHolidayRepo) Delete(_ context.Context, id int64) error {
	for i, h := range m.holidays {
		if h.ID == id {
			m.holidays = append(m.holidays[:i], m.holidays[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func newLeaveFixture() (*LeaveService, *mockLeaveRepo, *mockHolidayRepo, *mockAttendanceStore) {
	leaves := &mockLeaveRepo{types: map[int64]*models.LeaveType{
		1: {ID: 1, Name: "Annual Leave", AnnualQuota: 12, IsPaid: true, IsActive: true},
	}}
	holidays := &mockHolidayRepo{}
	att := &mockAttendanceStore{}
	svc := NewLeaveService(leaves, holidays, att, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC) }
	return svc, leaves, holidays, att
}

// 2026-01-05 is a Monday.
func applyReq(start, end string) ApplyLeaveRequest {
	return ApplyLeaveRequest{LeaveTypeID: 1, StartDate: start, EndDate: end, Reason: "family"}
}

func TestLeaveApplyCountsWorkDays(t *testing.T) {
	svc, _, holidays, _ := newLeaveFixture()
	holidays.holidays = []models.Holiday{{ID: 1, Name: "Festival", Date: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), Year: 2026}}

	// Monday through Wednesday with the Tuesday a holiday.
	leave, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-07"))
	require.NoError(t, err)
	assert.Equal(t, 2, leave.TotalDays)
	assert.Equal(t, models.LeavePending, leave.Status)
}

func TestLeaveApplyPastStartDateRejected(t *testing.T) {
	svc, _, _, _ := newLeaveFixture()

	_, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2025-12-29", "2025-12-30"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaveApplyInactiveTypeRejected(t *testing.T) {
	svc, leaves, _, _ := newLeaveFixture()
	leaves.types[1].IsActive = false

	_, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-06"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, leaves.requests)
}

func TestLeaveApplySundayOnlyRangeRejected(t *testing.T) {
	svc, _, _, _ := newLeaveFixture()

	_, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-11", "2026-01-11"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaveApplyInsufficientBalanceLeavesUsedUnchanged(t *testing.T) {
	svc, leaves, _, _ := newLeaveFixture()
	leaves.types[1].AnnualQuota = 2

	_, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-08"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientBalance.Code, appErrors.FromError(err).Code)
	for _, b := range leaves.balances {
		assert.Equal(t, 0, b.Used)
	}
	assert.Empty(t, leaves.requests)
}

func TestLeaveApplyOverlapRejected(t *testing.T) {
	svc, leaves, _, _ := newLeaveFixture()
	leaves.overlaps = true

	_, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-06"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOverlappingLeave.Code, appErrors.FromError(err).Code)
}

func TestLeaveTwoStageApprovalConsumesBalanceAndSyncsAttendance(t *testing.T) {
	svc, leaves, _, att := newLeaveFixture()

	leave, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-07"))
	require.NoError(t, err)

	// Balance is reserved only on final approval.
	for _, b := range leaves.balances {
		assert.Equal(t, 0, b.Used)
	}

	_, err = svc.ApproveByHR(context.Background(), leave.ID, "HR001", ApprovalRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApprovedByHR, leaves.requests[leave.ID].Status)
	assert.Equal(t, 0, att.upserts)

	_, err = svc.FinalApprove(context.Background(), leave.ID, "CEO001", ApprovalRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, leaves.requests[leave.ID].Status)

	for _, b := range leaves.balances {
		assert.Equal(t, 3, b.Used)
	}
	assert.Equal(t, 3, att.upserts)
	for _, rec := range att.records {
		assert.Equal(t, models.StatusOnLeave, rec.Status)
	}
}

func TestLeaveFinalApproveRequiresHRStage(t *testing.T) {
	svc, _, _, _ := newLeaveFixture()

	leave, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-06"))
	require.NoError(t, err)

	_, err = svc.FinalApprove(context.Background(), leave.ID, "CEO001", ApprovalRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaveRejectedIsTerminal(t *testing.T) {
	svc, leaves, _, _ := newLeaveFixture()

	leave, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-06"))
	require.NoError(t, err)

	remark := "short staffed"
	_, err = svc.ApproveByHR(context.Background(), leave.ID, "HR001", ApprovalRequest{Approve: false, Remarks: &remark})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, leaves.requests[leave.ID].Status)

	_, err = svc.ApproveByHR(context.Background(), leave.ID, "HR001", ApprovalRequest{Approve: true})
	require.Error(t, err)
}

func TestLeaveCEOAutoApproveTakesEffectImmediately(t *testing.T) {
	svc, leaves, _, att := newLeaveFixture()

	leave, err := svc.Apply(context.Background(), "RBIS0001", models.RoleCEO, applyReq("2026-01-05", "2026-01-06"))
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, leave.Status)

	for _, b := range leaves.balances {
		assert.Equal(t, 2, b.Used)
	}
	assert.Equal(t, 2, att.upserts)
	require.Len(t, leaves.logs, 1)
	assert.Equal(t, "AUTO_APPROVED", leaves.logs[0].Action)
}

func TestLeaveApprovedLeaveKeepsFeedDetail(t *testing.T) {
	svc, _, _, att := newLeaveFixture()
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	punches := "09:05(in), 10:00(out)"
	att.records = map[string]*models.AttendanceRecord{
		attKey("RBIS0042", date): {EmpID: "RBIS0042", Date: date, Status: models.StatusAbsent, PunchRecords: &punches},
	}

	leave, err := svc.Apply(context.Background(), "RBIS0042", models.RoleEmployee, applyReq("2026-01-05", "2026-01-05"))
	require.NoError(t, err)
	_, err = svc.ApproveByHR(context.Background(), leave.ID, "HR001", ApprovalRequest{Approve: true})
	require.NoError(t, err)
	_, err = svc.FinalApprove(context.Background(), leave.ID, "CEO001", ApprovalRequest{Approve: true})
	require.NoError(t, err)

	stored := att.records[attKey("RBIS0042", date)]
	assert.Equal(t, models.StatusOnLeave, stored.Status)
	require.NotNil(t, stored.PunchRecords)
	assert.Equal(t, punches, *stored.PunchRecords)
}

func TestAddHolidayRejectsDuplicateDate(t *testing.T) {
	svc, _, holidays, _ := newLeaveFixture()

	created, err := svc.AddHoliday(context.Background(), HolidayRequest{Name: "Republic Day", Date: "2026-01-26"})
	require.NoError(t, err)
	assert.Equal(t, 2026, created.Year)
	require.NotNil(t, created.Day)
	assert.Equal(t, "Monday", *created.Day)

	_, err = svc.AddHoliday(context.Background(), HolidayRequest{Name: "Duplicate", Date: "2026-01-26"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, holidays.holidays, 1)
}
