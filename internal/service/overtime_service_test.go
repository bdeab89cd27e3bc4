package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type mockOvertimeRepo struct {
	records map[int64]*models.OvertimeRecord
	byDay   map[string]bool
	nextID  int64
}

func (m *mockOvertimeRepo) Get(_ context.Context, id int64) (*models.OvertimeRecord, error) {
	if rec, ok := m.records[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOvertimeRepo) ExistsForDay(_ context.Context, empID string, date time.Time) (bool, error) {
	return m.byDay[attKey(empID, date)], nil
}

func (m *mockOvertimeRepo) Create(_ context.Context, rec *models.OvertimeRecord) error {
	if m.records == nil {
		m.records = map[int64]*models.OvertimeRecord{}
	}
	if m.byDay == nil {
		m.byDay = map[string]bool{}
	}
	m.nextID++
	rec.ID = m.nextID
	cp := *rec
	m.records[rec.ID] = &cp
	m.byDay[attKey(rec.EmpID, rec.Date)] = true
	return nil
}

func (m *mockOvertimeRepo) UpdateStatus(_ context.Context, id int64, status models.OvertimeStatus, approvedBy string, _ *string) error {
	rec, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	rec.Status = status
	rec.ApprovedBy = &approvedBy
	return nil
}

func (m *mockOvertimeRepo) List(_ context.Context, _ string, _ *models.OvertimeStatus, _, _ int) ([]models.OvertimeRecord, int, error) {
	return nil, 0, nil
}

func (m *mockOvertimeRepo) ApprovedTotals(_ context.Context, _ string, _, _ int) (decimal.Decimal, decimal.Decimal, error) {
	return decimal.Zero, decimal.Zero, nil
}

func newOvertimeFixture(totalDuration string) (*OvertimeService, *mockOvertimeRepo, time.Time) {
	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	att := &mockAttendanceStore{records: map[string]*models.AttendanceRecord{
		attKey("RBIS0042", date): {EmpID: "RBIS0042", Date: date, Status: models.StatusPresent, TotalDuration: &totalDuration},
	}}
	salaries := &mockSalaryRepo{active: map[string]*models.SalaryStructure{
		"RBIS0042": {EmpID: "RBIS0042", BasicSalary: dec("44000")},
	}}
	repo := &mockOvertimeRepo{}
	return NewOvertimeService(repo, att, salaries, "1.5", nil), repo, date
}

func TestOvertimeRecordComputesRateAndAmount(t *testing.T) {
	svc, _, date := newOvertimeFixture("10:00")

	rec, err := svc.Record(context.Background(), "RBIS0042", date)
	require.NoError(t, err)

	// Hourly rate 44000/176 = 250.00, overtime rate 375.00 at 1.5x.
	assert.True(t, rec.OvertimeHours.Equal(dec("2")), "hours %s", rec.OvertimeHours)
	assert.True(t, rec.OvertimeRate.Equal(dec("375")), "rate %s", rec.OvertimeRate)
	assert.True(t, rec.OvertimeAmount.Equal(dec("750")), "amount %s", rec.OvertimeAmount)
	assert.Equal(t, models.OvertimePending, rec.Status)
}

func TestOvertimeRecordNoOvertimeUnderEightHours(t *testing.T) {
	svc, _, date := newOvertimeFixture("07:30")

	_, err := svc.Record(context.Background(), "RBIS0042", date)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOvertimeRecordOnePerDay(t *testing.T) {
	svc, _, date := newOvertimeFixture("10:00")

	_, err := svc.Record(context.Background(), "RBIS0042", date)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), "RBIS0042", date)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestOvertimeReviewTransitions(t *testing.T) {
	svc, repo, date := newOvertimeFixture("10:00")

	rec, err := svc.Record(context.Background(), "RBIS0042", date)
	require.NoError(t, err)

	approved, err := svc.Review(context.Background(), rec.ID, "HR001", true, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OvertimeApproved, approved.Status)

	// Approved records cannot be reviewed again.
	_, err = svc.Review(context.Background(), rec.ID, "HR001", false, nil)
	require.Error(t, err)
	assert.Equal(t, models.OvertimeApproved, repo.records[rec.ID].Status)
}

func TestOvertimeInvalidMultiplierFallsBack(t *testing.T) {
	svc := NewOvertimeService(&mockOvertimeRepo{}, &mockAttendanceStore{}, &mockSalaryRepo{}, "bogus", nil)
	assert.True(t, svc.multiplier.Equal(decimal.NewFromFloat(1.5)))
}
