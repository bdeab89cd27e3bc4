package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

type summaryAttendanceMock struct {
	reportAttendanceMock
	summary models.AttendanceSummary
}

func (m *summaryAttendanceMock) MonthlySummary(_ context.Context, _ string, _, _ int) (*models.AttendanceSummary, error) {
	cp := m.summary
	return &cp, nil
}

func TestMonthlySummaryDerivesAbsentFromWorkingDays(t *testing.T) {
	repo := &summaryAttendanceMock{summary: models.AttendanceSummary{PresentDays: 10, LeaveDays: 0}}
	svc := NewAttendanceService(repo, nil, 0, nil, nil)

	// June 2026 has 26 non-Sundays; days without any stored row are absent.
	summary, err := svc.MonthlySummary(context.Background(), "RBIS0042", 6, 2026)
	require.NoError(t, err)
	assert.Equal(t, 26, summary.WorkingDays)
	assert.Equal(t, 16.0, summary.AbsentDays)
}

func TestMonthlySummaryAbsentFlooredAtZero(t *testing.T) {
	repo := &summaryAttendanceMock{summary: models.AttendanceSummary{PresentDays: 25, LeaveDays: 2}}
	svc := NewAttendanceService(repo, nil, 0, nil, nil)

	summary, err := svc.MonthlySummary(context.Background(), "RBIS0042", 6, 2026)
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.AbsentDays)
}
