package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryUpsertReturnsStoredRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	firstIn := "09:05"
	rows := sqlmock.NewRows([]string{
		"id", "emp_id", "date", "first_in", "last_out", "in_duration", "out_duration",
		"total_duration", "punch_records", "attendance_status", "employee_name",
		"source_file", "created_at", "updated_at",
	}).AddRow(int64(7), "RBIS0042", date, firstIn, "18:10", nil, nil, "09:05", nil,
		models.StatusPresent, nil, nil, time.Now(), time.Now())

	mock.ExpectQuery("INSERT INTO attendance").
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		EmpID:   "RBIS0042",
		Date:    date,
		FirstIn: &firstIn,
		Status:  models.StatusPresent,
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), stored.ID)
	require.Equal(t, models.StatusPresent, stored.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryMonthlySummaryHalfDaySplit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"attendance_status", "cnt"}).
		AddRow("Present", 18).
		AddRow("Absent", 2).
		AddRow("On Leave", 3).
		AddRow("Half Day", 1)
	mock.ExpectQuery("SELECT attendance_status, COUNT").
		WithArgs("RBIS0042", 1, 2026).
		WillReturnRows(rows)

	summary, err := repo.MonthlySummary(context.Background(), "RBIS0042", 1, 2026)
	require.NoError(t, err)
	require.Equal(t, 18.5, summary.PresentDays)
	require.Equal(t, 2.5, summary.AbsentDays)
	require.Equal(t, 3, summary.LeaveDays)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryGetByEmpAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "emp_id", "date", "first_in", "last_out", "in_duration", "out_duration",
		"total_duration", "punch_records", "attendance_status", "employee_name",
		"source_file", "created_at", "updated_at",
	}).AddRow(int64(3), "RBIS0007", date, nil, nil, nil, nil, nil, nil,
		models.StatusOnLeave, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + attendanceColumns + " FROM attendance WHERE emp_id = $1 AND date = $2")).
		WithArgs("RBIS0007", date).
		WillReturnRows(rows)

	rec, err := repo.GetByEmpAndDate(context.Background(), "RBIS0007", date)
	require.NoError(t, err)
	require.Equal(t, models.StatusOnLeave, rec.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), int64(99))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
