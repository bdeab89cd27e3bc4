package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

func TestPayrollRepositoryGetByPeriodNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectQuery("SELECT .+ FROM payroll_records WHERE emp_id").
		WithArgs("RBIS0042", 1, 2026).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByPeriod(context.Background(), "RBIS0042", 1, 2026)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayrollRepositoryCreateFillsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	mock.ExpectQuery("INSERT INTO payroll_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	rec := &models.PayrollRecord{
		EmpID:       "RBIS0042",
		Month:       1,
		Year:        2026,
		BasicSalary: decimal.NewFromInt(50000),
		GrossSalary: decimal.NewFromInt(70000),
		NetSalary:   decimal.NewFromInt(64000),
		Status:      models.PayrollProcessed,
	}
	require.NoError(t, repo.Create(context.Background(), rec))
	require.Equal(t, int64(11), rec.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayrollRepositoryMarkPaid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPayrollRepository(db)

	txn := "pay_123"
	mock.ExpectExec("UPDATE payroll_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkPaid(context.Background(), int64(11), "BANK_TRANSFER", &txn, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
