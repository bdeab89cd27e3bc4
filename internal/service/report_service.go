package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hrms-payroll-api/internal/calendar"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/export"
)

// ReportFormat selects the rendered output type for register exports.
type ReportFormat string

const (
	ReportCSV  ReportFormat = "csv"
	ReportXLSX ReportFormat = "xlsx"
	ReportPDF  ReportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderStatement(doc export.Statement) ([]byte, error)
}

// ReportFile is a rendered document ready to be served as a download.
type ReportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ReportService renders payslips and attendance registers.
type ReportService struct {
	payrolls   payrollRepository
	attendance attendanceRepository
	employees  employeeLookup
	csv        csvRenderer
	xlsx       xlsxRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewReportService constructs a ReportService with default exporters.
func NewReportService(payrolls payrollRepository, attendance attendanceRepository, employees employeeLookup, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		payrolls:   payrolls,
		attendance: attendance,
		employees:  employees,
		csv:        export.NewCSVExporter(),
		xlsx:       export.NewXLSXExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Payslip renders the stored payroll snapshot as a PDF statement.
func (s *ReportService) Payslip(ctx context.Context, payrollID int64) (*ReportFile, error) {
	rec, err := s.payrolls.Get(ctx, payrollID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load payroll record")
	}
	emp, err := s.employees.GetByEmpID(ctx, rec.EmpID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load employee")
	}

	period := fmt.Sprintf("%s %d", time.Month(rec.Month).String(), rec.Year)
	doc := export.Statement{
		Title:    "Payslip",
		Subtitle: fmt.Sprintf("Salary statement for %s", period),
		Sections: []export.StatementSection{
			{
				Heading: "Employee",
				Lines: [][2]string{
					{"Employee ID", rec.EmpID},
					{"Name", emp.FullName},
					{"Designation", strOrDash(emp.Designation)},
				},
			},
			{
				Heading: "Attendance",
				Lines: [][2]string{
					{"Working Days", fmt.Sprintf("%d", rec.WorkingDays)},
					{"Present Days", fmt.Sprintf("%.1f", rec.PresentDays)},
					{"Absent Days", fmt.Sprintf("%.1f", rec.AbsentDays)},
					{"Leave Days", fmt.Sprintf("%d", rec.LeaveDays)},
				},
			},
			{
				Heading: "Earnings",
				Lines: [][2]string{
					{"Basic Salary", rec.BasicSalary.StringFixed(2)},
					{"HRA", rec.HRA.StringFixed(2)},
					{"Transport Allowance", rec.TransportAllowance.StringFixed(2)},
					{"Dearness Allowance", rec.DearnessAllowance.StringFixed(2)},
					{"Medical Allowance", rec.MedicalAllowance.StringFixed(2)},
					{"Special Allowance", rec.SpecialAllowance.StringFixed(2)},
					{"Other Allowances", rec.OtherAllowances.StringFixed(2)},
					{"Overtime", rec.OvertimeAmount.StringFixed(2)},
					{"Gross Salary", rec.GrossSalary.StringFixed(2)},
				},
			},
			{
				Heading: "Deductions",
				Lines:   s.deductionLines(rec),
			},
			{
				Heading: "Net Pay",
				Lines: [][2]string{
					{"Net Salary", rec.NetSalary.StringFixed(2)},
					{"Status", string(rec.Status)},
				},
			},
		},
		Footer: "System generated payslip. No signature required.",
	}
	if rec.TransactionID != nil {
		doc.Sections[4].Lines = append(doc.Sections[4].Lines, [2]string{"Transaction ID", *rec.TransactionID})
	}

	payload, err := s.pdf.RenderStatement(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render payslip")
	}
	return &ReportFile{
		Filename:    fmt.Sprintf("payslip_%s_%d_%02d.pdf", rec.EmpID, rec.Year, rec.Month),
		ContentType: "application/pdf",
		Payload:     payload,
	}, nil
}

// AttendanceRegister renders one employee's month of attendance rows.
func (s *ReportService) AttendanceRegister(ctx context.Context, empID string, month, year int, format ReportFormat) (*ReportFile, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	start, end := calendar.MonthBounds(month, year)
	filter := models.AttendanceFilter{
		EmpID:    empID,
		DateFrom: &start,
		DateTo:   &end,
		Page:     1,
		PageSize: 31,
	}
	records, _, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load attendance rows")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "First In", "Last Out", "Total Duration", "Status"},
	}
	for _, rec := range records {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":           rec.Date.Format("2006-01-02"),
			"First In":       strOrDash(rec.FirstIn),
			"Last Out":       strOrDash(rec.LastOut),
			"Total Duration": strOrDash(rec.TotalDuration),
			"Status":         string(rec.Status),
		})
	}

	title := fmt.Sprintf("Attendance %s %s %d", empID, time.Month(month).String(), year)
	base := fmt.Sprintf("attendance_%s_%d_%02d", empID, year, month)

	var payload []byte
	var file ReportFile
	switch format {
	case ReportCSV, "":
		payload, err = s.csv.Render(dataset)
		file = ReportFile{Filename: base + ".csv", ContentType: "text/csv"}
	case ReportXLSX:
		payload, err = s.xlsx.Render(dataset, "Attendance")
		file = ReportFile{Filename: base + ".xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
	case ReportPDF:
		payload, err = s.pdf.Render(dataset, title)
		file = ReportFile{Filename: base + ".pdf", ContentType: "application/pdf"}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render attendance register")
	}
	file.Payload = payload
	return &file, nil
}

func (s *ReportService) deductionLines(rec *models.PayrollRecord) [][2]string {
	lines := [][2]string{}
	if rec.DeductionDetails != nil {
		var details []models.DeductionLine
		if err := json.Unmarshal([]byte(*rec.DeductionDetails), &details); err != nil {
			s.logger.Warn("malformed deduction details", zap.Int64("payroll_id", rec.ID), zap.Error(err))
		}
		for _, d := range details {
			lines = append(lines, [2]string{d.Name, d.Amount.StringFixed(2)})
		}
	}
	lines = append(lines, [2]string{"Total Deductions", rec.TotalDeductions.StringFixed(2)})
	return lines
}

func strOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}
