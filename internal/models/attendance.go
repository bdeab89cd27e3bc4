package models

import "time"

// AttendanceStatus classifies a single employee-day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
	StatusOnLeave AttendanceStatus = "On Leave"

	// StatusHalfDay is retired: the cleaner no longer emits it, but rows
	// written before the half-day migration still carry it and must keep
	// scanning and merging.
	StatusHalfDay AttendanceStatus = "Half Day"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusOnLeave, StatusHalfDay:
		return true
	default:
		return false
	}
}

// MergeStatus resolves the status kept when an incoming attendance feed row
// meets an existing record for the same (emp_id, date). An administratively
// approved "On Leave" is never downgraded by a feed saying "Absent"; every
// other combination lets the incoming value win.
func MergeStatus(existing, incoming AttendanceStatus) AttendanceStatus {
	if existing == StatusOnLeave && incoming == StatusAbsent {
		return StatusOnLeave
	}
	return incoming
}

// AttendanceRecord is one employee-day of attendance. At most one row exists
// per (emp_id, date); the database unique constraint is the backstop.
type AttendanceRecord struct {
	ID            int64            `db:"id" json:"id"`
	EmpID         string           `db:"emp_id" json:"emp_id"`
	Date          time.Time        `db:"date" json:"date"`
	FirstIn       *string          `db:"first_in" json:"first_in,omitempty"`
	LastOut       *string          `db:"last_out" json:"last_out,omitempty"`
	InDuration    *string          `db:"in_duration" json:"in_duration,omitempty"`
	OutDuration   *string          `db:"out_duration" json:"out_duration,omitempty"`
	TotalDuration *string          `db:"total_duration" json:"total_duration,omitempty"`
	PunchRecords  *string          `db:"punch_records" json:"punch_records,omitempty"`
	Status        AttendanceStatus `db:"attendance_status" json:"attendance_status"`
	EmployeeName  *string          `db:"employee_name" json:"employee_name,omitempty"`
	SourceFile    *string          `db:"source_file" json:"source_file,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listing queries.
type AttendanceFilter struct {
	EmpID    string
	Status   *AttendanceStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// AttendanceSummary aggregates one employee's month by status. Present is a
// fractional count because residual half-day rows contribute 0.5.
type AttendanceSummary struct {
	PresentDays float64 `json:"present_days"`
	AbsentDays  float64 `json:"absent_days"`
	LeaveDays   int     `json:"leave_days"`
	WorkingDays int     `json:"working_days"`
}

// UploadLog records one distinct uploaded file, keyed by content hash.
// Re-uploading byte-identical content reuses the existing row.
type UploadLog struct {
	ID         string    `db:"id" json:"id"`
	FileHash   string    `db:"file_hash" json:"file_hash"`
	Filename   string    `db:"filename" json:"filename"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	ReportType string    `db:"report_type" json:"report_type"`
	FilePath   string    `db:"file_path" json:"file_path"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}
