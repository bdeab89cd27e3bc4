package models

import "time"

// LeaveStatus tracks a leave request through the approval state machine.
// Legal transitions: PENDING -> APPROVED_BY_HR | REJECTED,
// APPROVED_BY_HR -> APPROVED | REJECTED. APPROVED and REJECTED are terminal.
type LeaveStatus string

const (
	LeavePending      LeaveStatus = "PENDING"
	LeaveApprovedByHR LeaveStatus = "APPROVED_BY_HR"
	LeaveApproved     LeaveStatus = "APPROVED"
	LeaveRejected     LeaveStatus = "REJECTED"
)

// Terminal reports whether the status admits no further transitions.
func (s LeaveStatus) Terminal() bool {
	return s == LeaveApproved || s == LeaveRejected
}

// LeaveType is a leave catalog entry with an annual quota.
type LeaveType struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	AnnualQuota int    `db:"annual_quota" json:"annual_quota"`
	IsPaid      bool   `db:"is_paid" json:"is_paid"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}

// LeaveBalance is keyed by (emp_id, leave_type_id, year). Used only grows,
// and only on final approval.
type LeaveBalance struct {
	ID          int64  `db:"id" json:"id"`
	EmpID       string `db:"emp_id" json:"emp_id"`
	LeaveTypeID int64  `db:"leave_type_id" json:"leave_type_id"`
	Year        int    `db:"year" json:"year"`
	Allocated   int    `db:"allocated" json:"allocated"`
	Used        int    `db:"used" json:"used"`
}

// Available returns the remaining balance.
func (b *LeaveBalance) Available() int {
	return b.Allocated - b.Used
}

// LeaveRequest is owned by the employee and mutated only by the approval
// state machine.
type LeaveRequest struct {
	ID          int64       `db:"id" json:"id"`
	EmpID       string      `db:"emp_id" json:"emp_id"`
	LeaveTypeID int64       `db:"leave_type_id" json:"leave_type_id"`
	StartDate   time.Time   `db:"start_date" json:"start_date"`
	EndDate     time.Time   `db:"end_date" json:"end_date"`
	TotalDays   int         `db:"total_days" json:"total_days"`
	Reason      string      `db:"reason" json:"reason"`
	Status      LeaveStatus `db:"status" json:"status"`
	HRRemarks   *string     `db:"hr_remarks" json:"hr_remarks,omitempty"`
	CEORemarks  *string     `db:"ceo_remarks" json:"ceo_remarks,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// LeaveApprovalLog records one approval-stage action on a request.
type LeaveApprovalLog struct {
	ID         int64     `db:"id" json:"id"`
	RequestID  int64     `db:"request_id" json:"request_id"`
	ApproverID string    `db:"approver_id" json:"approver_id"`
	Action     string    `db:"action" json:"action"`
	Remarks    *string   `db:"remarks" json:"remarks,omitempty"`
	ActionAt   time.Time `db:"action_at" json:"action_at"`
}

// Holiday excludes a date from work-day counting.
type Holiday struct {
	ID   int64     `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Date time.Time `db:"date" json:"date"`
	Year int       `db:"year" json:"year"`
	Day  *string   `db:"day" json:"day,omitempty"`
}
