package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationType determines how a deduction value is interpreted.
type CalculationType string

const (
	CalcFixed      CalculationType = "FIXED"
	CalcPercentage CalculationType = "PERCENTAGE"
)

// Valid returns true when the calculation type is supported.
func (c CalculationType) Valid() bool {
	return c == CalcFixed || c == CalcPercentage
}

// SalaryStructure is the time-bounded component breakdown of an employee's
// salary. Exactly one row per employee is active at any time.
type SalaryStructure struct {
	ID                 int64           `db:"id" json:"id"`
	EmpID              string          `db:"emp_id" json:"emp_id"`
	BasicSalary        decimal.Decimal `db:"basic_salary" json:"basic_salary"`
	HRA                decimal.Decimal `db:"hra" json:"hra"`
	TransportAllowance decimal.Decimal `db:"transport_allowance" json:"transport_allowance"`
	DearnessAllowance  decimal.Decimal `db:"dearness_allowance" json:"dearness_allowance"`
	MedicalAllowance   decimal.Decimal `db:"medical_allowance" json:"medical_allowance"`
	SpecialAllowance   decimal.Decimal `db:"special_allowance" json:"special_allowance"`
	OtherAllowances    decimal.Decimal `db:"other_allowances" json:"other_allowances"`
	GrossSalary        decimal.Decimal `db:"gross_salary" json:"gross_salary"`
	EffectiveFrom      time.Time       `db:"effective_from" json:"effective_from"`
	EffectiveTo        *time.Time      `db:"effective_to" json:"effective_to,omitempty"`
	IsActive           bool            `db:"is_active" json:"is_active"`
	CreatedBy          *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// Gross sums all salary components to two decimal places.
func (s *SalaryStructure) Gross() decimal.Decimal {
	return s.BasicSalary.
		Add(s.HRA).
		Add(s.TransportAllowance).
		Add(s.DearnessAllowance).
		Add(s.MedicalAllowance).
		Add(s.SpecialAllowance).
		Add(s.OtherAllowances).
		Round(2)
}

// DeductionType is a catalog entry for a kind of deduction.
type DeductionType struct {
	ID              int64            `db:"id" json:"id"`
	Name            string           `db:"name" json:"name"`
	Description     *string          `db:"description" json:"description,omitempty"`
	CalculationType CalculationType  `db:"calculation_type" json:"calculation_type"`
	DefaultValue    *decimal.Decimal `db:"default_value" json:"default_value,omitempty"`
	IsMandatory     bool             `db:"is_mandatory" json:"is_mandatory"`
	IsActive        bool             `db:"is_active" json:"is_active"`
}

// EmployeeDeduction assigns a deduction to an employee. Several may be
// simultaneously active for the same employee.
type EmployeeDeduction struct {
	ID              int64           `db:"id" json:"id"`
	EmpID           string          `db:"emp_id" json:"emp_id"`
	DeductionTypeID int64           `db:"deduction_type_id" json:"deduction_type_id"`
	CalculationType CalculationType `db:"calculation_type" json:"calculation_type"`
	Value           decimal.Decimal `db:"value" json:"value"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	EffectiveFrom   time.Time       `db:"effective_from" json:"effective_from"`
	EffectiveTo     *time.Time      `db:"effective_to" json:"effective_to,omitempty"`
}

// Amount computes the deduction against the given basic salary, exact to two
// decimal places.
func (d *EmployeeDeduction) Amount(basic decimal.Decimal) decimal.Decimal {
	if d.CalculationType == CalcPercentage {
		return basic.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	}
	return d.Value.Round(2)
}

// DeductionLine is one itemized entry in a payroll's audit trail.
type DeductionLine struct {
	Name   string          `json:"name"`
	Type   CalculationType `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Amount decimal.Decimal `json:"amount"`
}

// OvertimeStatus tracks overtime approval.
type OvertimeStatus string

const (
	OvertimePending  OvertimeStatus = "PENDING"
	OvertimeApproved OvertimeStatus = "APPROVED"
	OvertimeRejected OvertimeStatus = "REJECTED"
)

// OvertimeRecord is one day's computed overtime for an employee, unique per
// (emp_id, date).
type OvertimeRecord struct {
	ID             int64           `db:"id" json:"id"`
	EmpID          string          `db:"emp_id" json:"emp_id"`
	Date           time.Time       `db:"date" json:"date"`
	RegularHours   decimal.Decimal `db:"regular_hours" json:"regular_hours"`
	ActualHours    decimal.Decimal `db:"actual_hours" json:"actual_hours"`
	OvertimeHours  decimal.Decimal `db:"overtime_hours" json:"overtime_hours"`
	OvertimeRate   decimal.Decimal `db:"overtime_rate" json:"overtime_rate"`
	OvertimeAmount decimal.Decimal `db:"overtime_amount" json:"overtime_amount"`
	Status         OvertimeStatus  `db:"status" json:"status"`
	ApprovedBy     *string         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	Remarks        *string         `db:"remarks" json:"remarks,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// PayrollStatus tracks the payment lifecycle of a payroll record.
type PayrollStatus string

const (
	PayrollDraft     PayrollStatus = "DRAFT"
	PayrollProcessed PayrollStatus = "PROCESSED"
	PayrollPaid      PayrollStatus = "PAID"
)

// PayrollRecord is a frozen snapshot of one pay period, unique per
// (emp_id, month, year). Re-processing a period is rejected, not overwritten.
type PayrollRecord struct {
	ID                 int64           `db:"id" json:"id"`
	EmpID              string          `db:"emp_id" json:"emp_id"`
	Month              int             `db:"month" json:"month"`
	Year               int             `db:"year" json:"year"`
	BasicSalary        decimal.Decimal `db:"basic_salary" json:"basic_salary"`
	HRA                decimal.Decimal `db:"hra" json:"hra"`
	TransportAllowance decimal.Decimal `db:"transport_allowance" json:"transport_allowance"`
	DearnessAllowance  decimal.Decimal `db:"dearness_allowance" json:"dearness_allowance"`
	MedicalAllowance   decimal.Decimal `db:"medical_allowance" json:"medical_allowance"`
	SpecialAllowance   decimal.Decimal `db:"special_allowance" json:"special_allowance"`
	OtherAllowances    decimal.Decimal `db:"other_allowances" json:"other_allowances"`
	OvertimeAmount     decimal.Decimal `db:"overtime_amount" json:"overtime_amount"`
	OvertimeHours      decimal.Decimal `db:"overtime_hours" json:"overtime_hours"`
	GrossSalary        decimal.Decimal `db:"gross_salary" json:"gross_salary"`
	TotalDeductions    decimal.Decimal `db:"total_deductions" json:"total_deductions"`
	NetSalary          decimal.Decimal `db:"net_salary" json:"net_salary"`
	DeductionDetails   *string         `db:"deduction_details" json:"deduction_details,omitempty"`
	WorkingDays        int             `db:"working_days" json:"working_days"`
	PresentDays        float64         `db:"present_days" json:"present_days"`
	AbsentDays         float64         `db:"absent_days" json:"absent_days"`
	LeaveDays          int             `db:"leave_days" json:"leave_days"`
	Status             PayrollStatus   `db:"status" json:"status"`
	ProcessedBy        *string         `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt        *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	PaymentDate        *time.Time      `db:"payment_date" json:"payment_date,omitempty"`
	PaymentMethod      *string         `db:"payment_method" json:"payment_method,omitempty"`
	TransactionID      *string         `db:"transaction_id" json:"transaction_id,omitempty"`
	BankReference      *string         `db:"bank_reference" json:"bank_reference,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}
