package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole identifies an employee's access level.
type UserRole string

const (
	RoleEmployee   UserRole = "EMPLOYEE"
	RoleHR         UserRole = "HR"
	RoleCEO        UserRole = "CEO"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleEmployee, RoleHR, RoleCEO, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// AutoApprovesLeave reports whether leave applications from this role skip
// the two-stage approval flow entirely.
func (r UserRole) AutoApprovesLeave() bool {
	return r == RoleCEO || r == RoleSuperAdmin
}

// Employee is a directory entry keyed by the normalized employee ID.
type Employee struct {
	EmpID        string    `db:"emp_id" json:"emp_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Designation  *string   `db:"designation" json:"designation,omitempty"`
	Role         UserRole  `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	BankAccount  *string   `db:"bank_account" json:"bank_account,omitempty"`
	BankIFSC     *string   `db:"bank_ifsc" json:"bank_ifsc,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasBankDetails reports whether the payout collaborator can be invoked for
// this employee. Only presence is checked.
func (e *Employee) HasBankDetails() bool {
	return e.BankAccount != nil && *e.BankAccount != "" && e.BankIFSC != nil && *e.BankIFSC != ""
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	EmpID    string   `json:"emp_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination captures list paging metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
