// Package model defines the core HR domain types.
//
// All types correspond directly to database tables. Every row-owning type
// carries a TenantID; tenant scoping is enforced by the storage layer on
// every query. Types use strong typing (UUIDs, time.Time, enums) and avoid
// interface{} wherever possible.
package model

import (
	"time"

	"github.com/google/uuid"
)

// EmployeeRole represents an employee's role within the organisation.
type EmployeeRole string

const (
	RoleEmployee EmployeeRole = "employee"
	RoleManager  EmployeeRole = "manager"
	RoleHR       EmployeeRole = "hr"
	RoleCEO      EmployeeRole = "ceo"
)

// CanApproveLeave reports whether the role is allowed to approve
// leave requests.
func (r EmployeeRole) CanApproveLeave() bool {
	switch r {
	case RoleManager, RoleHR, RoleCEO:
		return true
	default:
		return false
	}
}

// Employee is a member of a tenant's workforce.
//
// ReportingManagerID is a self-reference forming the org tree. The schema
// does not prevent cycles; storage.SetReportingManager rejects writes that
// would create one.
type Employee struct {
	ID                 uuid.UUID    `json:"id"`
	TenantID           uuid.UUID    `json:"tenant_id"`
	FirstName          string       `json:"first_name"`
	LastName           string       `json:"last_name"`
	Email              string       `json:"email"`
	Department         string       `json:"department"`
	Role               EmployeeRole `json:"role"`
	IsActive           bool         `json:"is_active"`
	ReportingManagerID *uuid.UUID   `json:"reporting_manager_id,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// FullName returns the employee's display name.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Tenant is the isolation boundary. Every query is scoped by tenant ID.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
