package model

import (
	"time"

	"github.com/google/uuid"
)

// LeaveStatus represents the lifecycle state of a leave request.
// Transitions are monotonic: pending -> approved or pending -> rejected.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// AnnualLeaveEntitlement is the fixed yearly leave allowance in days.
const AnnualLeaveEntitlement = 12

// LeaveRequest is a request for time off between two dates (inclusive).
type LeaveRequest struct {
	ID         uuid.UUID   `json:"id"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	EmployeeID uuid.UUID   `json:"employee_id"`
	FromDate   time.Time   `json:"from_date"`
	ToDate     time.Time   `json:"to_date"`
	Reason     *string     `json:"reason,omitempty"`
	Status     LeaveStatus `json:"status"`
	ApproverID *uuid.UUID  `json:"approver_id,omitempty"`
	ApprovedAt *time.Time  `json:"approved_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Days returns the inclusive day span of the request.
// A single-day request (from == to) counts as one day.
func (l LeaveRequest) Days() int {
	from := l.FromDate.Truncate(24 * time.Hour)
	to := l.ToDate.Truncate(24 * time.Hour)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}
