package model

import (
	"time"

	"github.com/google/uuid"
)

// Paystub is a read-only payroll fact for one pay period.
type Paystub struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	EmployeeID     uuid.UUID `json:"employee_id"`
	PayPeriodStart time.Time `json:"pay_period_start"`
	PayPeriodEnd   time.Time `json:"pay_period_end"`
	GrossAmount    float64   `json:"gross_amount"`
	NetAmount      float64   `json:"net_amount"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}

// Timesheet groups the attendance entries of one employee for one period.
type Timesheet struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	EmployeeID  uuid.UUID `json:"employee_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	CreatedAt   time.Time `json:"created_at"`
}

// TimesheetEntry is one day's worked hours within a timesheet.
type TimesheetEntry struct {
	ID          uuid.UUID `json:"id"`
	TimesheetID uuid.UUID `json:"timesheet_id"`
	WorkDate    time.Time `json:"work_date"`
	Hours       float64   `json:"hours"`
	Notes       *string   `json:"notes,omitempty"`
}
