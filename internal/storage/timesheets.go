package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/peopleos/jinji/internal/model"
)

// CreateTimesheet inserts a timesheet row.
func (db *DB) CreateTimesheet(ctx context.Context, t model.Timesheet) (model.Timesheet, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO timesheets (id, tenant_id, employee_id, period_start, period_end, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.TenantID, t.EmployeeID, t.PeriodStart, t.PeriodEnd, t.CreatedAt,
	)
	if err != nil {
		return model.Timesheet{}, fmt.Errorf("storage: create timesheet: %w", err)
	}
	return t, nil
}

// CreateTimesheetEntry inserts one worked-day entry.
func (db *DB) CreateTimesheetEntry(ctx context.Context, e model.TimesheetEntry) (model.TimesheetEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO timesheet_entries (id, timesheet_id, work_date, hours, notes)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.TimesheetID, e.WorkDate, e.Hours, e.Notes,
	)
	if err != nil {
		return model.TimesheetEntry{}, fmt.Errorf("storage: create timesheet entry: %w", err)
	}
	return e, nil
}

// CreateTimesheetWithEntry inserts a timesheet and its first entry
// atomically within a single transaction.
func (db *DB) CreateTimesheetWithEntry(ctx context.Context, t model.Timesheet, e model.TimesheetEntry) (model.TimesheetEntry, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.TimesheetEntry{}, fmt.Errorf("storage: begin timesheet tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.TimesheetID = t.ID

	if _, err := tx.Exec(ctx,
		`INSERT INTO timesheets (id, tenant_id, employee_id, period_start, period_end, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.TenantID, t.EmployeeID, t.PeriodStart, t.PeriodEnd, t.CreatedAt,
	); err != nil {
		return model.TimesheetEntry{}, fmt.Errorf("storage: create timesheet: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO timesheet_entries (id, timesheet_id, work_date, hours, notes)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.TimesheetID, e.WorkDate, e.Hours, e.Notes,
	); err != nil {
		return model.TimesheetEntry{}, fmt.Errorf("storage: create timesheet entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.TimesheetEntry{}, fmt.Errorf("storage: commit timesheet tx: %w", err)
	}
	return e, nil
}

// ListTimesheetEntries returns an employee's entries with work dates inside
// the inclusive range [start, end], joined through the owning timesheet so
// tenant scoping applies.
func (db *DB) ListTimesheetEntries(ctx context.Context, tenantID, employeeID uuid.UUID, start, end time.Time) ([]model.TimesheetEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT te.id, te.timesheet_id, te.work_date, te.hours, te.notes
		 FROM timesheet_entries te
		 JOIN timesheets t ON t.id = te.timesheet_id
		 WHERE t.tenant_id = $1 AND t.employee_id = $2
		 AND te.work_date >= $3 AND te.work_date <= $4
		 ORDER BY te.work_date`,
		tenantID, employeeID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list timesheet entries: %w", err)
	}
	defer rows.Close()

	var out []model.TimesheetEntry
	for rows.Next() {
		var e model.TimesheetEntry
		if err := rows.Scan(&e.ID, &e.TimesheetID, &e.WorkDate, &e.Hours, &e.Notes); err != nil {
			return nil, fmt.Errorf("storage: scan timesheet entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
