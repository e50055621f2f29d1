package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peopleos/jinji/internal/model"
)

const leaveColumns = `id, tenant_id, employee_id, from_date, to_date, reason,
	status, approver_id, approved_at, created_at`

func scanLeave(row pgx.Row) (model.LeaveRequest, error) {
	var l model.LeaveRequest
	err := row.Scan(
		&l.ID, &l.TenantID, &l.EmployeeID, &l.FromDate, &l.ToDate, &l.Reason,
		&l.Status, &l.ApproverID, &l.ApprovedAt, &l.CreatedAt,
	)
	return l, err
}

// CreateLeaveRequest inserts a new pending leave request.
func (db *DB) CreateLeaveRequest(ctx context.Context, l model.LeaveRequest) (model.LeaveRequest, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = model.LeavePending
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO leave_requests (id, tenant_id, employee_id, from_date, to_date,
		 reason, status, approver_id, approved_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.TenantID, l.EmployeeID, l.FromDate, l.ToDate,
		l.Reason, l.Status, l.ApproverID, l.ApprovedAt, l.CreatedAt,
	)
	if err != nil {
		return model.LeaveRequest{}, fmt.Errorf("storage: create leave request: %w", err)
	}
	return l, nil
}

// GetLeaveRequest retrieves a leave request by ID within a tenant.
func (db *DB) GetLeaveRequest(ctx context.Context, tenantID, leaveID uuid.UUID) (model.LeaveRequest, error) {
	l, err := scanLeave(db.pool.QueryRow(ctx,
		`SELECT `+leaveColumns+` FROM leave_requests WHERE tenant_id = $1 AND id = $2`,
		tenantID, leaveID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.LeaveRequest{}, ErrNotFound
		}
		return model.LeaveRequest{}, fmt.Errorf("storage: get leave request: %w", err)
	}
	return l, nil
}

// ListLeaveRequests returns an employee's leave requests, newest first,
// optionally filtered by status. limit <= 0 means no limit.
func (db *DB) ListLeaveRequests(ctx context.Context, tenantID, employeeID uuid.UUID, status model.LeaveStatus, limit int) ([]model.LeaveRequest, error) {
	sql := `SELECT ` + leaveColumns + ` FROM leave_requests
		WHERE tenant_id = $1 AND employee_id = $2`
	args := []any{tenantID, employeeID}

	if status != "" {
		args = append(args, status)
		sql += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	sql += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list leave requests: %w", err)
	}
	defer rows.Close()

	var out []model.LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan leave request: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListPendingApprovals returns the pending leave requests of all employees
// who report directly to the given manager, oldest first.
func (db *DB) ListPendingApprovals(ctx context.Context, tenantID, managerID uuid.UUID) ([]model.LeaveRequest, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT l.id, l.tenant_id, l.employee_id, l.from_date, l.to_date, l.reason,
		 l.status, l.approver_id, l.approved_at, l.created_at
		 FROM leave_requests l
		 JOIN employees e ON e.id = l.employee_id
		 WHERE l.tenant_id = $1 AND l.status = 'pending' AND e.reporting_manager_id = $2
		 ORDER BY l.created_at`,
		tenantID, managerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list pending approvals: %w", err)
	}
	defer rows.Close()

	var out []model.LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan pending approval: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DecideLeave transitions a pending leave request to the given terminal
// status, stamping the approver and decision time. The row is locked for
// the duration of the transaction so a concurrent decision cannot double-
// apply. Returns the request as found together with ErrLeaveNotPending
// when the request has already been decided.
func (db *DB) DecideLeave(ctx context.Context, tenantID, leaveID, approverID uuid.UUID, status model.LeaveStatus) (model.LeaveRequest, error) {
	if status != model.LeaveApproved && status != model.LeaveRejected {
		return model.LeaveRequest{}, fmt.Errorf("storage: invalid leave decision %q", status)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return model.LeaveRequest{}, fmt.Errorf("storage: begin leave decision: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l, err := scanLeave(tx.QueryRow(ctx,
		`SELECT `+leaveColumns+` FROM leave_requests
		 WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, leaveID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.LeaveRequest{}, ErrNotFound
		}
		return model.LeaveRequest{}, fmt.Errorf("storage: lock leave request: %w", err)
	}

	if l.Status != model.LeavePending {
		return l, ErrLeaveNotPending
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE leave_requests SET status = $3, approver_id = $4, approved_at = $5
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, leaveID, status, approverID, now,
	); err != nil {
		return model.LeaveRequest{}, fmt.Errorf("storage: decide leave: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.LeaveRequest{}, fmt.Errorf("storage: commit leave decision: %w", err)
	}

	l.Status = status
	l.ApproverID = &approverID
	l.ApprovedAt = &now
	return l, nil
}
