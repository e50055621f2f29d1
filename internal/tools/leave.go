package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/peopleos/jinji/internal/model"
	"github.com/peopleos/jinji/internal/storage"
)

const dateLayout = "2006-01-02"

func (r *Registry) registerLeaveTools() {
	r.Register(Tool{
		Name:        "get_leave_balance",
		Description: "Get leave balance for an employee",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
		}, "tenant_id", "employee_id"),
		Handler: r.getLeaveBalance,
	})

	r.Register(Tool{
		Name:        "create_leave_request",
		Description: "Create a new leave request",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
			"from_date":   strProp("Start date (ISO format)"),
			"to_date":     strProp("End date (ISO format)"),
			"reason":      strProp("Reason for leave"),
		}, "tenant_id", "employee_id", "from_date", "to_date"),
		Handler: r.createLeaveRequest,
	})

	r.Register(Tool{
		Name:        "approve_leave",
		Description: "Approve a leave request (requires manager/HR/CEO role)",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"approver_id": strProp("Approver employee ID"),
			"leave_id":    strProp("Leave request ID"),
		}, "tenant_id", "approver_id", "leave_id"),
		Handler: r.approveLeave,
	})

	r.Register(Tool{
		Name:        "get_my_leave_requests",
		Description: "List the status of my recent leave requests",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
			"n":           intProp("Number of requests to return"),
		}, "tenant_id", "employee_id"),
		Handler: r.getMyLeaveRequests,
	})

	r.Register(Tool{
		Name:        "get_pending_approvals",
		Description: "Show leave requests waiting for my approval",
		Parameters: objectSchema(map[string]any{
			"tenant_id":  strProp("Tenant ID"),
			"manager_id": strProp("Manager employee ID"),
		}, "tenant_id", "manager_id"),
		Handler: r.getPendingApprovals,
	})
}

// getLeaveBalance computes the remaining allowance: the fixed annual
// entitlement minus the inclusive day spans of all approved requests,
// clamped at zero.
func (r *Registry) getLeaveBalance(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	approved, err := r.db.ListLeaveRequests(ctx, tenantID, emp.ID, model.LeaveApproved, 0)
	if err != nil {
		return errResult(fmt.Sprintf("get_leave_balance failed: %v", err))
	}

	used := 0
	for _, l := range approved {
		used += l.Days()
	}
	remaining := model.AnnualLeaveEntitlement - used
	if remaining < 0 {
		remaining = 0
	}

	return map[string]any{
		"employee_id":       emp.ID.String(),
		"total_entitlement": model.AnnualLeaveEntitlement,
		"used_days":         used,
		"remaining_days":    remaining,
	}
}

func (r *Registry) createLeaveRequest(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	fromDate, err := dateArg(args, "from_date")
	if err != nil {
		return errResult(err.Error())
	}
	toDate, err := dateArg(args, "to_date")
	if err != nil {
		return errResult(err.Error())
	}

	var reason *string
	if s := strArg(args, "reason"); s != "" {
		reason = &s
	}

	l, err := r.db.CreateLeaveRequest(ctx, model.LeaveRequest{
		TenantID:   tenantID,
		EmployeeID: emp.ID,
		FromDate:   fromDate,
		ToDate:     toDate,
		Reason:     reason,
	})
	if err != nil {
		return errResult(fmt.Sprintf("create_leave_request failed: %v", err))
	}

	return map[string]any{
		"leave_id":  l.ID.String(),
		"status":    string(l.Status),
		"from_date": l.FromDate.Format(dateLayout),
		"to_date":   l.ToDate.Format(dateLayout),
		"days":      l.Days(),
	}
}

// approveLeave checks the approver's role before the status guard: an
// unauthorized caller learns nothing about the request's current state.
func (r *Registry) approveLeave(ctx context.Context, args map[string]any) map[string]any {
	tenantID, approver, errMap := r.tenantEmployee(ctx, args, "approver_id")
	if errMap != nil {
		return errMap
	}

	leaveID, err := uuidArg(args, "leave_id")
	if err != nil {
		return errResult(err.Error())
	}

	if !approver.Role.CanApproveLeave() {
		return errResult("Only managers, HR, or the CEO can approve leave requests")
	}

	l, err := r.db.DecideLeave(ctx, tenantID, leaveID, approver.ID, model.LeaveApproved)
	if err != nil {
		switch err {
		case storage.ErrNotFound:
			return errResult("Leave request not found")
		case storage.ErrLeaveNotPending:
			return errResult(fmt.Sprintf("Leave request is already %s", l.Status))
		default:
			return errResult(fmt.Sprintf("approve_leave failed: %v", err))
		}
	}

	return map[string]any{
		"leave_id":    l.ID.String(),
		"status":      string(l.Status),
		"approved_by": approver.FullName(),
		"approved_at": l.ApprovedAt.UTC().Format(time.RFC3339),
	}
}

func (r *Registry) getMyLeaveRequests(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	n := intArg(args, "n", 5)
	requests, err := r.db.ListLeaveRequests(ctx, tenantID, emp.ID, "", n)
	if err != nil {
		return errResult(fmt.Sprintf("get_my_leave_requests failed: %v", err))
	}

	out := make([]map[string]any, 0, len(requests))
	for _, l := range requests {
		item := map[string]any{
			"id":        l.ID.String(),
			"from_date": l.FromDate.Format(dateLayout),
			"to_date":   l.ToDate.Format(dateLayout),
			"days":      l.Days(),
			"status":    string(l.Status),
		}
		if l.Reason != nil {
			item["reason"] = *l.Reason
		}
		out = append(out, item)
	}

	return map[string]any{"requests": out, "count": len(out)}
}

func (r *Registry) getPendingApprovals(ctx context.Context, args map[string]any) map[string]any {
	tenantID, manager, errMap := r.tenantEmployee(ctx, args, "manager_id")
	if errMap != nil {
		return errMap
	}

	pending, err := r.db.ListPendingApprovals(ctx, tenantID, manager.ID)
	if err != nil {
		return errResult(fmt.Sprintf("get_pending_approvals failed: %v", err))
	}

	out := make([]map[string]any, 0, len(pending))
	for _, l := range pending {
		item := map[string]any{
			"leave_id":  l.ID.String(),
			"from_date": l.FromDate.Format(dateLayout),
			"to_date":   l.ToDate.Format(dateLayout),
			"days":      l.Days(),
		}
		if emp, err := r.db.GetEmployee(ctx, tenantID, l.EmployeeID); err == nil {
			item["employee"] = emp.FullName()
		}
		if l.Reason != nil {
			item["reason"] = *l.Reason
		}
		out = append(out, item)
	}

	return map[string]any{"pending": out, "count": len(out)}
}
