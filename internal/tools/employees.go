package tools

import (
	"context"
	"fmt"

	"github.com/peopleos/jinji/internal/model"
	"github.com/peopleos/jinji/internal/storage"
)

func (r *Registry) registerEmployeeTools() {
	r.Register(Tool{
		Name:        "list_employees",
		Description: "List employees in a tenant, optionally filtered by department",
		Parameters: objectSchema(map[string]any{
			"tenant_id":  strProp("Tenant ID"),
			"department": strProp("Department name to filter by"),
		}, "tenant_id"),
		Handler: r.listEmployees,
	})

	r.Register(Tool{
		Name:        "get_employee_profile",
		Description: "Get the full profile of an employee",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
		}, "tenant_id", "employee_id"),
		Handler: r.getEmployeeProfile,
	})

	r.Register(Tool{
		Name:        "find_employee",
		Description: "Find employees by name, email, or role",
		Parameters: objectSchema(map[string]any{
			"tenant_id": strProp("Tenant ID"),
			"query":     strProp("Name, email, or role to search for"),
		}, "tenant_id", "query"),
		Handler: r.findEmployee,
	})

	r.Register(Tool{
		Name:        "get_org_chart",
		Description: "Show the reporting structure around an employee",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID at the root of the chart"),
		}, "tenant_id", "employee_id"),
		Handler: r.getOrgChart,
	})

	r.Register(Tool{
		Name:        "get_dashboard_summary",
		Description: "Get headline HR metrics for a tenant",
		Parameters: objectSchema(map[string]any{
			"tenant_id": strProp("Tenant ID"),
		}, "tenant_id"),
		Handler: r.getDashboardSummary,
	})
}

func employeeSummary(e model.Employee) map[string]any {
	return map[string]any{
		"id":         e.ID.String(),
		"name":       e.FullName(),
		"email":      e.Email,
		"department": e.Department,
		"role":       string(e.Role),
		"is_active":  e.IsActive,
	}
}

func (r *Registry) listEmployees(ctx context.Context, args map[string]any) map[string]any {
	tenantID, err := uuidArg(args, "tenant_id")
	if err != nil {
		return errResult(err.Error())
	}

	employees, err := r.db.ListEmployees(ctx, tenantID, "", strArg(args, "department"))
	if err != nil {
		return errResult(fmt.Sprintf("list_employees failed: %v", err))
	}

	out := make([]map[string]any, 0, len(employees))
	for _, e := range employees {
		out = append(out, employeeSummary(e))
	}
	return map[string]any{"employees": out, "count": len(out)}
}

func (r *Registry) getEmployeeProfile(ctx context.Context, args map[string]any) map[string]any {
	_, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	profile := employeeSummary(emp)
	profile["first_name"] = emp.FirstName
	profile["last_name"] = emp.LastName
	profile["created_at"] = emp.CreatedAt.Format(dateLayout)

	if emp.ReportingManagerID != nil {
		if mgr, err := r.db.GetEmployeeByID(ctx, *emp.ReportingManagerID); err == nil {
			profile["reporting_manager"] = mgr.FullName()
		}
	}
	return profile
}

func (r *Registry) findEmployee(ctx context.Context, args map[string]any) map[string]any {
	tenantID, err := uuidArg(args, "tenant_id")
	if err != nil {
		return errResult(err.Error())
	}
	query := strArg(args, "query")
	if query == "" {
		return errResult("missing query")
	}

	matches, err := r.db.ListEmployees(ctx, tenantID, query, "")
	if err != nil {
		return errResult(fmt.Sprintf("find_employee failed: %v", err))
	}
	if len(matches) == 0 {
		return errResult(fmt.Sprintf("No employee found matching '%s'", query))
	}

	out := make([]map[string]any, 0, len(matches))
	for _, e := range matches {
		out = append(out, employeeSummary(e))
	}
	return map[string]any{"matches": out, "count": len(out)}
}

// getOrgChart returns the employee's manager (one hop up) and active direct
// reports (one hop down). It does not walk the full hierarchy.
func (r *Registry) getOrgChart(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	chart := map[string]any{
		"employee": emp.FullName(),
		"manager":  nil,
	}
	if emp.ReportingManagerID != nil {
		if mgr, err := r.db.GetEmployeeByID(ctx, *emp.ReportingManagerID); err == nil {
			chart["manager"] = map[string]any{
				"id":   mgr.ID.String(),
				"name": mgr.FullName(),
				"role": string(mgr.Role),
			}
		}
	}

	direct, err := r.db.ListDirectReports(ctx, tenantID, emp.ID)
	if err != nil {
		return errResult(fmt.Sprintf("get_org_chart failed: %v", err))
	}
	reports := make([]map[string]any, 0, len(direct))
	for _, e := range direct {
		reports = append(reports, map[string]any{
			"id":   e.ID.String(),
			"name": e.FullName(),
			"role": string(e.Role),
		})
	}
	chart["direct_reports"] = reports
	chart["total_reports"] = len(reports)
	return chart
}

func (r *Registry) getDashboardSummary(ctx context.Context, args map[string]any) map[string]any {
	tenantID, err := uuidArg(args, "tenant_id")
	if err != nil {
		return errResult(err.Error())
	}

	if _, err := r.db.GetTenant(ctx, tenantID); err != nil {
		if err == storage.ErrNotFound {
			return errResult("Tenant not found")
		}
		return errResult(fmt.Sprintf("get_dashboard_summary failed: %v", err))
	}

	counts, err := r.db.GetDashboardCounts(ctx, tenantID)
	if err != nil {
		return errResult(fmt.Sprintf("get_dashboard_summary failed: %v", err))
	}

	return map[string]any{
		"total_employees":    counts.TotalEmployees,
		"active_employees":   counts.ActiveEmployees,
		"pending_leaves":     counts.PendingLeaves,
		"documents_ingested": counts.DocumentsIngested,
		"documents_pending":  counts.DocumentsPending,
	}
}
