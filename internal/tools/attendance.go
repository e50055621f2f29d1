package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/peopleos/jinji/internal/model"
)

// standardWorkDayHours is the daily threshold above which worked hours
// count as overtime.
const standardWorkDayHours = 9.0

func (r *Registry) registerAttendanceTools() {
	r.Register(Tool{
		Name:        "get_attendance_summary",
		Description: "Summarize attendance for an employee over a date range",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
			"start_date":  strProp("Range start date (ISO format)"),
			"end_date":    strProp("Range end date (ISO format)"),
		}, "tenant_id", "employee_id", "start_date", "end_date"),
		Handler: r.getAttendanceSummary,
	})

	r.Register(Tool{
		Name:        "regularize_attendance",
		Description: "Request attendance regularization for a missed punch-in/out",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
			"date":        strProp("Date to regularize (ISO format)"),
			"reason":      strProp("Reason for regularization"),
			"hours":       numProp("Hours worked on that date, defaults to a standard day"),
		}, "tenant_id", "employee_id", "date", "reason"),
		Handler: r.regularizeAttendance,
	})
}

// getAttendanceSummary aggregates timesheet entries over an inclusive date
// range. Days present counts distinct work dates, and any hours beyond the
// standard work day accrue as overtime per entry.
func (r *Registry) getAttendanceSummary(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	start, err := dateArg(args, "start_date")
	if err != nil {
		return errResult(err.Error())
	}
	end, err := dateArg(args, "end_date")
	if err != nil {
		return errResult(err.Error())
	}
	if end.Before(start) {
		return errResult("end_date must not be before start_date")
	}

	entries, err := r.db.ListTimesheetEntries(ctx, tenantID, emp.ID, start, end)
	if err != nil {
		return errResult(fmt.Sprintf("get_attendance_summary failed: %v", err))
	}

	var totalHours, overtime float64
	days := make(map[string]struct{})
	for _, e := range entries {
		totalHours += e.Hours
		if e.Hours > standardWorkDayHours {
			overtime += e.Hours - standardWorkDayHours
		}
		days[e.WorkDate.Format(dateLayout)] = struct{}{}
	}

	avg := 0.0
	if len(days) > 0 {
		avg = math.Round(totalHours/float64(len(days))*100) / 100
	}

	return map[string]any{
		"employee_id":    emp.ID.String(),
		"start_date":     start.Format(dateLayout),
		"end_date":       end.Format(dateLayout),
		"days_present":   len(days),
		"total_hours":    totalHours,
		"overtime_hours": overtime,
		"average_hours":  avg,
	}
}

// regularizeAttendance records a backdated entry under a single-day
// timesheet so the correction is visible to later summaries.
func (r *Registry) regularizeAttendance(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	workDate, err := dateArg(args, "date")
	if err != nil {
		return errResult(err.Error())
	}
	reason := strArg(args, "reason")
	if reason == "" {
		return errResult("missing reason")
	}
	hours, ok := floatArg(args, "hours")
	if !ok {
		hours = standardWorkDayHours
	}
	if hours <= 0 || hours > 24 {
		return errResult("hours must be between 0 and 24")
	}

	notes := &reason

	entry, err := r.db.CreateTimesheetWithEntry(ctx,
		model.Timesheet{
			TenantID:    tenantID,
			EmployeeID:  emp.ID,
			PeriodStart: workDate,
			PeriodEnd:   workDate,
		},
		model.TimesheetEntry{
			WorkDate: workDate,
			Hours:    hours,
			Notes:    notes,
		})
	if err != nil {
		return errResult(fmt.Sprintf("regularize_attendance failed: %v", err))
	}

	return map[string]any{
		"entry_id": entry.ID.String(),
		"date":     workDate.Format(dateLayout),
		"hours":    hours,
		"status":   "regularized",
	}
}
