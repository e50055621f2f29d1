package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/peopleos/jinji/internal/storage"
)

func (r *Registry) registerPayrollTools() {
	r.Register(Tool{
		Name:        "list_recent_paystubs",
		Description: "List an employee's most recent paystubs",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
			"n":           intProp("Number of paystubs to return"),
		}, "tenant_id", "employee_id"),
		Handler: r.listRecentPaystubs,
	})

	r.Register(Tool{
		Name:        "download_payslip",
		Description: "Get the payslip for a specific month and year",
		Parameters: objectSchema(map[string]any{
			"tenant_id":   strProp("Tenant ID"),
			"employee_id": strProp("Employee ID"),
			"month":       intProp("Month number (1-12)"),
			"year":        intProp("Four-digit year"),
		}, "tenant_id", "employee_id", "month", "year"),
		Handler: r.downloadPayslip,
	})

	r.Register(Tool{
		Name:        "estimate_tax_deduction",
		Description: "Calculate estimated tax for a bonus or salary change",
		Parameters: objectSchema(map[string]any{
			"tenant_id":    strProp("Tenant ID"),
			"employee_id":  strProp("Employee ID"),
			"gross_amount": numProp("Gross amount to calculate tax on"),
		}, "tenant_id", "employee_id", "gross_amount"),
		Handler: r.estimateTaxDeduction,
	})
}

func (r *Registry) listRecentPaystubs(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	n := intArg(args, "n", 3)
	stubs, err := r.db.ListRecentPaystubs(ctx, tenantID, emp.ID, n)
	if err != nil {
		return errResult(fmt.Sprintf("list_recent_paystubs failed: %v", err))
	}

	out := make([]map[string]any, 0, len(stubs))
	for _, p := range stubs {
		out = append(out, map[string]any{
			"id":           p.ID.String(),
			"period_start": p.PayPeriodStart.Format(dateLayout),
			"period_end":   p.PayPeriodEnd.Format(dateLayout),
			"gross_amount": p.GrossAmount,
			"net_amount":   p.NetAmount,
			"currency":     p.Currency,
		})
	}

	return map[string]any{"paystubs": out, "count": len(out)}
}

// downloadPayslip resolves the paystub whose pay period ends inside the
// requested calendar month. The lookup range is half-open, with December
// rolling into January of the next year.
func (r *Registry) downloadPayslip(ctx context.Context, args map[string]any) map[string]any {
	tenantID, emp, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	month := intArg(args, "month", 0)
	year := intArg(args, "year", 0)
	if month < 1 || month > 12 {
		return errResult("Invalid month: must be between 1 and 12")
	}
	if year < 1900 || year > 9999 {
		return errResult("Invalid year")
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	var end time.Time
	if month == 12 {
		end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		end = time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	}

	p, err := r.db.GetPaystubInPeriod(ctx, tenantID, emp.ID, start, end)
	if err != nil {
		if err == storage.ErrNotFound {
			return errResult(fmt.Sprintf("No payslip found for %d-%02d", year, month))
		}
		return errResult(fmt.Sprintf("download_payslip failed: %v", err))
	}

	return map[string]any{
		"payslip_id":   p.ID.String(),
		"period_start": p.PayPeriodStart.Format(dateLayout),
		"period_end":   p.PayPeriodEnd.Format(dateLayout),
		"gross_amount": p.GrossAmount,
		"net_amount":   p.NetAmount,
		"currency":     p.Currency,
		"download_url": fmt.Sprintf("/payslips/%s.pdf", p.ID),
	}
}

// estimateTaxDeduction applies a flat three-bracket estimate to the whole
// gross amount: 30% above 100000, 20% above 50000, 10% otherwise.
func (r *Registry) estimateTaxDeduction(ctx context.Context, args map[string]any) map[string]any {
	_, _, errMap := r.tenantEmployee(ctx, args, "employee_id")
	if errMap != nil {
		return errMap
	}

	gross, ok := floatArg(args, "gross_amount")
	if !ok {
		return errResult("missing gross_amount")
	}
	if gross < 0 {
		return errResult("gross_amount must be non-negative")
	}

	var rate float64
	switch {
	case gross > 100000:
		rate = 0.30
	case gross > 50000:
		rate = 0.20
	default:
		rate = 0.10
	}

	tax := gross * rate
	return map[string]any{
		"gross_amount":  gross,
		"applied_rate":  fmt.Sprintf("%.0f%%", rate*100),
		"estimated_tax": tax,
		"net_amount":    gross - tax,
	}
}
