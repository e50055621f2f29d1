package tools_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopleos/jinji/internal/model"
	"github.com/peopleos/jinji/internal/storage"
	"github.com/peopleos/jinji/internal/testutil"
	"github.com/peopleos/jinji/internal/tools"
)

var (
	testDB       *storage.DB
	testRegistry *tools.Registry
)

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	var err error
	testDB, err = tc.NewTestDB(context.Background(), testutil.TestLogger())
	if err != nil {
		tc.Terminate()
		panic(err)
	}
	testRegistry = tools.New(testDB, testutil.TestLogger())

	code := m.Run()
	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func call(t *testing.T, name string, args map[string]any) map[string]any {
	t.Helper()
	result, ok := testRegistry.Dispatch(context.Background(), name, args)
	require.True(t, ok, "tool %s not registered", name)
	return result
}

func seedTenant(t *testing.T) model.Tenant {
	t.Helper()
	tenant, err := testDB.CreateTenant(context.Background(), model.Tenant{
		Name: "Acme " + uuid.NewString()[:8],
		Slug: "acme-" + uuid.NewString()[:8],
	})
	require.NoError(t, err)
	return tenant
}

func seedEmployee(t *testing.T, tenantID uuid.UUID, role model.EmployeeRole) model.Employee {
	t.Helper()
	e, err := testDB.CreateEmployee(context.Background(), model.Employee{
		TenantID:   tenantID,
		FirstName:  "Taro",
		LastName:   uuid.NewString()[:8],
		Email:      uuid.NewString()[:8] + "@acme.example",
		Department: "Engineering",
		Role:       role,
		IsActive:   true,
	})
	require.NoError(t, err)
	return e
}

func TestToolsAdvertised(t *testing.T) {
	names := make(map[string]bool)
	for _, def := range testRegistry.Tools() {
		names[def.Name] = true
		assert.NotEmpty(t, def.Description, "tool %s has no description", def.Name)
		assert.Equal(t, "object", def.Parameters["type"])
	}

	for _, want := range []string{
		"get_leave_balance", "create_leave_request", "approve_leave",
		"get_my_leave_requests", "get_pending_approvals",
		"list_recent_paystubs", "download_payslip", "estimate_tax_deduction",
		"get_attendance_summary", "regularize_attendance",
		"list_employees", "get_employee_profile", "find_employee",
		"get_org_chart", "get_dashboard_summary",
		"summarize_policy",
	} {
		assert.True(t, names[want], "tool %s not advertised", want)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	_, ok := testRegistry.Dispatch(context.Background(), "no_such_tool", nil)
	assert.False(t, ok)
}

func TestTenantIsolation(t *testing.T) {
	tenantA := seedTenant(t)
	tenantB := seedTenant(t)
	empB := seedEmployee(t, tenantB.ID, model.RoleEmployee)

	// Reaching another tenant's employee through tenant A must fail the
	// same way as a nonexistent employee.
	result := call(t, "get_leave_balance", map[string]any{
		"tenant_id":   tenantA.ID.String(),
		"employee_id": empB.ID.String(),
	})
	assert.Equal(t, "Employee not found", result["error"])
}

func TestLeaveBalance(t *testing.T) {
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)
	manager := seedEmployee(t, tenant.ID, model.RoleManager)

	args := map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
	}

	// Fresh employee has the full entitlement.
	result := call(t, "get_leave_balance", args)
	require.NotContains(t, result, "error")
	assert.Equal(t, 12, result["remaining_days"])
	assert.Equal(t, 0, result["used_days"])

	// A pending request does not consume balance.
	created := call(t, "create_leave_request", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"from_date":   "2026-06-01",
		"to_date":     "2026-06-03",
		"reason":      "vacation",
	})
	require.NotContains(t, created, "error")
	assert.Equal(t, 3, created["days"])

	result = call(t, "get_leave_balance", args)
	assert.Equal(t, 12, result["remaining_days"])

	// Approval consumes the inclusive span.
	approved := call(t, "approve_leave", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"approver_id": manager.ID.String(),
		"leave_id":    created["leave_id"],
	})
	require.NotContains(t, approved, "error")
	assert.Equal(t, "approved", approved["status"])

	result = call(t, "get_leave_balance", args)
	assert.Equal(t, 9, result["remaining_days"])
	assert.Equal(t, 3, result["used_days"])
}

func TestApproveLeave_RoleGate(t *testing.T) {
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)
	peer := seedEmployee(t, tenant.ID, model.RoleEmployee)

	created := call(t, "create_leave_request", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"from_date":   "2026-07-01",
		"to_date":     "2026-07-01",
	})
	require.NotContains(t, created, "error")

	result := call(t, "approve_leave", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"approver_id": peer.ID.String(),
		"leave_id":    created["leave_id"],
	})
	assert.Equal(t, "Only managers, HR, or the CEO can approve leave requests", result["error"])

	// The request is untouched.
	requests := call(t, "get_my_leave_requests", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
	})
	items := requests["requests"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "pending", items[0]["status"])
}

func TestApproveLeave_AlreadyApproved(t *testing.T) {
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)
	hr := seedEmployee(t, tenant.ID, model.RoleHR)

	created := call(t, "create_leave_request", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"from_date":   "2026-08-10",
		"to_date":     "2026-08-12",
	})
	require.NotContains(t, created, "error")

	approveArgs := map[string]any{
		"tenant_id":   tenant.ID.String(),
		"approver_id": hr.ID.String(),
		"leave_id":    created["leave_id"],
	}
	first := call(t, "approve_leave", approveArgs)
	require.NotContains(t, first, "error")

	second := call(t, "approve_leave", approveArgs)
	assert.Equal(t, "Leave request is already approved", second["error"])
}

func TestApproveLeave_NotFound(t *testing.T) {
	tenant := seedTenant(t)
	hr := seedEmployee(t, tenant.ID, model.RoleHR)

	result := call(t, "approve_leave", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"approver_id": hr.ID.String(),
		"leave_id":    uuid.NewString(),
	})
	assert.Equal(t, "Leave request not found", result["error"])
}

func TestPendingApprovals(t *testing.T) {
	tenant := seedTenant(t)
	manager := seedEmployee(t, tenant.ID, model.RoleManager)
	report := seedEmployee(t, tenant.ID, model.RoleEmployee)
	require.NoError(t, testDB.SetReportingManager(context.Background(), tenant.ID, report.ID, manager.ID))

	created := call(t, "create_leave_request", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": report.ID.String(),
		"from_date":   "2026-09-01",
		"to_date":     "2026-09-02",
	})
	require.NotContains(t, created, "error")

	result := call(t, "get_pending_approvals", map[string]any{
		"tenant_id":  tenant.ID.String(),
		"manager_id": manager.ID.String(),
	})
	require.NotContains(t, result, "error")
	assert.Equal(t, 1, result["count"])
	pending := result["pending"].([]map[string]any)
	assert.Equal(t, created["leave_id"], pending[0]["leave_id"])
	assert.Equal(t, report.FullName(), pending[0]["employee"])
}

func TestEstimateTaxDeduction(t *testing.T) {
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)

	cases := []struct {
		gross float64
		rate  string
		tax   float64
	}{
		{40000, "10%", 4000},
		{60000, "20%", 12000},
		{150000, "30%", 45000},
		{50000, "10%", 5000},   // boundary: 20% applies strictly above 50000
		{100000, "20%", 20000}, // boundary: 30% applies strictly above 100000
	}

	for _, tc := range cases {
		t.Run(tc.rate+"_"+fmt.Sprint(tc.gross), func(t *testing.T) {
			result := call(t, "estimate_tax_deduction", map[string]any{
				"tenant_id":    tenant.ID.String(),
				"employee_id":  emp.ID.String(),
				"gross_amount": tc.gross,
			})
			require.NotContains(t, result, "error")
			assert.InDelta(t, tc.gross, result["gross_amount"], 0.001)
			assert.Equal(t, tc.rate, result["applied_rate"])
			assert.InDelta(t, tc.tax, result["estimated_tax"], 0.001)
			assert.InDelta(t, tc.gross-tc.tax, result["net_amount"], 0.001)
		})
	}
}

func TestEstimateTaxDeduction_Schema(t *testing.T) {
	for _, tool := range testRegistry.Tools() {
		if tool.Name != "estimate_tax_deduction" {
			continue
		}
		props := tool.Parameters["properties"].(map[string]any)
		assert.Contains(t, props, "gross_amount")
		assert.NotContains(t, props, "gross_salary")
		assert.Contains(t, tool.Parameters["required"], "gross_amount")
		return
	}
	t.Fatal("estimate_tax_deduction not advertised")
}

func TestDownloadPayslip_DecemberWrap(t *testing.T) {
	ctx := context.Background()
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)

	_, err := testDB.CreatePaystub(ctx, model.Paystub{
		TenantID:       tenant.ID,
		EmployeeID:     emp.ID,
		PayPeriodStart: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		PayPeriodEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		GrossAmount:    5000,
		NetAmount:      4100,
	})
	require.NoError(t, err)

	// December must roll the upper bound into January of the next year.
	result := call(t, "download_payslip", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"month":       12,
		"year":        2024,
	})
	require.NotContains(t, result, "error")
	assert.Equal(t, 5000.0, result["gross_amount"])
	assert.Contains(t, result["download_url"], ".pdf")

	missing := call(t, "download_payslip", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"month":       11,
		"year":        2024,
	})
	assert.Equal(t, "No payslip found for 2024-11", missing["error"])

	invalid := call(t, "download_payslip", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"month":       13,
		"year":        2024,
	})
	assert.Equal(t, "Invalid month: must be between 1 and 12", invalid["error"])
}

func TestAttendanceSummary(t *testing.T) {
	ctx := context.Background()
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)

	ts, err := testDB.CreateTimesheet(ctx, model.Timesheet{
		TenantID:    tenant.ID,
		EmployeeID:  emp.ID,
		PeriodStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	for i, hours := range []float64{8, 10, 9.5} {
		_, err := testDB.CreateTimesheetEntry(ctx, model.TimesheetEntry{
			TimesheetID: ts.ID,
			WorkDate:    time.Date(2026, 2, 2+i, 0, 0, 0, 0, time.UTC),
			Hours:       hours,
		})
		require.NoError(t, err)
	}

	result := call(t, "get_attendance_summary", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"start_date":  "2026-02-01",
		"end_date":    "2026-02-28",
	})
	require.NotContains(t, result, "error")
	assert.Equal(t, 3, result["days_present"])
	assert.InDelta(t, 27.5, result["total_hours"], 0.001)
	assert.InDelta(t, 1.5, result["overtime_hours"], 0.001)
	assert.InDelta(t, 9.17, result["average_hours"], 0.001)
}

func TestRegularizeAttendance(t *testing.T) {
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)

	result := call(t, "regularize_attendance", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"date":        "2026-03-10",
		"hours":       8.0,
		"reason":      "forgot to clock in",
	})
	require.NotContains(t, result, "error")
	assert.Equal(t, "regularized", result["status"])

	// Omitted hours fall back to a standard work day.
	defaulted := call(t, "regularize_attendance", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"date":        "2026-03-11",
		"reason":      "badge reader was down",
	})
	require.NotContains(t, defaulted, "error")
	assert.Equal(t, 9.0, defaulted["hours"])

	// The corrected days show up in the summary.
	summary := call(t, "get_attendance_summary", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"start_date":  "2026-03-01",
		"end_date":    "2026-03-31",
	})
	assert.Equal(t, 2, summary["days_present"])

	noReason := call(t, "regularize_attendance", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"date":        "2026-03-12",
	})
	assert.Equal(t, "missing reason", noReason["error"])

	bad := call(t, "regularize_attendance", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"date":        "2026-03-10",
		"reason":      "forgot to clock out",
		"hours":       25.0,
	})
	assert.Equal(t, "hours must be between 0 and 24", bad["error"])
}

func TestFindEmployee(t *testing.T) {
	ctx := context.Background()
	tenant := seedTenant(t)

	_, err := testDB.CreateEmployee(ctx, model.Employee{
		TenantID: tenant.ID, FirstName: "Hanako", LastName: "Yamada",
		Email: "hanako." + uuid.NewString()[:8] + "@acme.example",
		Department: "HR", Role: model.RoleHR, IsActive: true,
	})
	require.NoError(t, err)

	result := call(t, "find_employee", map[string]any{
		"tenant_id": tenant.ID.String(),
		"query":     "hanako",
	})
	require.NotContains(t, result, "error")
	assert.Equal(t, 1, result["count"])

	missing := call(t, "find_employee", map[string]any{
		"tenant_id": tenant.ID.String(),
		"query":     "nobody-here",
	})
	assert.Equal(t, "No employee found matching 'nobody-here'", missing["error"])
}

func TestOrgChart(t *testing.T) {
	ctx := context.Background()
	tenant := seedTenant(t)
	ceo := seedEmployee(t, tenant.ID, model.RoleCEO)
	manager := seedEmployee(t, tenant.ID, model.RoleManager)
	worker := seedEmployee(t, tenant.ID, model.RoleEmployee)
	junior := seedEmployee(t, tenant.ID, model.RoleEmployee)
	require.NoError(t, testDB.SetReportingManager(ctx, tenant.ID, manager.ID, ceo.ID))
	require.NoError(t, testDB.SetReportingManager(ctx, tenant.ID, worker.ID, manager.ID))
	require.NoError(t, testDB.SetReportingManager(ctx, tenant.ID, junior.ID, worker.ID))

	result := call(t, "get_org_chart", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": manager.ID.String(),
	})
	require.NotContains(t, result, "error")

	assert.Equal(t, manager.FullName(), result["employee"])

	mgr := result["manager"].(map[string]any)
	assert.Equal(t, ceo.FullName(), mgr["name"])

	// One hop down only: the worker appears, the worker's own report does not.
	reports := result["direct_reports"].([]map[string]any)
	require.Len(t, reports, 1)
	assert.Equal(t, worker.FullName(), reports[0]["name"])
	assert.NotContains(t, reports[0], "reports")
	assert.Equal(t, 1, result["total_reports"])
}

func TestOrgChart_NoManager(t *testing.T) {
	tenant := seedTenant(t)
	ceo := seedEmployee(t, tenant.ID, model.RoleCEO)

	result := call(t, "get_org_chart", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": ceo.ID.String(),
	})
	require.NotContains(t, result, "error")
	assert.Nil(t, result["manager"])
	assert.Equal(t, 0, result["total_reports"])
}

func TestDashboardSummary(t *testing.T) {
	tenant := seedTenant(t)
	seedEmployee(t, tenant.ID, model.RoleEmployee)
	seedEmployee(t, tenant.ID, model.RoleManager)

	result := call(t, "get_dashboard_summary", map[string]any{
		"tenant_id": tenant.ID.String(),
	})
	require.NotContains(t, result, "error")
	assert.Equal(t, 2, result["total_employees"])
	assert.Equal(t, 2, result["active_employees"])

	missing := call(t, "get_dashboard_summary", map[string]any{
		"tenant_id": uuid.NewString(),
	})
	assert.Equal(t, "Tenant not found", missing["error"])
}

func TestSummarizePolicy(t *testing.T) {
	ctx := context.Background()
	tenant := seedTenant(t)

	doc, err := testDB.CreateDocument(ctx, model.Document{
		TenantID: tenant.ID,
		Title:    "Remote Work Policy",
	})
	require.NoError(t, err)

	redacted := "Employees may work remotely up to [REDACTED] days."
	_, err = testDB.CreateDocumentChunk(ctx, model.DocumentChunk{
		DocumentID:      doc.ID,
		ChunkIndex:      0,
		Content:         "Employees may work remotely up to 3 days.",
		ContentRedacted: &redacted,
	})
	require.NoError(t, err)

	var gotTitle, gotContent string
	testRegistry.SetSummarizer(func(_ context.Context, title, content string) (string, error) {
		gotTitle, gotContent = title, content
		return "a short summary", nil
	})

	result := call(t, "summarize_policy", map[string]any{
		"tenant_id": tenant.ID.String(),
		"doc_id":    doc.ID.String(),
	})
	require.NotContains(t, result, "error")
	assert.Equal(t, "a short summary", result["summary"])
	assert.Equal(t, "Remote Work Policy", gotTitle)

	// The redacted variant feeds the summarizer, not the raw content.
	assert.Equal(t, redacted, gotContent)

	missing := call(t, "summarize_policy", map[string]any{
		"tenant_id": tenant.ID.String(),
		"doc_id":    uuid.NewString(),
	})
	assert.Equal(t, "Document not found", missing["error"])
}

func TestBadArguments(t *testing.T) {
	tenant := seedTenant(t)
	emp := seedEmployee(t, tenant.ID, model.RoleEmployee)

	result := call(t, "get_leave_balance", map[string]any{
		"tenant_id":   "not-a-uuid",
		"employee_id": emp.ID.String(),
	})
	assert.Equal(t, "invalid tenant_id", result["error"])

	result = call(t, "create_leave_request", map[string]any{
		"tenant_id":   tenant.ID.String(),
		"employee_id": emp.ID.String(),
		"from_date":   "June 1st",
		"to_date":     "2026-06-03",
	})
	assert.Equal(t, "invalid from_date: expected ISO date", result["error"])
}
