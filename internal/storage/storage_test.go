package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopleos/jinji/internal/model"
	"github.com/peopleos/jinji/internal/storage"
	"github.com/peopleos/jinji/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	var err error
	testDB, err = tc.NewTestDB(context.Background(), testutil.TestLogger())
	if err != nil {
		tc.Terminate()
		panic(err)
	}

	code := m.Run()
	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func createTestTenant(t *testing.T) model.Tenant {
	t.Helper()
	tenant, err := testDB.CreateTenant(context.Background(), model.Tenant{
		Name: "Test Corp " + uuid.NewString()[:8],
		Slug: "test-" + uuid.NewString()[:8],
	})
	require.NoError(t, err)
	return tenant
}

func createTestEmployee(t *testing.T, tenantID uuid.UUID, role model.EmployeeRole) model.Employee {
	t.Helper()
	e, err := testDB.CreateEmployee(context.Background(), model.Employee{
		TenantID:   tenantID,
		FirstName:  "Test",
		LastName:   uuid.NewString()[:8],
		Email:      uuid.NewString()[:8] + "@example.com",
		Department: "Engineering",
		Role:       role,
		IsActive:   true,
	})
	require.NoError(t, err)
	return e
}

func TestGetEmployee_TenantScoped(t *testing.T) {
	ctx := context.Background()
	tenantA := createTestTenant(t)
	tenantB := createTestTenant(t)
	emp := createTestEmployee(t, tenantA.ID, model.RoleEmployee)

	got, err := testDB.GetEmployee(ctx, tenantA.ID, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, emp.Email, got.Email)

	// Same employee ID through the wrong tenant must not resolve.
	_, err = testDB.GetEmployee(ctx, tenantB.ID, emp.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListEmployees_Filters(t *testing.T) {
	ctx := context.Background()
	tenant := createTestTenant(t)

	alice, err := testDB.CreateEmployee(ctx, model.Employee{
		TenantID: tenant.ID, FirstName: "Alice", LastName: "Anders",
		Email: "alice." + uuid.NewString()[:8] + "@example.com",
		Department: "Finance", Role: model.RoleEmployee, IsActive: true,
	})
	require.NoError(t, err)
	createTestEmployee(t, tenant.ID, model.RoleEmployee)

	byName, err := testDB.ListEmployees(ctx, tenant.ID, "alice", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, alice.ID, byName[0].ID)

	byDept, err := testDB.ListEmployees(ctx, tenant.ID, "", "Finance")
	require.NoError(t, err)
	require.Len(t, byDept, 1)
	assert.Equal(t, alice.ID, byDept[0].ID)
}

func TestSetReportingManager(t *testing.T) {
	ctx := context.Background()
	tenant := createTestTenant(t)
	ceo := createTestEmployee(t, tenant.ID, model.RoleCEO)
	manager := createTestEmployee(t, tenant.ID, model.RoleManager)
	worker := createTestEmployee(t, tenant.ID, model.RoleEmployee)

	require.NoError(t, testDB.SetReportingManager(ctx, tenant.ID, manager.ID, ceo.ID))
	require.NoError(t, testDB.SetReportingManager(ctx, tenant.ID, worker.ID, manager.ID))

	reports, err := testDB.ListDirectReports(ctx, tenant.ID, manager.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, worker.ID, reports[0].ID)

	// Self-reference is a cycle.
	err = testDB.SetReportingManager(ctx, tenant.ID, ceo.ID, ceo.ID)
	assert.ErrorIs(t, err, storage.ErrManagerCycle)

	// ceo -> manager would close the loop ceo -> manager -> ceo.
	err = testDB.SetReportingManager(ctx, tenant.ID, ceo.ID, manager.ID)
	assert.ErrorIs(t, err, storage.ErrManagerCycle)

	// So would the longer loop through worker.
	err = testDB.SetReportingManager(ctx, tenant.ID, ceo.ID, worker.ID)
	assert.ErrorIs(t, err, storage.ErrManagerCycle)

	// Unknown manager.
	err = testDB.SetReportingManager(ctx, tenant.ID, worker.ID, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Clearing the manager always succeeds.
	require.NoError(t, testDB.SetReportingManager(ctx, tenant.ID, worker.ID, uuid.Nil))
	reports, err = testDB.ListDirectReports(ctx, tenant.ID, manager.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestDecideLeave(t *testing.T) {
	ctx := context.Background()
	tenant := createTestTenant(t)
	emp := createTestEmployee(t, tenant.ID, model.RoleEmployee)
	manager := createTestEmployee(t, tenant.ID, model.RoleManager)

	leave, err := testDB.CreateLeaveRequest(ctx, model.LeaveRequest{
		TenantID:   tenant.ID,
		EmployeeID: emp.ID,
		FromDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ToDate:     time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, model.LeavePending, leave.Status)

	approved, err := testDB.DecideLeave(ctx, tenant.ID, leave.ID, manager.ID, model.LeaveApproved)
	require.NoError(t, err)
	assert.Equal(t, model.LeaveApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, manager.ID, *approved.ApproverID)
	assert.NotNil(t, approved.ApprovedAt)

	// Deciding again reports the current status alongside the sentinel.
	again, err := testDB.DecideLeave(ctx, tenant.ID, leave.ID, manager.ID, model.LeaveApproved)
	assert.ErrorIs(t, err, storage.ErrLeaveNotPending)
	assert.Equal(t, model.LeaveApproved, again.Status)

	_, err = testDB.DecideLeave(ctx, tenant.ID, uuid.New(), manager.ID, model.LeaveApproved)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListPendingApprovals(t *testing.T) {
	ctx := context.Background()
	tenant := createTestTenant(t)
	manager := createTestEmployee(t, tenant.ID, model.RoleManager)
	report := createTestEmployee(t, tenant.ID, model.RoleEmployee)
	outsider := createTestEmployee(t, tenant.ID, model.RoleEmployee)
	require.NoError(t, testDB.SetReportingManager(ctx, tenant.ID, report.ID, manager.ID))

	mine, err := testDB.CreateLeaveRequest(ctx, model.LeaveRequest{
		TenantID: tenant.ID, EmployeeID: report.ID,
		FromDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// A request from someone who doesn't report to this manager stays out.
	_, err = testDB.CreateLeaveRequest(ctx, model.LeaveRequest{
		TenantID: tenant.ID, EmployeeID: outsider.ID,
		FromDate: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	pending, err := testDB.ListPendingApprovals(ctx, tenant.ID, manager.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)
}

func TestGetPaystubInPeriod(t *testing.T) {
	ctx := context.Background()
	tenant := createTestTenant(t)
	emp := createTestEmployee(t, tenant.ID, model.RoleEmployee)

	_, err := testDB.CreatePaystub(ctx, model.Paystub{
		TenantID:       tenant.ID,
		EmployeeID:     emp.ID,
		PayPeriodStart: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		PayPeriodEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		GrossAmount:    5000,
		NetAmount:      4000,
	})
	require.NoError(t, err)

	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := testDB.GetPaystubInPeriod(ctx, tenant.ID, emp.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, p.GrossAmount)

	// The range is half-open: a period ending exactly at the upper bound is excluded.
	_, err = testDB.GetPaystubInPeriod(ctx, tenant.ID, emp.ID,
		time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), start)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentChunkLifecycle(t *testing.T) {
	ctx := context.Background()
	tenant := createTestTenant(t)

	doc, err := testDB.CreateDocument(ctx, model.Document{
		TenantID: tenant.ID,
		Title:    "Leave Policy",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IngestionPending, doc.IngestionStatus)

	var chunkIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		c, err := testDB.CreateDocumentChunk(ctx, model.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    "chunk content",
		})
		require.NoError(t, err)
		chunkIDs = append(chunkIDs, c.ID)
	}

	require.NoError(t, testDB.MarkChunksEmbedded(ctx, chunkIDs[:2]))
	require.NoError(t, testDB.UpdateDocumentStatus(ctx, doc.ID, model.IngestionCompleted))

	chunks, err := testDB.ListDocumentChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
	require.NotNil(t, chunks[0].EmbeddingID)
	assert.Equal(t, chunks[0].ID.String(), *chunks[0].EmbeddingID)
	assert.Nil(t, chunks[2].EmbeddingID)

	got, err := testDB.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IngestionCompleted, got.IngestionStatus)
}

func TestGetDashboardCounts(t *testing.T) {
	ctx := context.Background()
	tenant := createTestTenant(t)
	emp := createTestEmployee(t, tenant.ID, model.RoleEmployee)
	createTestEmployee(t, tenant.ID, model.RoleManager)

	_, err := testDB.CreateLeaveRequest(ctx, model.LeaveRequest{
		TenantID: tenant.ID, EmployeeID: emp.ID,
		FromDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = testDB.CreateDocument(ctx, model.Document{TenantID: tenant.ID, Title: "Handbook"})
	require.NoError(t, err)

	counts, err := testDB.GetDashboardCounts(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.TotalEmployees)
	assert.Equal(t, 2, counts.ActiveEmployees)
	assert.Equal(t, 1, counts.PendingLeaves)
	assert.Equal(t, 0, counts.DocumentsIngested)
	assert.Equal(t, 1, counts.DocumentsPending)
}
