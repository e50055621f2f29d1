package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peopleos/jinji/internal/model"
)

// CreateTenant inserts a new tenant.
func (db *DB) CreateTenant(ctx context.Context, t model.Tenant) (model.Tenant, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.Slug, t.CreatedAt,
	)
	if err != nil {
		return model.Tenant{}, fmt.Errorf("storage: create tenant: %w", err)
	}
	return t, nil
}

// GetTenant retrieves a tenant by ID.
func (db *DB) GetTenant(ctx context.Context, id uuid.UUID) (model.Tenant, error) {
	var t model.Tenant
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Tenant{}, ErrNotFound
		}
		return model.Tenant{}, fmt.Errorf("storage: get tenant: %w", err)
	}
	return t, nil
}

// DashboardCounts holds the headline metrics for one tenant.
type DashboardCounts struct {
	TotalEmployees    int `json:"total_employees"`
	ActiveEmployees   int `json:"active_employees"`
	PendingLeaves     int `json:"pending_leaves"`
	DocumentsIngested int `json:"documents_ingested"`
	DocumentsPending  int `json:"documents_pending"`
}

// GetDashboardCounts aggregates the tenant-wide metrics used by the
// dashboard summary tool.
func (db *DB) GetDashboardCounts(ctx context.Context, tenantID uuid.UUID) (DashboardCounts, error) {
	var c DashboardCounts
	err := db.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM employees WHERE tenant_id = $1),
			(SELECT count(*) FROM employees WHERE tenant_id = $1 AND is_active),
			(SELECT count(*) FROM leave_requests WHERE tenant_id = $1 AND status = 'pending'),
			(SELECT count(*) FROM documents WHERE tenant_id = $1 AND ingestion_status = 'completed'),
			(SELECT count(*) FROM documents WHERE tenant_id = $1 AND ingestion_status = 'pending')`,
		tenantID,
	).Scan(&c.TotalEmployees, &c.ActiveEmployees, &c.PendingLeaves, &c.DocumentsIngested, &c.DocumentsPending)
	if err != nil {
		return DashboardCounts{}, fmt.Errorf("storage: dashboard counts: %w", err)
	}
	return c, nil
}
