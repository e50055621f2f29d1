package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peopleos/jinji/internal/model"
)

const paystubColumns = `id, tenant_id, employee_id, pay_period_start, pay_period_end,
	gross_amount, net_amount, currency, created_at`

func scanPaystub(row pgx.Row) (model.Paystub, error) {
	var p model.Paystub
	err := row.Scan(
		&p.ID, &p.TenantID, &p.EmployeeID, &p.PayPeriodStart, &p.PayPeriodEnd,
		&p.GrossAmount, &p.NetAmount, &p.Currency, &p.CreatedAt,
	)
	return p, err
}

// CreatePaystub inserts a paystub row.
func (db *DB) CreatePaystub(ctx context.Context, p model.Paystub) (model.Paystub, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO paystubs (id, tenant_id, employee_id, pay_period_start,
		 pay_period_end, gross_amount, net_amount, currency, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.TenantID, p.EmployeeID, p.PayPeriodStart,
		p.PayPeriodEnd, p.GrossAmount, p.NetAmount, p.Currency, p.CreatedAt,
	)
	if err != nil {
		return model.Paystub{}, fmt.Errorf("storage: create paystub: %w", err)
	}
	return p, nil
}

// ListRecentPaystubs returns an employee's paystubs, most recent pay period
// first, limited to n rows.
func (db *DB) ListRecentPaystubs(ctx context.Context, tenantID, employeeID uuid.UUID, n int) ([]model.Paystub, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+paystubColumns+` FROM paystubs
		 WHERE tenant_id = $1 AND employee_id = $2
		 ORDER BY pay_period_end DESC LIMIT $3`,
		tenantID, employeeID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list paystubs: %w", err)
	}
	defer rows.Close()

	var out []model.Paystub
	for rows.Next() {
		p, err := scanPaystub(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan paystub: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPaystubInPeriod returns the first paystub whose pay period ends inside
// the half-open range [start, end).
func (db *DB) GetPaystubInPeriod(ctx context.Context, tenantID, employeeID uuid.UUID, start, end time.Time) (model.Paystub, error) {
	p, err := scanPaystub(db.pool.QueryRow(ctx,
		`SELECT `+paystubColumns+` FROM paystubs
		 WHERE tenant_id = $1 AND employee_id = $2
		 AND pay_period_end >= $3 AND pay_period_end < $4
		 ORDER BY pay_period_end LIMIT 1`,
		tenantID, employeeID, start, end,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Paystub{}, ErrNotFound
		}
		return model.Paystub{}, fmt.Errorf("storage: get paystub in period: %w", err)
	}
	return p, nil
}
