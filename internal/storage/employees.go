package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peopleos/jinji/internal/model"
)

const employeeColumns = `id, tenant_id, first_name, last_name, email, department,
	role, is_active, reporting_manager_id, created_at, updated_at`

func scanEmployee(row pgx.Row) (model.Employee, error) {
	var e model.Employee
	err := row.Scan(
		&e.ID, &e.TenantID, &e.FirstName, &e.LastName, &e.Email, &e.Department,
		&e.Role, &e.IsActive, &e.ReportingManagerID, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// CreateEmployee inserts a new employee.
func (db *DB) CreateEmployee(ctx context.Context, e model.Employee) (model.Employee, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if e.Role == "" {
		e.Role = model.RoleEmployee
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO employees (id, tenant_id, first_name, last_name, email, department,
		 role, is_active, reporting_manager_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.TenantID, e.FirstName, e.LastName, e.Email, e.Department,
		e.Role, e.IsActive, e.ReportingManagerID, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return model.Employee{}, fmt.Errorf("storage: create employee: %w", err)
	}
	return e, nil
}

// GetEmployee retrieves an employee by ID within a tenant.
func (db *DB) GetEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) (model.Employee, error) {
	e, err := scanEmployee(db.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE tenant_id = $1 AND id = $2`,
		tenantID, employeeID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Employee{}, ErrNotFound
		}
		return model.Employee{}, fmt.Errorf("storage: get employee: %w", err)
	}
	return e, nil
}

// GetEmployeeByID retrieves an employee by ID alone. Used only to resolve
// a manager reference that is already known to belong to the tenant.
func (db *DB) GetEmployeeByID(ctx context.Context, id uuid.UUID) (model.Employee, error) {
	e, err := scanEmployee(db.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Employee{}, ErrNotFound
		}
		return model.Employee{}, fmt.Errorf("storage: get employee by id: %w", err)
	}
	return e, nil
}

// ListEmployees searches a tenant's employees, optionally filtering by a
// name/email substring and department. Results are ordered by name.
func (db *DB) ListEmployees(ctx context.Context, tenantID uuid.UUID, query, department string) ([]model.Employee, error) {
	sql := `SELECT ` + employeeColumns + ` FROM employees WHERE tenant_id = $1`
	args := []any{tenantID}

	if query != "" {
		args = append(args, "%"+query+"%")
		n := len(args)
		sql += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR role ILIKE $%d)`, n, n, n, n)
	}
	if department != "" {
		args = append(args, department)
		sql += fmt.Sprintf(` AND department = $%d`, len(args))
	}
	sql += ` ORDER BY last_name, first_name`

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list employees: %w", err)
	}
	defer rows.Close()

	var out []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListDirectReports returns the active employees reporting directly to the
// given manager.
func (db *DB) ListDirectReports(ctx context.Context, tenantID, managerID uuid.UUID) ([]model.Employee, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM employees
		 WHERE tenant_id = $1 AND reporting_manager_id = $2 AND is_active
		 ORDER BY last_name, first_name`,
		tenantID, managerID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list direct reports: %w", err)
	}
	defer rows.Close()

	var out []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan direct report: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetReportingManager updates an employee's reporting manager after
// verifying the change keeps the org hierarchy acyclic. Passing uuid.Nil
// as managerID clears the manager.
//
// The cycle check walks the prospective manager's chain upward; if the
// employee appears on that chain the update is rejected with
// ErrManagerCycle. The walk and the update run in one transaction so a
// concurrent chain edit cannot slip a cycle past the check.
func (db *DB) SetReportingManager(ctx context.Context, tenantID, employeeID, managerID uuid.UUID) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin set manager: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if managerID == uuid.Nil {
		tag, err := tx.Exec(ctx,
			`UPDATE employees SET reporting_manager_id = NULL, updated_at = now()
			 WHERE tenant_id = $1 AND id = $2`,
			tenantID, employeeID,
		)
		if err != nil {
			return fmt.Errorf("storage: clear manager: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return tx.Commit(ctx)
	}

	if managerID == employeeID {
		return ErrManagerCycle
	}

	// Walk from the prospective manager to the root; a hit on employeeID
	// means the employee is already above the manager in the tree.
	var cycle bool
	err = tx.QueryRow(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id, reporting_manager_id
			FROM employees
			WHERE tenant_id = $1 AND id = $2
			UNION ALL
			SELECT e.id, e.reporting_manager_id
			FROM employees e
			JOIN chain c ON e.id = c.reporting_manager_id
		)
		SELECT EXISTS (SELECT 1 FROM chain WHERE id = $3)`,
		tenantID, managerID, employeeID,
	).Scan(&cycle)
	if err != nil {
		return fmt.Errorf("storage: manager chain walk: %w", err)
	}
	if cycle {
		return ErrManagerCycle
	}

	// The chain walk above also proves the manager row exists in the tenant;
	// an unknown manager would have produced an empty chain and no cycle,
	// so verify membership explicitly.
	var managerExists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM employees WHERE tenant_id = $1 AND id = $2)`,
		tenantID, managerID,
	).Scan(&managerExists); err != nil {
		return fmt.Errorf("storage: check manager: %w", err)
	}
	if !managerExists {
		return ErrNotFound
	}

	tag, err := tx.Exec(ctx,
		`UPDATE employees SET reporting_manager_id = $3, updated_at = now()
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, employeeID, managerID,
	)
	if err != nil {
		return fmt.Errorf("storage: set manager: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}
