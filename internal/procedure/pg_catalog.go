package procedure

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PgxQuerier is the single pgxpool.Pool method the catalog needs.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgCatalog struct {
	pool PgxQuerier
}

func NewPgCatalog(pool PgxQuerier) *PgCatalog {
	return &PgCatalog{pool: pool}
}

func (c *PgCatalog) ListProcedures(ctx context.Context) ([]Procedure, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, code, name, audit_days
		FROM procedures
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.AuditDays); err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	return result, rows.Err()
}
