// Package procedure matches referral text against the procedure catalog and
// decides whether the procedure is auto-authorized or goes to audit review.
// Text extraction from the uploaded document happens elsewhere; this package
// only ever sees the resulting plain string.
package procedure

import (
	"context"
	"errors"
	"fmt"
)

var ErrNoMatch = errors.New("no procedure matched")

type Procedure struct {
	ID        int64
	Code      int64
	Name      string
	AuditDays int // 0 = no audit, otherwise estimated business days
}

// Catalog provides read access to the full procedure list. The matcher scans
// it in memory; the catalog is small and changes rarely.
type Catalog interface {
	ListProcedures(ctx context.Context) ([]Procedure, error)
}

// MemoryCatalog serves a fixed procedure list, mainly for tests.
type MemoryCatalog []Procedure

func (c MemoryCatalog) ListProcedures(ctx context.Context) ([]Procedure, error) {
	return c, nil
}

// Decision is the audit outcome for a matched procedure.
type Decision struct {
	AuditRequired bool
	Authorized    bool
	Reason        string
	EstimatedDays int
}

// Decide applies the audit rules: no audit days means automatic
// authorization, a known audit window routes to review, anything else needs
// special analysis.
func Decide(p Procedure) Decision {
	switch p.AuditDays {
	case 0:
		return Decision{Authorized: true, Reason: "Autorizado automaticamente."}
	case 5, 10:
		return Decision{
			AuditRequired: true,
			EstimatedDays: p.AuditDays,
			Reason:        fmt.Sprintf("Encaminhado para auditoria (%d dias úteis).", p.AuditDays),
		}
	default:
		return Decision{Reason: "Procedimento requer análise especial."}
	}
}
