package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contadores por establecimiento y punto de emisión.
type SequenceRepo struct {
	q Querier
}

func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// GetForUpdate crea la fila en cero si falta y la bloquea. Así dos transacciones que estrenan
// el mismo punto de emisión se serializan sobre el candado de fila en vez de chocar en el INSERT.
func (r *SequenceRepo) GetForUpdate(ctx context.Context, establishment, emissionPoint string) (*entity.SequenceCounter, error) {
	_, err := r.q.Exec(ctx, `INSERT INTO sequence_counters (establishment, emission_point)
		VALUES ($1, $2) ON CONFLICT (establishment, emission_point) DO NOTHING`, establishment, emissionPoint)
	if err != nil {
		return nil, fmt.Errorf("ensure sequence counter: %w", err)
	}
	var c entity.SequenceCounter
	err = r.q.QueryRow(ctx, `SELECT establishment, emission_point, invoice, credit_note, updated_at
		FROM sequence_counters WHERE establishment = $1 AND emission_point = $2 FOR UPDATE`,
		establishment, emissionPoint).
		Scan(&c.Establishment, &c.EmissionPoint, &c.Invoice, &c.CreditNote, &c.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock sequence counter: %w", err)
	}
	return &c, nil
}

func (r *SequenceRepo) Create(ctx context.Context, c *entity.SequenceCounter) error {
	_, err := r.q.Exec(ctx, `INSERT INTO sequence_counters (establishment, emission_point, invoice, credit_note, updated_at)
		VALUES ($1, $2, $3, $4, $5)`, c.Establishment, c.EmissionPoint, c.Invoice, c.CreditNote, c.UpdatedAt)
	if err != nil {
		return writeErr("insert sequence counter", err)
	}
	return nil
}

func (r *SequenceRepo) Update(ctx context.Context, c *entity.SequenceCounter) error {
	tag, err := r.q.Exec(ctx, `UPDATE sequence_counters SET invoice = $3, credit_note = $4, updated_at = $5
		WHERE establishment = $1 AND emission_point = $2`,
		c.Establishment, c.EmissionPoint, c.Invoice, c.CreditNote, c.UpdatedAt)
	return expectOne("update sequence counter", tag, err)
}
