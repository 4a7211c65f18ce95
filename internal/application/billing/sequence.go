package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

const maxSequential = 999_999_999

// SequenceAllocator entrega secuenciales de 9 dígitos por establecimiento, punto de emisión y tipo.
// Debe llamarse con los repositorios de la transacción de creación: si esta hace rollback
// el incremento desaparece con ella.
type SequenceAllocator struct {
	now func() time.Time
}

// NewSequenceAllocator construye el asignador.
func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{now: time.Now}
}

// Next bloquea el contador (creándolo en cero si no existe), lo incrementa y devuelve el valor con ceros a la izquierda.
func (a *SequenceAllocator) Next(
	ctx context.Context,
	repos repository.Repositories,
	establishment, emissionPoint string,
	kind entity.DocumentKind,
) (string, error) {
	counter, err := repos.Sequences.GetForUpdate(ctx, establishment, emissionPoint)
	if err != nil {
		return "", err
	}
	if counter == nil {
		counter = &entity.SequenceCounter{
			Establishment: establishment,
			EmissionPoint: emissionPoint,
			UpdatedAt:     a.now(),
		}
		if err := repos.Sequences.Create(ctx, counter); err != nil {
			return "", err
		}
	}

	var next int64
	switch kind {
	case entity.DocumentKindInvoice:
		counter.Invoice++
		next = counter.Invoice
	case entity.DocumentKindCreditNote:
		counter.CreditNote++
		next = counter.CreditNote
	default:
		return "", fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidInput, kind)
	}
	if next > maxSequential {
		return "", fmt.Errorf("%w: secuencial agotado para %s-%s", domain.ErrConflict, establishment, emissionPoint)
	}
	counter.UpdatedAt = a.now()
	if err := repos.Sequences.Update(ctx, counter); err != nil {
		return "", err
	}
	return fmt.Sprintf("%09d", next), nil
}
