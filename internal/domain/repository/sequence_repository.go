package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// SequenceRepository define el puerto de persistencia para los secuenciales.
type SequenceRepository interface {
	// GetForUpdate bloquea el contador; devuelve nil, nil si aún no existe.
	GetForUpdate(ctx context.Context, establishment, emissionPoint string) (*entity.SequenceCounter, error)
	Create(ctx context.Context, counter *entity.SequenceCounter) error
	Update(ctx context.Context, counter *entity.SequenceCounter) error
}
