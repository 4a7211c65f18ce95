package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

// CustomerResolver resuelve el comprador de una factura dentro de la transacción de creación:
// consumidor final, cliente existente por ID o cliente nuevo enviado en línea.
type CustomerResolver struct {
	now func() time.Time
}

// NewCustomerResolver construye el resolvedor.
func NewCustomerResolver() *CustomerResolver {
	return &CustomerResolver{now: time.Now}
}

// Resolve aplica el modo según los datos recibidos. Un cliente en línea cuya identificación ya existe
// se reutiliza en lugar de duplicarse.
func (r *CustomerResolver) Resolve(
	ctx context.Context,
	repos repository.Repositories,
	companyID, customerID string,
	inline *dto.CustomerInput,
) (*entity.Customer, error) {
	switch {
	case customerID != "":
		c, err := repos.Customers.GetByID(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, customerID)
		}
		if c.CompanyID != companyID {
			return nil, domain.ErrForbidden
		}
		return c, nil
	case inline != nil:
		return r.createInline(ctx, repos, companyID, inline)
	default:
		return r.finalConsumer(ctx, repos, companyID)
	}
}

func (r *CustomerResolver) createInline(
	ctx context.Context,
	repos repository.Repositories,
	companyID string,
	in *dto.CustomerInput,
) (*entity.Customer, error) {
	id := strings.TrimSpace(in.Identification)
	if err := sri.ValidateIdentification(in.IdentificationType, id); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if id == entity.FinalConsumerIdentification {
		return r.finalConsumer(ctx, repos, companyID)
	}
	existing, err := repos.Customers.GetByIdentification(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	now := r.now()
	c := &entity.Customer{
		ID:                 uuid.New().String(),
		CompanyID:          companyID,
		IdentificationType: in.IdentificationType,
		Identification:     id,
		Name:               strings.TrimSpace(in.Name),
		Email:              strings.TrimSpace(in.Email),
		Phone:              in.Phone,
		Address:            in.Address,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repos.Customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// finalConsumer busca el cliente genérico de la empresa; se crea la primera vez que se usa.
func (r *CustomerResolver) finalConsumer(ctx context.Context, repos repository.Repositories, companyID string) (*entity.Customer, error) {
	c, err := repos.Customers.GetByIdentification(ctx, companyID, entity.FinalConsumerIdentification)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	now := r.now()
	c = &entity.Customer{
		ID:                 uuid.New().String(),
		CompanyID:          companyID,
		IdentificationType: sri.IdentificationTypeFinalConsumer,
		Identification:     entity.FinalConsumerIdentification,
		Name:               "CONSUMIDOR FINAL",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repos.Customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
