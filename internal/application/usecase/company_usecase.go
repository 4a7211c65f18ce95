package usecase

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

// CompanyUseCase registro y consulta de emisores.
type CompanyUseCase struct {
	repo repository.CompanyRepository
}

// NewCompanyUseCase construye el caso de uso con el puerto de persistencia.
func NewCompanyUseCase(repo repository.CompanyRepository) *CompanyUseCase {
	return &CompanyUseCase{repo: repo}
}

// Create registra un emisor. Devuelve domain.ErrDuplicate si el RUC ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if err := sri.ValidateRUC(in.RUC); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	now := time.Now()
	company := &entity.Company{
		ID:                 uuid.New().String(),
		RUC:                in.RUC,
		BusinessName:       strings.TrimSpace(in.BusinessName),
		TradeName:          strings.TrimSpace(in.TradeName),
		MainAddress:        in.MainAddress,
		BranchAddress:      in.BranchAddress,
		Establishment:      in.Establishment,
		EmissionPoint:      in.EmissionPoint,
		AccountingRequired: in.AccountingRequired,
		SpecialTaxpayer:    in.SpecialTaxpayer,
		Email:              in.Email,
		Phone:              in.Phone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return toCompanyResponse(company), nil
}

// GetByID obtiene un emisor por ID.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return toCompanyResponse(company), nil
}

func toCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:                 c.ID,
		RUC:                c.RUC,
		BusinessName:       c.BusinessName,
		TradeName:          c.TradeName,
		MainAddress:        c.MainAddress,
		BranchAddress:      c.BranchAddress,
		Establishment:      c.Establishment,
		EmissionPoint:      c.EmissionPoint,
		AccountingRequired: c.AccountingRequired,
		SpecialTaxpayer:    c.SpecialTaxpayer,
		Phone:              c.Phone,
		Email:              c.Email,
		CreatedAt:          c.CreatedAt,
	}
}
