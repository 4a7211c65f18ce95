package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

// PDFUseCase genera el RIDE (representación impresa) de facturas y notas de crédito.
// Los borradores también se pueden imprimir; el RIDE indica el estado.
type PDFUseCase struct {
	repos    repository.Repositories
	renderer Renderer
	loader   bundleLoader
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(repos repository.Repositories, renderer Renderer) *PDFUseCase {
	return &PDFUseCase{repos: repos, renderer: renderer}
}

// DownloadRIDE retorna el PDF y un nombre de archivo.
//
// Retorna:
//   - domain.ErrNotFound    si el comprobante no existe.
//   - domain.ErrForbidden   si no pertenece a la empresa del token.
//   - domain.ErrInvalidState si está anulado.
func (uc *PDFUseCase) DownloadRIDE(
	ctx context.Context,
	companyID string,
	kind entity.DocumentKind,
	id string,
) (pdfBytes []byte, filename string, err error) {
	b, err := uc.loader.load(ctx, uc.repos, kind, id, false)
	if err != nil {
		return nil, "", err
	}
	if b.CompanyID() != companyID {
		return nil, "", domain.ErrForbidden
	}
	if b.Status() == entity.DocumentStatusCancelled {
		return nil, "", fmt.Errorf("%w: el comprobante está anulado", domain.ErrInvalidState)
	}
	pdfBytes, err = uc.renderer.Render(ctx, b)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	prefix := "factura"
	if kind == entity.DocumentKindCreditNote {
		prefix = "nota_credito"
	}
	return pdfBytes, fmt.Sprintf("%s_%s.pdf", prefix, b.Number()), nil
}
