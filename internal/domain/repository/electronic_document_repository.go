package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// ElectronicDocumentRepository registro tributario (clave de acceso, XML, autorización).
type ElectronicDocumentRepository interface {
	Create(ctx context.Context, doc *entity.ElectronicDocument) error
	Update(ctx context.Context, doc *entity.ElectronicDocument) error
	GetByDocument(ctx context.Context, kind entity.DocumentKind, documentID string) (*entity.ElectronicDocument, error)
}
