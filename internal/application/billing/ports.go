package billing

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/domain/sri"
)

// BillingTxRunner ejecuta una función dentro de una transacción con todos los repositorios atados a ella.
// Si fn retorna error se hace rollback completo.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// DocumentSigner genera el XML del comprobante y lo firma (XAdES-BES).
type DocumentSigner interface {
	Sign(ctx context.Context, accessKey string, doc *DocumentBundle) (rendered, signed []byte, err error)
}

// AuthorityClient web services de recepción y autorización del SRI.
type AuthorityClient interface {
	Submit(ctx context.Context, signed []byte) (*sri.ReceptionResponse, error)
	QueryAuthorization(ctx context.Context, accessKey string) (*sri.AuthorizationResponse, error)
}

// DocumentEmail datos del correo al comprador.
type DocumentEmail struct {
	Recipient      string
	Name           string
	DocumentNumber string
	DocumentID     string
	Attachment     []byte // RIDE en PDF
	SignedXML      []byte
}

// Notifier envía el comprobante autorizado al comprador.
type Notifier interface {
	SendDocumentEmail(ctx context.Context, msg DocumentEmail) error
}

// Renderer genera la representación impresa (RIDE) del comprobante.
type Renderer interface {
	Render(ctx context.Context, doc *DocumentBundle) ([]byte, error)
}

// CreationGate exclusión mutua por clave durante la creación de comprobantes.
type CreationGate interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// IdempotencyGuard marca por documento con semántica agregar-si-no-existe.
// ok=false indica que otra finalización del mismo documento está en curso.
type IdempotencyGuard interface {
	TryAcquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// Dispatcher lanza el envío y sondeo en segundo plano.
type Dispatcher interface {
	ProcessAsync(kind entity.DocumentKind, id string)
}
