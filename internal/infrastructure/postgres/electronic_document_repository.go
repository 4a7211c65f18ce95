package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.ElectronicDocumentRepository = (*ElectronicDocumentRepo)(nil)

// ElectronicDocumentRepo clave de acceso, XML y datos de autorización de cada comprobante.
type ElectronicDocumentRepo struct {
	q Querier
}

func NewElectronicDocumentRepository(q Querier) *ElectronicDocumentRepo {
	return &ElectronicDocumentRepo{q: q}
}

const electronicDocumentColumns = `id, document_id, document_kind, access_key, rendered_xml, signed_xml,
	authorization_number, authorized_at, last_response, created_at, updated_at`

func (r *ElectronicDocumentRepo) Create(ctx context.Context, d *entity.ElectronicDocument) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `INSERT INTO electronic_documents (` + electronicDocumentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.DocumentID, string(d.DocumentKind), d.AccessKey, d.RenderedXML, d.SignedXML,
		d.AuthorizationNumber, d.AuthorizedAt, d.LastResponse, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert electronic document", err)
	}
	return nil
}

// Update la clave de acceso y el vínculo al documento no cambian.
func (r *ElectronicDocumentRepo) Update(ctx context.Context, d *entity.ElectronicDocument) error {
	tag, err := r.q.Exec(ctx, `UPDATE electronic_documents
		SET rendered_xml = $2, signed_xml = $3, authorization_number = $4, authorized_at = $5,
		    last_response = $6, updated_at = $7
		WHERE id = $1`,
		d.ID, d.RenderedXML, d.SignedXML, d.AuthorizationNumber, d.AuthorizedAt, d.LastResponse, d.UpdatedAt)
	return expectOne("update electronic document", tag, err)
}

func (r *ElectronicDocumentRepo) GetByDocument(ctx context.Context, kind entity.DocumentKind, documentID string) (*entity.ElectronicDocument, error) {
	var d entity.ElectronicDocument
	var k string
	err := r.q.QueryRow(ctx, `SELECT `+electronicDocumentColumns+` FROM electronic_documents
		WHERE document_kind = $1 AND document_id = $2`, string(kind), documentID).Scan(
		&d.ID, &d.DocumentID, &k, &d.AccessKey, &d.RenderedXML, &d.SignedXML,
		&d.AuthorizationNumber, &d.AuthorizedAt, &d.LastResponse, &d.CreatedAt, &d.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get electronic document: %w", err)
	}
	d.DocumentKind = entity.DocumentKind(k)
	return &d, nil
}
