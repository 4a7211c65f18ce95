package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
	"github.com/rs/zerolog"
)

// SRIConfig parámetros del emisor ante el SRI usados en la clave de acceso.
type SRIConfig struct {
	Environment  string // 1 pruebas, 2 producción
	NumericCode  string // 8 dígitos
	EmissionType string // 1 normal
}

func (c SRIConfig) withDefaults() SRIConfig {
	if c.Environment == "" {
		c.Environment = sri.EnvironmentTest
	}
	if c.NumericCode == "" {
		c.NumericCode = "12345678"
	}
	if c.EmissionType == "" {
		c.EmissionType = sri.EmissionTypeNormal
	}
	return c
}

// PayloadSigner crea el registro tributario con su clave de acceso y firma el comprobante.
type PayloadSigner struct {
	signer DocumentSigner
	keys   *domainsri.AccessKeyGenerator
	cfg    SRIConfig
	log    zerolog.Logger
	now    func() time.Time
}

// NewPayloadSigner construye el servicio.
func NewPayloadSigner(signer DocumentSigner, cfg SRIConfig, log zerolog.Logger) *PayloadSigner {
	return &PayloadSigner{
		signer: signer,
		keys:   domainsri.NewAccessKeyGenerator(),
		cfg:    cfg.withDefaults(),
		log:    log,
		now:    time.Now,
	}
}

// NewRecord calcula la clave de acceso y persiste el registro tributario con el XML vacío.
func (p *PayloadSigner) NewRecord(
	ctx context.Context,
	repos repository.Repositories,
	kind entity.DocumentKind,
	documentID string,
	company *entity.Company,
	issueDate time.Time,
	establishment, emissionPoint, sequential string,
) (*entity.ElectronicDocument, error) {
	docType := sri.DocumentTypeInvoice
	if kind == entity.DocumentKindCreditNote {
		docType = sri.DocumentTypeCreditNote
	}
	key, err := p.keys.Generate(domainsri.AccessKeyParams{
		IssueDate:     issueDate,
		DocumentType:  docType,
		RUC:           company.RUC,
		Environment:   p.cfg.Environment,
		Establishment: establishment,
		EmissionPoint: emissionPoint,
		Sequential:    sequential,
		NumericCode:   p.cfg.NumericCode,
		EmissionType:  p.cfg.EmissionType,
	})
	if err != nil {
		var lenErr *domain.AccessKeyLengthError
		if errors.As(err, &lenErr) {
			p.log.Error().Err(err).
				Str("document_id", documentID).
				Int("length", lenErr.Length).
				Msg("[SRI] clave de acceso con longitud inválida; se aborta la creación")
		}
		return nil, err
	}
	now := p.now()
	rec := &entity.ElectronicDocument{
		ID:           uuid.New().String(),
		DocumentID:   documentID,
		DocumentKind: kind,
		AccessKey:    key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Documents.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Sign genera y firma el XML con la clave ya calculada y lo guarda en el registro.
func (p *PayloadSigner) Sign(ctx context.Context, repos repository.Repositories, b *DocumentBundle) error {
	rendered, signed, err := p.signer.Sign(ctx, b.Record.AccessKey, b)
	if err != nil {
		return fmt.Errorf("firmar comprobante %s: %w", b.Number(), err)
	}
	b.Record.RenderedXML = string(rendered)
	b.Record.SignedXML = string(signed)
	b.Record.UpdatedAt = p.now()
	return repos.Documents.Update(ctx, b.Record)
}
