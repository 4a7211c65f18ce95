package sri

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
	"github.com/rs/zerolog"
)

var _ billing.DocumentSigner = (*DocumentSigner)(nil)

// DocumentSigner arma el XML y lo firma con el certificado del emisor.
// Sin certificado solo opera si allowUnsigned está activo (desarrollo); el XML firmado es el mismo sin firmar.
type DocumentSigner struct {
	builder       *XMLBuilderService
	signature     *signer.DigitalSignatureService
	cert          *signer.Certificate
	allowUnsigned bool
	log           zerolog.Logger
}

// NewDocumentSigner construye el adaptador. cert puede ser nil solo con allowUnsigned.
func NewDocumentSigner(cert *signer.Certificate, allowUnsigned bool, log zerolog.Logger) *DocumentSigner {
	return &DocumentSigner{
		builder:       NewXMLBuilderService(),
		signature:     signer.NewDigitalSignatureService(),
		cert:          cert,
		allowUnsigned: allowUnsigned,
		log:           log,
	}
}

// Sign implementa billing.DocumentSigner.
func (s *DocumentSigner) Sign(ctx context.Context, accessKey string, doc *billing.DocumentBundle) (rendered, signed []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	rendered, err = s.builder.Build(accessKey, doc)
	if err != nil {
		return nil, nil, err
	}
	if s.cert == nil {
		if !s.allowUnsigned {
			return nil, nil, fmt.Errorf("sri: no hay certificado de firma configurado")
		}
		s.log.Warn().Str("access_key", accessKey).Msg("[SRI] comprobante sin firma (modo desarrollo)")
		return rendered, rendered, nil
	}
	signed, err = s.signature.Sign(rendered, s.cert)
	if err != nil {
		return nil, nil, err
	}
	return rendered, signed, nil
}
