package entity

import "time"

// ElectronicDocument registro tributario 1:1 con una factura o nota de crédito.
type ElectronicDocument struct {
	ID                  string
	DocumentID          string
	DocumentKind        DocumentKind
	AccessKey           string // clave de acceso de 49 dígitos
	RenderedXML         string // comprobante sin firmar
	SignedXML           string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	LastResponse        string // última respuesta cruda del SRI (diagnóstico)
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsSigned indica si ya existe un comprobante firmado.
func (e *ElectronicDocument) IsSigned() bool {
	return e != nil && e.SignedXML != ""
}
