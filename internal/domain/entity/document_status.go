package entity

// Estados del ciclo de vida de facturas y notas de crédito.
const (
	DocumentStatusDraft      = "DRAFT"      // borrador, sin stock descontado ni firma
	DocumentStatusPending    = "PENDING"    // firmado, pendiente de envío al SRI
	DocumentStatusSent       = "SENT"       // recibido por el SRI, autorización pendiente
	DocumentStatusAuthorized = "AUTHORIZED" // autorizado por el SRI
	DocumentStatusRejected   = "REJECTED"   // devuelto o no autorizado por el SRI
	DocumentStatusCancelled  = "CANCELLED"  // anulado desde borrador
)

// Tipos de comprobante manejados por el pipeline.
type DocumentKind string

const (
	DocumentKindInvoice    DocumentKind = "invoice"
	DocumentKindCreditNote DocumentKind = "credit_note"
)

var documentTransitions = map[string][]string{
	DocumentStatusDraft:     {DocumentStatusPending, DocumentStatusCancelled},
	DocumentStatusPending:   {DocumentStatusSent, DocumentStatusRejected, DocumentStatusAuthorized},
	DocumentStatusSent:      {DocumentStatusAuthorized, DocumentStatusRejected},
	DocumentStatusCancelled: {DocumentStatusDraft},
}

// CanTransition indica si el paso from -> to es válido.
func CanTransition(from, to string) bool {
	for _, s := range documentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus autorizado, rechazado o anulado: el orquestador no actúa sobre ellos.
func IsTerminalStatus(status string) bool {
	switch status {
	case DocumentStatusAuthorized, DocumentStatusRejected, DocumentStatusCancelled:
		return true
	}
	return false
}
