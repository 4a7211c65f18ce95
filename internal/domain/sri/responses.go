package sri

import (
	"strings"
	"time"
)

// Estados devueltos por los web services del SRI.
const (
	ReceptionReceived = "RECIBIDA"
	ReceptionReturned = "DEVUELTA"

	AuthorizationProcessing   = "PROCESANDO"
	AuthorizationAuthorized   = "AUTORIZADO"
	AuthorizationUnauthorized = "NO AUTORIZADO"
)

// ErrorCodeAlreadyRegistered "CLAVE ACCESO REGISTRADA": el comprobante ya fue recibido antes.
const ErrorCodeAlreadyRegistered = "43"

// Message mensaje de error o advertencia del SRI.
type Message struct {
	Identifier     string `json:"identificador"`
	Message        string `json:"mensaje"`
	AdditionalInfo string `json:"informacionAdicional,omitempty"`
	Type           string `json:"tipo"`
}

// ReceptionResponse respuesta de validarComprobante.
type ReceptionResponse struct {
	Status   string
	Messages []Message
	Raw      string
}

// HasErrorCode indica si algún mensaje trae el identificador dado.
func (r *ReceptionResponse) HasErrorCode(code string) bool {
	for _, m := range r.Messages {
		if strings.TrimSpace(m.Identifier) == code {
			return true
		}
	}
	return false
}

// Accepted recibida, o devuelta solo porque la clave ya estaba registrada (error 43).
func (r *ReceptionResponse) Accepted() bool {
	switch r.Status {
	case ReceptionReceived:
		return true
	case ReceptionReturned:
		return r.HasErrorCode(ErrorCodeAlreadyRegistered)
	}
	return false
}

// Returned devuelta por errores del comprobante. Un estado vacío o desconocido no es
// Accepted ni Returned: la recepción se trata como fallida y se reintenta.
func (r *ReceptionResponse) Returned() bool {
	return r.Status == ReceptionReturned && !r.HasErrorCode(ErrorCodeAlreadyRegistered)
}

// AuthorizationResponse respuesta de autorizacionComprobante.
type AuthorizationResponse struct {
	Status              string
	AuthorizationNumber string
	AuthorizedAt        *time.Time
	Messages            []Message
	Raw                 string
}

// IsProcessing el SRI aún no decide.
func (r *AuthorizationResponse) IsProcessing() bool {
	return r.Status == AuthorizationProcessing || r.Status == ""
}

// IsAuthorized autorizado.
func (r *AuthorizationResponse) IsAuthorized() bool {
	return r.Status == AuthorizationAuthorized
}
