package billing

import (
	"context"

	"github.com/rs/zerolog"
)

// NotificationService envía el comprobante autorizado al comprador. Nunca propaga errores:
// un correo fallido no revierte ni repite la autorización.
type NotificationService struct {
	notifier Notifier
	renderer Renderer
	log      zerolog.Logger
}

// NewNotificationService notifier o renderer nil desactivan la parte correspondiente.
func NewNotificationService(notifier Notifier, renderer Renderer, log zerolog.Logger) *NotificationService {
	return &NotificationService{notifier: notifier, renderer: renderer, log: log}
}

// NotifyAuthorized genera el RIDE y envía el correo; sin correo del cliente o sin notifier no hace nada.
func (s *NotificationService) NotifyAuthorized(ctx context.Context, b *DocumentBundle) {
	if s == nil || s.notifier == nil || b.Customer == nil || b.Customer.Email == "" || b.Customer.IsFinalConsumer() {
		return
	}
	logger := s.log.With().Str("document_id", b.ID()).Str("number", b.Number()).Logger()

	var attachment []byte
	if s.renderer != nil {
		pdf, err := s.renderer.Render(ctx, b)
		if err != nil {
			logger.Warn().Err(err).Msg("[SRI] no se pudo generar el RIDE; se envía solo el XML")
		} else {
			attachment = pdf
		}
	}
	msg := DocumentEmail{
		Recipient:      b.Customer.Email,
		Name:           b.Customer.Name,
		DocumentNumber: b.Number(),
		DocumentID:     b.ID(),
		Attachment:     attachment,
		SignedXML:      []byte(b.Record.SignedXML),
	}
	if err := s.notifier.SendDocumentEmail(ctx, msg); err != nil {
		logger.Warn().Err(err).Str("recipient", msg.Recipient).Msg("[SRI] envío de correo fallido")
		return
	}
	logger.Info().Str("recipient", msg.Recipient).Msg("[SRI] comprobante enviado por correo")
}
