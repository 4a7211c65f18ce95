// Package mail envía los comprobantes autorizados al comprador por SMTP.
package mail

import (
	"context"
	"fmt"
	"io"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"gopkg.in/gomail.v2"
)

var _ billing.Notifier = (*SMTPNotifier)(nil)

// Sender abstrae el envío para poder probar el armado del mensaje sin servidor.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier implementa billing.Notifier con gomail.
type SMTPNotifier struct {
	sender Sender
	from   string
}

// NewSMTPNotifier construye el notificador desde la configuración SMTP.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return NewSMTPNotifierWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password), cfg.From)
}

// NewSMTPNotifierWithSender permite inyectar el Sender.
func NewSMTPNotifierWithSender(sender Sender, from string) *SMTPNotifier {
	return &SMTPNotifier{sender: sender, from: from}
}

// SendDocumentEmail adjunta el RIDE (si existe) y el XML firmado.
func (n *SMTPNotifier) SendDocumentEmail(ctx context.Context, msg billing.DocumentEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Recipient == "" {
		return fmt.Errorf("mail: destinatario vacío")
	}
	m := BuildMessage(n.from, msg)
	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: enviar comprobante %s: %w", msg.DocumentNumber, err)
	}
	return nil
}

// BuildMessage arma el correo con sus adjuntos.
func BuildMessage(from string, msg billing.DocumentEmail) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetAddressHeader("To", msg.Recipient, msg.Name)
	m.SetHeader("Subject", "Comprobante electrónico "+msg.DocumentNumber)
	m.SetBody("text/plain", fmt.Sprintf(
		"Estimado(a) %s,\n\nAdjuntamos su comprobante electrónico %s autorizado por el SRI.\n",
		msg.Name, msg.DocumentNumber))

	if len(msg.Attachment) > 0 {
		attach(m, "RIDE_"+msg.DocumentNumber+".pdf", msg.Attachment)
	}
	if len(msg.SignedXML) > 0 {
		attach(m, msg.DocumentNumber+".xml", msg.SignedXML)
	}
	return m
}

func attach(m *gomail.Message, name string, content []byte) {
	m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	}))
}
