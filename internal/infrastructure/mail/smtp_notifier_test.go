package mail_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	sent []*gomail.Message
	err  error
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

func email() billing.DocumentEmail {
	return billing.DocumentEmail{
		Recipient:      "maria@example.com",
		Name:           "Maria Perez",
		DocumentNumber: "001-001-000000001",
		DocumentID:     "inv-1",
		Attachment:     []byte("%PDF-1.4"),
		SignedXML:      []byte("<factura/>"),
	}
}

func TestSMTPNotifier_SendsWithAttachments(t *testing.T) {
	sender := &recordingSender{}
	n := mail.NewSMTPNotifierWithSender(sender, "facturas@andina.ec")

	require.NoError(t, n.SendDocumentEmail(context.Background(), email()))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, []string{"facturas@andina.ec"}, m.GetHeader("From"))
	assert.Equal(t, []string{"Comprobante electrónico 001-001-000000001"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "RIDE_001-001-000000001.pdf")
	assert.Contains(t, buf.String(), "001-001-000000001.xml")
}

func TestSMTPNotifier_Errors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	n := mail.NewSMTPNotifierWithSender(sender, "facturas@andina.ec")

	assert.ErrorContains(t, n.SendDocumentEmail(context.Background(), email()), "smtp down")

	msg := email()
	msg.Recipient = ""
	assert.Error(t, n.SendDocumentEmail(context.Background(), msg))
}
