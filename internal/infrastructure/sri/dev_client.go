package sri

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/rs/zerolog"
)

var _ billing.AuthorityClient = (*DevClient)(nil)

// DevClient simula el SRI en memoria para desarrollo: recibe todo y autoriza en la primera consulta.
// Reenviar una clave ya recibida devuelve DEVUELTA con el error 43, como el servicio real.
type DevClient struct {
	received sync.Map // clave de acceso -> struct{}
	log      zerolog.Logger
	now      func() time.Time
}

// NewDevClient crea el simulador.
func NewDevClient(log zerolog.Logger) *DevClient {
	return &DevClient{log: log, now: time.Now}
}

// Submit lee la clave de acceso del XML (firmado o no) y la registra.
func (c *DevClient) Submit(ctx context.Context, signed []byte) (*domainsri.ReceptionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := extractAccessKey(signed)
	if _, loaded := c.received.LoadOrStore(key, struct{}{}); loaded {
		return &domainsri.ReceptionResponse{
			Status: domainsri.ReceptionReturned,
			Messages: []domainsri.Message{{
				Identifier: domainsri.ErrorCodeAlreadyRegistered,
				Message:    "CLAVE ACCESO REGISTRADA",
				Type:       "ERROR",
			}},
		}, nil
	}
	c.log.Info().Str("access_key", key).Msg("[SRI-DEV] comprobante recibido")
	return &domainsri.ReceptionResponse{Status: domainsri.ReceptionReceived}, nil
}

// QueryAuthorization autoriza toda clave recibida; las desconocidas siguen en proceso.
func (c *DevClient) QueryAuthorization(ctx context.Context, accessKey string) (*domainsri.AuthorizationResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := c.received.Load(accessKey); !ok {
		return &domainsri.AuthorizationResponse{Status: domainsri.AuthorizationProcessing}, nil
	}
	now := c.now()
	return &domainsri.AuthorizationResponse{
		Status:              domainsri.AuthorizationAuthorized,
		AuthorizationNumber: accessKey,
		AuthorizedAt:        &now,
	}, nil
}

func extractAccessKey(doc []byte) string {
	x := etree.NewDocument()
	if err := x.ReadFromBytes(doc); err != nil {
		return ""
	}
	if el := x.FindElement("//infoTributaria/claveAcceso"); el != nil {
		return el.Text()
	}
	return ""
}
