package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/rs/zerolog"
)

var _ billing.AuthorityClient = (*SOAPClient)(nil)

const (
	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion     = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion  = "http://ec.gob.sri.ws.autorizacion"
	maxResponseSize = 4 << 20
)

// SOAPClient web services offline del SRI (RecepcionComprobantesOffline / AutorizacionComprobantesOffline).
// Un error de transporte o una respuesta ilegible se devuelve como error; el orquestador decide reintentar.
type SOAPClient struct {
	httpClient       *http.Client
	receptionURL     string
	authorizationURL string
	log              zerolog.Logger
}

// NewSOAPClient construye el cliente. timeout acota cada llamada HTTP.
func NewSOAPClient(receptionURL, authorizationURL string, timeout time.Duration, log zerolog.Logger) *SOAPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SOAPClient{
		httpClient:       &http.Client{Timeout: timeout},
		receptionURL:     receptionURL,
		authorizationURL: authorizationURL,
		log:              log,
	}
}

// ── Solicitudes ───────────────────────────────────────────────────────────────

type validarComprobanteRequest struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	XmlnsS  string   `xml:"xmlns:soapenv,attr"`
	XmlnsEc string   `xml:"xmlns:ec,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		Validar struct {
			XML string `xml:"xml"`
		} `xml:"ec:validarComprobante"`
	} `xml:"soapenv:Body"`
}

type autorizacionRequest struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	XmlnsS  string   `xml:"xmlns:soapenv,attr"`
	XmlnsEc string   `xml:"xmlns:ec,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		Autorizacion struct {
			ClaveAcceso string `xml:"claveAccesoComprobante"`
		} `xml:"ec:autorizacionComprobante"`
	} `xml:"soapenv:Body"`
}

// ── Respuestas ────────────────────────────────────────────────────────────────

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type mensajeXML struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type recepcionEnvelope struct {
	Body struct {
		Fault    *soapFault `xml:"Fault"`
		Response struct {
			Respuesta struct {
				Estado       string `xml:"estado"`
				Comprobantes []struct {
					ClaveAcceso string       `xml:"claveAcceso"`
					Mensajes    []mensajeXML `xml:"mensajes>mensaje"`
				} `xml:"comprobantes>comprobante"`
			} `xml:"RespuestaRecepcionComprobante"`
		} `xml:"validarComprobanteResponse"`
	} `xml:"Body"`
}

type autorizacionXML struct {
	Estado             string       `xml:"estado"`
	NumeroAutorizacion string       `xml:"numeroAutorizacion"`
	FechaAutorizacion  string       `xml:"fechaAutorizacion"`
	Ambiente           string       `xml:"ambiente"`
	Mensajes           []mensajeXML `xml:"mensajes>mensaje"`
}

type autorizacionEnvelope struct {
	Body struct {
		Fault    *soapFault `xml:"Fault"`
		Response struct {
			Respuesta struct {
				ClaveAccesoConsultada string            `xml:"claveAccesoConsultada"`
				NumeroComprobantes    string            `xml:"numeroComprobantes"`
				Autorizaciones        []autorizacionXML `xml:"autorizaciones>autorizacion"`
			} `xml:"RespuestaAutorizacionComprobante"`
		} `xml:"autorizacionComprobanteResponse"`
	} `xml:"Body"`
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// Submit envía el comprobante firmado a validarComprobante.
func (c *SOAPClient) Submit(ctx context.Context, signed []byte) (*domainsri.ReceptionResponse, error) {
	var req validarComprobanteRequest
	req.XmlnsS = soapNS
	req.XmlnsEc = nsRecepcion
	req.Body.Validar.XML = base64.StdEncoding.EncodeToString(signed)

	raw, err := c.call(ctx, c.receptionURL, req)
	if err != nil {
		return nil, err
	}
	return ParseReceptionResponse(raw)
}

// QueryAuthorization consulta autorizacionComprobante por clave de acceso.
func (c *SOAPClient) QueryAuthorization(ctx context.Context, accessKey string) (*domainsri.AuthorizationResponse, error) {
	var req autorizacionRequest
	req.XmlnsS = soapNS
	req.XmlnsEc = nsAutorizacion
	req.Body.Autorizacion.ClaveAcceso = accessKey

	raw, err := c.call(ctx, c.authorizationURL, req)
	if err != nil {
		return nil, err
	}
	return ParseAuthorizationResponse(raw)
}

func (c *SOAPClient) call(ctx context.Context, url string, envelope any) ([]byte, error) {
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}
	c.log.Debug().Str("url", url).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("[SRI] respuesta SOAP")

	// Los faults llegan con 500 y cuerpo SOAP; los parsers los reportan con su texto.
	if resp.StatusCode >= 400 && !bytes.Contains(raw, []byte("Fault")) {
		return nil, fmt.Errorf("soap: HTTP %d", resp.StatusCode)
	}
	return raw, nil
}

// ParseReceptionResponse interpreta la respuesta de validarComprobante.
func ParseReceptionResponse(raw []byte) (*domainsri.ReceptionResponse, error) {
	var env recepcionEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("soap: respuesta de recepción ilegible: %w", err)
	}
	if f := env.Body.Fault; f != nil {
		return nil, fmt.Errorf("soap: fault [%s]: %s", f.FaultCode, f.FaultString)
	}
	r := env.Body.Response.Respuesta
	if r.Estado == "" {
		return nil, fmt.Errorf("soap: respuesta de recepción sin estado")
	}
	out := &domainsri.ReceptionResponse{Status: strings.TrimSpace(r.Estado), Raw: string(raw)}
	for _, comp := range r.Comprobantes {
		out.Messages = append(out.Messages, toMessages(comp.Mensajes)...)
	}
	return out, nil
}

// ParseAuthorizationResponse interpreta autorizacionComprobante. Sin autorizaciones el SRI aún
// no procesa la clave: se devuelve estado vacío, que el orquestador trata como en proceso.
func ParseAuthorizationResponse(raw []byte) (*domainsri.AuthorizationResponse, error) {
	var env autorizacionEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("soap: respuesta de autorización ilegible: %w", err)
	}
	if f := env.Body.Fault; f != nil {
		return nil, fmt.Errorf("soap: fault [%s]: %s", f.FaultCode, f.FaultString)
	}
	auths := env.Body.Response.Respuesta.Autorizaciones
	out := &domainsri.AuthorizationResponse{Raw: string(raw)}
	if len(auths) == 0 {
		return out, nil
	}

	// Una clave puede tener varios intentos registrados; manda el autorizado si existe.
	chosen := auths[0]
	for _, a := range auths {
		if strings.TrimSpace(a.Estado) == domainsri.AuthorizationAuthorized {
			chosen = a
			break
		}
	}
	out.Status = strings.TrimSpace(chosen.Estado)
	out.AuthorizationNumber = strings.TrimSpace(chosen.NumeroAutorizacion)
	out.Messages = toMessages(chosen.Mensajes)
	if t, ok := parseAuthorizationDate(chosen.FechaAutorizacion); ok {
		out.AuthorizedAt = &t
	}
	return out, nil
}

func toMessages(in []mensajeXML) []domainsri.Message {
	out := make([]domainsri.Message, 0, len(in))
	for _, m := range in {
		out = append(out, domainsri.Message{
			Identifier:     strings.TrimSpace(m.Identificador),
			Message:        strings.TrimSpace(m.Mensaje),
			AdditionalInfo: strings.TrimSpace(m.InformacionAdicional),
			Type:           strings.TrimSpace(m.Tipo),
		})
	}
	return out
}

var authorizationDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "02/01/2006 15:04:05"}

func parseAuthorizationDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range authorizationDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
