package sri

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
	"github.com/shopspring/decimal"
)

const (
	schemaVersion = "1.1.0"
	rootID        = "comprobante"
	currency      = "DOLAR"
	dateLayout    = "02/01/2006"
)

// XMLBuilderService construye el XML del comprobante (sin firma) según la ficha técnica offline.
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera factura o notaCredito. Ambiente y tipo de emisión se leen de la clave de acceso
// para que el XML nunca contradiga la clave ya persistida.
func (s *XMLBuilderService) Build(accessKey string, b *billing.DocumentBundle) ([]byte, error) {
	if b == nil || b.Company == nil || b.Customer == nil || b.Invoice == nil {
		return nil, fmt.Errorf("sri: faltan emisor, cliente o factura en el comprobante")
	}
	if len(accessKey) != 49 {
		return nil, fmt.Errorf("sri: clave de acceso de %d dígitos (se esperaban 49)", len(accessKey))
	}

	var doc any
	switch b.Kind {
	case entity.DocumentKindInvoice:
		doc = s.invoice(accessKey, b)
	case entity.DocumentKindCreditNote:
		if b.CreditNote == nil {
			return nil, fmt.Errorf("sri: nota de crédito sin cabecera")
		}
		doc = s.creditNote(accessKey, b)
	default:
		return nil, fmt.Errorf("sri: tipo de comprobante %q", b.Kind)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("sri: serializar comprobante: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *XMLBuilderService) tributaria(accessKey, docType, establishment, emissionPoint, sequential string, c *entity.Company) infoTributaria {
	return infoTributaria{
		Ambiente:        accessKey[23:24],
		TipoEmision:     accessKey[47:48],
		RazonSocial:     c.BusinessName,
		NombreComercial: c.TradeName,
		RUC:             c.RUC,
		ClaveAcceso:     accessKey,
		CodDoc:          docType,
		Estab:           establishment,
		PtoEmi:          emissionPoint,
		Secuencial:      sequential,
		DirMatriz:       c.MainAddress,
	}
}

func (s *XMLBuilderService) invoice(accessKey string, b *billing.DocumentBundle) *facturaXML {
	inv := b.Invoice
	taxes := newTaxSummary()
	detalles := make([]detalleFactura, 0, len(b.InvoiceDetails))
	for _, d := range b.InvoiceDetails {
		taxes.add(d.TaxRate, d.Subtotal, d.TaxAmount)
		detalles = append(detalles, detalleFactura{
			CodigoPrincipal:        d.ProductCode,
			Descripcion:            d.Description,
			Cantidad:               d.Quantity.StringFixed(6),
			PrecioUnitario:         d.UnitPrice.StringFixed(6),
			Descuento:              money(decimal.Zero),
			PrecioTotalSinImpuesto: money(d.Subtotal),
			Impuestos:              []impuesto{lineTax(d.TaxRate, d.Subtotal, d.TaxAmount)},
		})
	}

	pagos := []pago{{FormaPago: inv.PaymentMethod, Total: money(inv.Total)}}
	if inv.PaymentTerms == entity.PaymentTermsCredit {
		pagos[0].Plazo = fmt.Sprintf("%d", inv.CreditDays)
		pagos[0].UnidadTiempo = "dias"
	}

	return &facturaXML{
		ID:             rootID,
		Version:        schemaVersion,
		InfoTributaria: s.tributaria(accessKey, sri.DocumentTypeInvoice, inv.Establishment, inv.EmissionPoint, inv.Sequential, b.Company),
		InfoFactura: infoFactura{
			FechaEmision:                inv.IssueDate.Format(dateLayout),
			DirEstablecimiento:          branchAddress(b.Company),
			ContribuyenteEspecial:       b.Company.SpecialTaxpayer,
			ObligadoContabilidad:        yesNo(b.Company.AccountingRequired),
			TipoIdentificacionComprador: b.Customer.IdentificationType,
			RazonSocialComprador:        b.Customer.Name,
			IdentificacionComprador:     b.Customer.Identification,
			DireccionComprador:          b.Customer.Address,
			TotalSinImpuestos:           money(inv.Subtotal),
			TotalDescuento:              money(decimal.Zero),
			TotalConImpuestos:           taxes.totals(),
			Propina:                     money(decimal.Zero),
			ImporteTotal:                money(inv.Total),
			Moneda:                      currency,
			Pagos:                       pagos,
		},
		Detalles:      detalles,
		InfoAdicional: additionalInfo(b.Customer),
	}
}

func (s *XMLBuilderService) creditNote(accessKey string, b *billing.DocumentBundle) *notaCreditoXML {
	note := b.CreditNote
	taxes := newTaxSummary()
	detalles := make([]detalleNotaCredito, 0, len(b.CreditNoteDetails))
	for _, d := range b.CreditNoteDetails {
		taxes.add(d.TaxRate, d.Subtotal, d.TaxAmount)
		detalles = append(detalles, detalleNotaCredito{
			CodigoInterno:          d.ProductCode,
			Descripcion:            d.Description,
			Cantidad:               d.Quantity.StringFixed(6),
			PrecioUnitario:         d.UnitPrice.StringFixed(6),
			Descuento:              money(decimal.Zero),
			PrecioTotalSinImpuesto: money(d.Subtotal),
			Impuestos:              []impuesto{lineTax(d.TaxRate, d.Subtotal, d.TaxAmount)},
		})
	}

	return &notaCreditoXML{
		ID:             rootID,
		Version:        schemaVersion,
		InfoTributaria: s.tributaria(accessKey, sri.DocumentTypeCreditNote, note.Establishment, note.EmissionPoint, note.Sequential, b.Company),
		InfoNotaCredito: infoNotaCredito{
			FechaEmision:                note.IssueDate.Format(dateLayout),
			DirEstablecimiento:          branchAddress(b.Company),
			TipoIdentificacionComprador: b.Customer.IdentificationType,
			RazonSocialComprador:        b.Customer.Name,
			IdentificacionComprador:     b.Customer.Identification,
			ContribuyenteEspecial:       b.Company.SpecialTaxpayer,
			ObligadoContabilidad:        yesNo(b.Company.AccountingRequired),
			CodDocModificado:            sri.DocumentTypeInvoice,
			NumDocModificado:            b.Invoice.Number(),
			FechaEmisionDocSustento:     b.Invoice.IssueDate.Format(dateLayout),
			TotalSinImpuestos:           money(note.Subtotal),
			ValorModificacion:           money(note.Total),
			Moneda:                      currency,
			TotalConImpuestos:           taxes.totals(),
			Motivo:                      note.Reason,
		},
		Detalles:      detalles,
		InfoAdicional: additionalInfo(b.Customer),
	}
}

// taxSummary agrupa base y valor por código de porcentaje IVA.
type taxSummary struct {
	base  map[string]decimal.Decimal
	value map[string]decimal.Decimal
}

func newTaxSummary() *taxSummary {
	return &taxSummary{base: map[string]decimal.Decimal{}, value: map[string]decimal.Decimal{}}
}

func (t *taxSummary) add(rate, base, value decimal.Decimal) {
	code := sri.IVARateCode(rate.IntPart())
	t.base[code] = t.base[code].Add(base)
	t.value[code] = t.value[code].Add(value)
}

func (t *taxSummary) totals() []totalImpuesto {
	codes := make([]string, 0, len(t.base))
	for code := range t.base {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]totalImpuesto, 0, len(codes))
	for _, code := range codes {
		out = append(out, totalImpuesto{
			Codigo:           sri.TaxCodeIVA,
			CodigoPorcentaje: code,
			BaseImponible:    money(t.base[code]),
			Valor:            money(t.value[code]),
		})
	}
	return out
}

func lineTax(rate, base, value decimal.Decimal) impuesto {
	return impuesto{
		Codigo:           sri.TaxCodeIVA,
		CodigoPorcentaje: sri.IVARateCode(rate.IntPart()),
		Tarifa:           rate.String(),
		BaseImponible:    money(base),
		Valor:            money(value),
	}
}

func additionalInfo(c *entity.Customer) []campoAdicional {
	var out []campoAdicional
	if c.Email != "" {
		out = append(out, campoAdicional{Nombre: "Email", Valor: c.Email})
	}
	if c.Phone != "" {
		out = append(out, campoAdicional{Nombre: "Telefono", Valor: c.Phone})
	}
	return out
}

func branchAddress(c *entity.Company) string {
	if c.BranchAddress != "" {
		return c.BranchAddress
	}
	return c.MainAddress
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func yesNo(v bool) string {
	if v {
		return "SI"
	}
	return "NO"
}
