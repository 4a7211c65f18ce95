// Package pdf genera el RIDE (Representación Impresa del Documento Electrónico) de facturas
// y notas de crédito del SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social, RUC, dirs. │ FACTURA N°, autorización │
//	│                                    │ ambiente, clave (barras) │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPRADOR: Razón social, identificación, fecha             │
//	│  (nota de crédito: comprobante modificado y motivo)          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cód. | Cant | Descripción | P.Unit | IVA | Total     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / IVA / VALOR TOTAL                       │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/application/billing"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

var _ billing.Renderer = (*RIDERenderer)(nil)

// RIDERenderer implementa billing.Renderer usando Maroto v2.
type RIDERenderer struct{}

// NewRIDERenderer construye el renderer.
func NewRIDERenderer() *RIDERenderer { return &RIDERenderer{} }

// ridLine fila de la tabla, común a factura y nota de crédito.
type ridLine struct {
	code        string
	quantity    decimal.Decimal
	description string
	unitPrice   decimal.Decimal
	taxRate     decimal.Decimal
	subtotal    decimal.Decimal
}

// Render genera el PDF y devuelve sus bytes.
func (g *RIDERenderer) Render(ctx context.Context, b *billing.DocumentBundle) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b == nil || b.Company == nil || b.Customer == nil || b.Invoice == nil || b.Record == nil {
		return nil, fmt.Errorf("pdf: comprobante incompleto")
	}

	title := "FACTURA"
	if b.Kind == entity.DocumentKindCreditNote {
		title = "NOTA DE CRÉDITO"
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(title+" "+b.Number(), true).
		WithAuthor(b.Company.BusinessName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRows(b, title)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(buyerRows(b)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(lines(b))...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(b))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func lines(b *billing.DocumentBundle) []ridLine {
	var out []ridLine
	if b.Kind == entity.DocumentKindCreditNote {
		for _, d := range b.CreditNoteDetails {
			out = append(out, ridLine{d.ProductCode, d.Quantity, d.Description, d.UnitPrice, d.TaxRate, d.Subtotal})
		}
		return out
	}
	for _, d := range b.InvoiceDetails {
		out = append(out, ridLine{d.ProductCode, d.Quantity, d.Description, d.UnitPrice, d.TaxRate, d.Subtotal})
	}
	return out
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRows: emisor (izq) y datos tributarios con la clave de acceso en código de barras (der).
func headerRows(b *billing.DocumentBundle, title string) []core.Row {
	c := b.Company
	key := b.Record.AccessKey

	authNumber := "PENDIENTE"
	authDate := "-"
	if b.Record.AuthorizationNumber != "" {
		authNumber = b.Record.AuthorizationNumber
	}
	if b.Record.AuthorizedAt != nil {
		authDate = b.Record.AuthorizedAt.Format("02/01/2006 15:04:05")
	}

	return []core.Row{
		row.New(34).Add(
			col.New(6).Add(
				text.New(c.BusinessName, props.Text{Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1}),
				text.New(nonEmpty(c.TradeName, ""), props.Text{Size: 9, Top: 8}),
				text.New("Dir. Matriz: "+c.MainAddress, props.Text{Size: 8, Top: 14, Color: colorGray}),
				text.New("Dir. Sucursal: "+nonEmpty(c.BranchAddress, c.MainAddress), props.Text{Size: 8, Top: 19, Color: colorGray}),
				text.New("Contribuyente especial: "+nonEmpty(c.SpecialTaxpayer, "-"), props.Text{Size: 8, Top: 24, Color: colorGray}),
				text.New("Obligado a llevar contabilidad: "+yesNo(c.AccountingRequired), props.Text{Size: 8, Top: 29, Color: colorGray}),
			),
			col.New(6).Add(
				text.New("R.U.C.: "+c.RUC, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 1}),
				text.New(title, props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right, Color: colorPrimary, Top: 7}),
				text.New("No. "+b.Number(), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 13}),
				text.New("Autorización: "+authNumber, props.Text{Size: 7, Align: align.Right, Top: 19}),
				text.New("Fecha autorización: "+authDate, props.Text{Size: 7, Align: align.Right, Top: 23}),
				text.New("Ambiente: "+environmentLabel(key)+"   Emisión: NORMAL", props.Text{Size: 7, Align: align.Right, Top: 27}),
			),
		),
		row.New(14).Add(
			col.New(12).Add(code.NewBar(key, props.Barcode{Percent: 100, Center: true})),
		),
		row.New(5).Add(
			col.New(12).Add(text.New("CLAVE DE ACCESO: "+key, props.Text{Size: 7, Align: align.Center, Color: colorGray})),
		),
	}
}

// buyerRows: comprador y, para notas de crédito, comprobante modificado y motivo.
func buyerRows(b *billing.DocumentBundle) []core.Row {
	issue := b.Invoice.IssueDate
	if b.Kind == entity.DocumentKindCreditNote {
		issue = b.CreditNote.IssueDate
	}
	rows := []core.Row{
		row.New(14).Add(
			col.New(12).Add(
				text.New("Razón social / Nombres: "+b.Customer.Name, props.Text{Style: fontstyle.Bold, Size: 9, Top: 1}),
				text.New(fmt.Sprintf("Identificación: %s   |   Fecha emisión: %s   |   Dirección: %s",
					b.Customer.Identification, issue.Format("02/01/2006"), nonEmpty(b.Customer.Address, "-"),
				), props.Text{Size: 8, Top: 7, Color: colorGray}),
			),
		),
	}
	if b.Kind == entity.DocumentKindCreditNote {
		rows = append(rows, row.New(12).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Comprobante que se modifica: FACTURA %s   |   Fecha emisión (sustento): %s",
					b.Invoice.Number(), b.Invoice.IssueDate.Format("02/01/2006"),
				), props.Text{Size: 8, Top: 1}),
				text.New("Razón de modificación: "+b.CreditNote.Reason, props.Text{Size: 8, Top: 6}),
			),
		))
	}
	return rows
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cód.", 2, align.Left),
		h("Cant.", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("P. Unitario", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("P. Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por línea de detalle.
func tableDetailRows(items []ridLine) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, d := range items {
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(d.code, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(d.quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(4).Add(text.New(d.description, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(d.unitPrice.StringFixed(2), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(d.taxRate.StringFixed(0)+"%", props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(d.subtotal.StringFixed(2), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(b *billing.DocumentBundle) core.Row {
	subtotal, tax, total := b.Invoice.Subtotal, b.Invoice.TaxTotal, b.Invoice.Total
	if b.Kind == entity.DocumentKindCreditNote {
		subtotal, tax, total = b.CreditNote.Subtotal, b.CreditNote.TaxTotal, b.CreditNote.Total
	}
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}

	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("SUBTOTAL:", 1),
			label("IVA:", 7),
			label("VALOR TOTAL:", 13),
		),
		col.New(3).Add(
			value("$"+subtotal.StringFixed(2), 1),
			value("$"+tax.StringFixed(2), 7),
			value("$"+total.StringFixed(2), 13),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func yesNo(v bool) string {
	if v {
		return "SI"
	}
	return "NO"
}

// environmentLabel el dígito 24 de la clave de acceso es el ambiente.
func environmentLabel(key string) string {
	if len(key) == 49 && key[23:24] == sri.EnvironmentProduction {
		return "PRODUCCIÓN"
	}
	return "PRUEBAS"
}
