// Package sri implementa los adaptadores hacia el Servicio de Rentas Internas del Ecuador:
// XML de comprobantes (esquema offline 1.1.0), firma y web services de recepción y autorización.
package sri

import "encoding/xml"

type infoTributaria struct {
	Ambiente        string `xml:"ambiente"`
	TipoEmision     string `xml:"tipoEmision"`
	RazonSocial     string `xml:"razonSocial"`
	NombreComercial string `xml:"nombreComercial,omitempty"`
	RUC             string `xml:"ruc"`
	ClaveAcceso     string `xml:"claveAcceso"`
	CodDoc          string `xml:"codDoc"`
	Estab           string `xml:"estab"`
	PtoEmi          string `xml:"ptoEmi"`
	Secuencial      string `xml:"secuencial"`
	DirMatriz       string `xml:"dirMatriz"`
}

type totalImpuesto struct {
	Codigo           string `xml:"codigo"`
	CodigoPorcentaje string `xml:"codigoPorcentaje"`
	BaseImponible    string `xml:"baseImponible"`
	Valor            string `xml:"valor"`
}

type impuesto struct {
	Codigo           string `xml:"codigo"`
	CodigoPorcentaje string `xml:"codigoPorcentaje"`
	Tarifa           string `xml:"tarifa"`
	BaseImponible    string `xml:"baseImponible"`
	Valor            string `xml:"valor"`
}

type pago struct {
	FormaPago    string `xml:"formaPago"`
	Total        string `xml:"total"`
	Plazo        string `xml:"plazo,omitempty"`
	UnidadTiempo string `xml:"unidadTiempo,omitempty"`
}

type campoAdicional struct {
	Nombre string `xml:"nombre,attr"`
	Valor  string `xml:",chardata"`
}

type infoFactura struct {
	FechaEmision                string          `xml:"fechaEmision"`
	DirEstablecimiento          string          `xml:"dirEstablecimiento,omitempty"`
	ContribuyenteEspecial       string          `xml:"contribuyenteEspecial,omitempty"`
	ObligadoContabilidad        string          `xml:"obligadoContabilidad"`
	TipoIdentificacionComprador string          `xml:"tipoIdentificacionComprador"`
	RazonSocialComprador        string          `xml:"razonSocialComprador"`
	IdentificacionComprador     string          `xml:"identificacionComprador"`
	DireccionComprador          string          `xml:"direccionComprador,omitempty"`
	TotalSinImpuestos           string          `xml:"totalSinImpuestos"`
	TotalDescuento              string          `xml:"totalDescuento"`
	TotalConImpuestos           []totalImpuesto `xml:"totalConImpuestos>totalImpuesto"`
	Propina                     string          `xml:"propina"`
	ImporteTotal                string          `xml:"importeTotal"`
	Moneda                      string          `xml:"moneda"`
	Pagos                       []pago          `xml:"pagos>pago"`
}

type detalleFactura struct {
	CodigoPrincipal        string     `xml:"codigoPrincipal"`
	Descripcion            string     `xml:"descripcion"`
	Cantidad               string     `xml:"cantidad"`
	PrecioUnitario         string     `xml:"precioUnitario"`
	Descuento              string     `xml:"descuento"`
	PrecioTotalSinImpuesto string     `xml:"precioTotalSinImpuesto"`
	Impuestos              []impuesto `xml:"impuestos>impuesto"`
}

type facturaXML struct {
	XMLName        xml.Name         `xml:"factura"`
	ID             string           `xml:"id,attr"`
	Version        string           `xml:"version,attr"`
	InfoTributaria infoTributaria   `xml:"infoTributaria"`
	InfoFactura    infoFactura      `xml:"infoFactura"`
	Detalles       []detalleFactura `xml:"detalles>detalle"`
	InfoAdicional  []campoAdicional `xml:"infoAdicional>campoAdicional,omitempty"`
}

type infoNotaCredito struct {
	FechaEmision                string          `xml:"fechaEmision"`
	DirEstablecimiento          string          `xml:"dirEstablecimiento,omitempty"`
	TipoIdentificacionComprador string          `xml:"tipoIdentificacionComprador"`
	RazonSocialComprador        string          `xml:"razonSocialComprador"`
	IdentificacionComprador     string          `xml:"identificacionComprador"`
	ContribuyenteEspecial       string          `xml:"contribuyenteEspecial,omitempty"`
	ObligadoContabilidad        string          `xml:"obligadoContabilidad"`
	CodDocModificado            string          `xml:"codDocModificado"`
	NumDocModificado            string          `xml:"numDocModificado"`
	FechaEmisionDocSustento     string          `xml:"fechaEmisionDocSustento"`
	TotalSinImpuestos           string          `xml:"totalSinImpuestos"`
	ValorModificacion           string          `xml:"valorModificacion"`
	Moneda                      string          `xml:"moneda"`
	TotalConImpuestos           []totalImpuesto `xml:"totalConImpuestos>totalImpuesto"`
	Motivo                      string          `xml:"motivo"`
}

type detalleNotaCredito struct {
	CodigoInterno          string     `xml:"codigoInterno"`
	Descripcion            string     `xml:"descripcion"`
	Cantidad               string     `xml:"cantidad"`
	PrecioUnitario         string     `xml:"precioUnitario"`
	Descuento              string     `xml:"descuento"`
	PrecioTotalSinImpuesto string     `xml:"precioTotalSinImpuesto"`
	Impuestos              []impuesto `xml:"impuestos>impuesto"`
}

type notaCreditoXML struct {
	XMLName         xml.Name             `xml:"notaCredito"`
	ID              string               `xml:"id,attr"`
	Version         string               `xml:"version,attr"`
	InfoTributaria  infoTributaria       `xml:"infoTributaria"`
	InfoNotaCredito infoNotaCredito      `xml:"infoNotaCredito"`
	Detalles        []detalleNotaCredito `xml:"detalles>detalle"`
	InfoAdicional   []campoAdicional     `xml:"infoAdicional>campoAdicional,omitempty"`
}
