// Package sri contiene catálogos de la Ficha Técnica de Comprobantes Electrónicos
// (esquema offline) del Servicio de Rentas Internas del Ecuador.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante
// =============================================================================

const (
	DocumentTypeInvoice     = "01" // Factura
	DocumentTypeCreditNote  = "04" // Nota de crédito
	DocumentTypeDebitNote   = "05" // Nota de débito
	DocumentTypeWaybill     = "06" // Guía de remisión
	DocumentTypeWithholding = "07" // Comprobante de retención
)

// =============================================================================
// Tabla 4 - Tipo de ambiente
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas
	EnvironmentProduction = "2" // Producción
)

// Tabla 2 - Tipo de emisión. Solo existe emisión normal en el esquema offline.
const EmissionTypeNormal = "1"

// =============================================================================
// Tabla 6 - Tipo de identificación del comprador
// =============================================================================

const (
	IdentificationTypeRUC           = "04"
	IdentificationTypeCedula        = "05"
	IdentificationTypePassport      = "06"
	IdentificationTypeFinalConsumer = "07"
	IdentificationTypeForeign       = "08"
)

// ValidIdentificationTypes tipos aceptados para clientes nuevos.
var ValidIdentificationTypes = map[string]bool{
	IdentificationTypeRUC:           true,
	IdentificationTypeCedula:        true,
	IdentificationTypePassport:      true,
	IdentificationTypeFinalConsumer: true,
	IdentificationTypeForeign:       true,
}

// =============================================================================
// Tabla 16 - Impuestos y tarifas
// =============================================================================

const (
	TaxCodeIVA = "2"

	IVARateCode0        = "0" // 0%
	IVARateCode12       = "2" // 12%
	IVARateCode14       = "3" // 14%
	IVARateCode15       = "4" // 15%
	IVARateCode5        = "5" // 5%
	IVARateCodeExempt   = "7" // exento
	IVARateCode13       = "10"
	IVARateCodeNoObjeto = "6"
)

// IVARateCode devuelve el código de porcentaje para una tarifa expresada como entero (15, 12, 0...).
func IVARateCode(percent int64) string {
	switch percent {
	case 0:
		return IVARateCode0
	case 5:
		return IVARateCode5
	case 12:
		return IVARateCode12
	case 13:
		return IVARateCode13
	case 14:
		return IVARateCode14
	case 15:
		return IVARateCode15
	}
	return IVARateCodeNoObjeto
}

// =============================================================================
// Tabla 24 - Formas de pago
// =============================================================================

const (
	PaymentMethodCash        = "01" // Sin utilización del sistema financiero
	PaymentMethodDebitCard   = "16"
	PaymentMethodCreditCard  = "19"
	PaymentMethodOther       = "20" // Otros con utilización del sistema financiero
	PaymentMethodEndorsement = "21" // Endoso de títulos
)

// ValidPaymentMethods formas de pago aceptadas.
var ValidPaymentMethods = map[string]bool{
	PaymentMethodCash:        true,
	PaymentMethodDebitCard:   true,
	PaymentMethodCreditCard:  true,
	PaymentMethodOther:       true,
	PaymentMethodEndorsement: true,
}
