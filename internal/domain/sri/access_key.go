// Package sri: clave de acceso de comprobantes electrónicos (Ficha Técnica SRI, esquema offline).
// 48 dígitos de datos + 1 dígito verificador módulo 11.
package sri

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

// Longitudes de la clave de acceso.
const (
	AccessKeyBaseLength = 48
	AccessKeyLength     = 49
)

// AccessKeyParams datos que componen la clave de acceso, en el orden de la ficha técnica.
type AccessKeyParams struct {
	IssueDate     time.Time // ddMMyyyy
	DocumentType  string    // 2 dígitos (01 factura, 04 nota de crédito)
	RUC           string    // 13 dígitos del emisor
	Environment   string    // 1 pruebas, 2 producción
	Establishment string    // 3 dígitos
	EmissionPoint string    // 3 dígitos
	Sequential    string    // 9 dígitos
	NumericCode   string    // 8 dígitos de relleno
	EmissionType  string    // 1 emisión normal
}

// AccessKeyGenerator genera claves de acceso. No tiene estado.
type AccessKeyGenerator struct{}

// NewAccessKeyGenerator crea el generador.
func NewAccessKeyGenerator() *AccessKeyGenerator {
	return &AccessKeyGenerator{}
}

// Generate concatena los 48 dígitos y agrega el dígito verificador.
// Si la cadena base no mide 48 retorna *domain.AccessKeyLengthError.
func (g *AccessKeyGenerator) Generate(p AccessKeyParams) (string, error) {
	var b strings.Builder
	b.Grow(AccessKeyLength)
	b.WriteString(p.IssueDate.Format("02012006"))
	b.WriteString(p.DocumentType)
	b.WriteString(p.RUC)
	b.WriteString(p.Environment)
	b.WriteString(p.Establishment)
	b.WriteString(p.EmissionPoint)
	b.WriteString(p.Sequential)
	b.WriteString(p.NumericCode)
	b.WriteString(p.EmissionType)
	base := b.String()
	if len(base) != AccessKeyBaseLength {
		return "", &domain.AccessKeyLengthError{Length: len(base), Key: base}
	}
	digit, err := Mod11CheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + string(rune('0'+digit)), nil
}

// Mod11CheckDigit calcula el dígito verificador: se recorre la cadena de derecha a izquierda con pesos
// 2..7 cíclicos, r = 11 - (suma mod 11); r=11 -> 0, r=10 -> 1.
func Mod11CheckDigit(digits string) (int, error) {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: carácter no numérico %q en la posición %d", domain.ErrInvalidInput, c, i)
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	default:
		return r, nil
	}
}

// ValidateAccessKey verifica longitud y dígito verificador de una clave completa.
func ValidateAccessKey(key string) error {
	if len(key) != AccessKeyLength {
		return &domain.AccessKeyLengthError{Length: len(key), Key: key}
	}
	digit, err := Mod11CheckDigit(key[:AccessKeyBaseLength])
	if err != nil {
		return err
	}
	if int(key[AccessKeyBaseLength]-'0') != digit {
		return fmt.Errorf("%w: dígito verificador de clave de acceso inválido", domain.ErrInvalidInput)
	}
	return nil
}
