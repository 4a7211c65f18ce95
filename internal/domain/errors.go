package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInvalidState      = errors.New("transición de estado no permitida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvariant         = errors.New("invariante interna violada")
)

// InsufficientStockError detalla el producto y el faltante. errors.Is(err, ErrInsufficientStock) es true.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %q: solicitado %s, disponible %s, faltan %s",
		e.ProductName, e.Requested.String(), e.Available.String(), e.Shortfall().String())
}

// Shortfall unidades que faltan para cubrir lo solicitado.
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// AccessKeyLengthError indica que la clave de acceso previa al dígito verificador no tiene 48 caracteres.
// Es un error de programación, no de entrada del usuario.
type AccessKeyLengthError struct {
	Length int
	Key    string
}

func (e *AccessKeyLengthError) Error() string {
	return fmt.Sprintf("clave de acceso con longitud %d (se esperaban 48): %s", e.Length, e.Key)
}

func (e *AccessKeyLengthError) Unwrap() error { return ErrInvariant }
