package entity

import "time"

// Company es el emisor de los comprobantes (contribuyente registrado en el SRI).
type Company struct {
	ID                 string
	RUC                string // 13 dígitos
	BusinessName       string // razón social
	TradeName          string // nombre comercial
	MainAddress        string // dirección matriz
	BranchAddress      string // dirección del establecimiento
	Establishment      string // código de establecimiento (3 dígitos)
	EmissionPoint      string // punto de emisión (3 dígitos)
	AccountingRequired bool   // obligado a llevar contabilidad
	SpecialTaxpayer    string // número de resolución de contribuyente especial (opcional)
	Email              string
	Phone              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
