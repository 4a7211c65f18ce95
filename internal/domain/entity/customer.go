package entity

import "time"

// Identificación del consumidor final (cliente genérico único por empresa).
const FinalConsumerIdentification = "9999999999999"

// Customer representa un cliente (comprador) de la empresa.
type Customer struct {
	ID                 string
	CompanyID          string
	IdentificationType string // ver pkg/sri IdentificationType*
	Identification     string // RUC, cédula o pasaporte
	Name               string
	Email              string
	Phone              string
	Address            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsFinalConsumer indica si el cliente es el consumidor final genérico.
func (c *Customer) IsFinalConsumer() bool {
	return c != nil && c.Identification == FinalConsumerIdentification
}
