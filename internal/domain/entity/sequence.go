package entity

import "time"

// SequenceCounter guarda los secuenciales por establecimiento y punto de emisión.
// Solo se incrementa dentro de la transacción de creación; nunca decrece.
type SequenceCounter struct {
	Establishment string
	EmissionPoint string
	Invoice       int64
	CreditNote    int64
	UpdatedAt     time.Time
}
