package repository

// Repositories agrupa los puertos de persistencia. Dentro de una transacción todos comparten
// la misma conexión; fuera de ella leen del pool.
type Repositories struct {
	Companies    CompanyRepository
	Customers    CustomerRepository
	Products     ProductRepository
	Lots         LotRepository
	Consumptions LotConsumptionRepository
	Movements    InventoryMovementRepository
	Sequences    SequenceRepository
	Invoices     InvoiceRepository
	CreditNotes  CreditNoteRepository
	Documents    ElectronicDocumentRepository
	Receivables  ReceivableRepository
}
