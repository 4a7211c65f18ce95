package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// RestorePolicy decide en qué lotes reingresa la mercadería devuelta.
type RestorePolicy string

const (
	// RestoreLatestExpiry aplica todo lo devuelto al lote consumido con vencimiento más lejano;
	// solo pasa al siguiente lote si el primero quedaría por encima de lo comprado.
	RestoreLatestExpiry RestorePolicy = "latest_expiry"
	// RestoreMirror devuelve a cada lote lo que aportó a la línea, empezando por el de vencimiento más lejano.
	RestoreMirror RestorePolicy = "mirror"
)

// ParseRestorePolicy acepta los valores de configuración; vacío equivale a RestoreLatestExpiry.
func ParseRestorePolicy(s string) (RestorePolicy, error) {
	switch RestorePolicy(s) {
	case "", RestoreLatestExpiry:
		return RestoreLatestExpiry, nil
	case RestoreMirror:
		return RestoreMirror, nil
	}
	return "", fmt.Errorf("%w: política de reingreso desconocida %q", domain.ErrInvalidInput, s)
}

// Allocation cantidad tomada de (o devuelta a) un lote. LotID vacío = contador único del producto.
type Allocation struct {
	LotID    string
	Quantity decimal.Decimal
}

// StockLedger descuenta y reingresa stock dentro de la transacción del llamador.
// Nunca abre transacciones propias: si retorna error, el llamador hace rollback.
type StockLedger struct {
	policy RestorePolicy
	now    func() time.Time
}

// NewStockLedger construye el ledger con la política de reingreso indicada.
func NewStockLedger(policy RestorePolicy) *StockLedger {
	if policy == "" {
		policy = RestoreLatestExpiry
	}
	return &StockLedger{policy: policy, now: time.Now}
}

// Policy política de reingreso configurada.
func (l *StockLedger) Policy() RestorePolicy { return l.policy }

// Deplete descuenta quantity del producto para la línea indicada.
// Productos por lote: FIFO por fecha de compra, todo o nada; se registra un vínculo por lote tocado.
func (l *StockLedger) Deplete(
	ctx context.Context,
	repos repository.Repositories,
	product *entity.Product,
	quantity decimal.Decimal,
	line *entity.InvoiceDetail,
) ([]Allocation, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: cantidad debe ser mayor a cero", domain.ErrInvalidInput)
	}
	if !product.TracksInventory {
		return nil, nil
	}
	now := l.now()
	if !product.TracksLots {
		p, err := repos.Products.GetForUpdate(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrNotFound
		}
		if p.Stock.LessThan(quantity) {
			return nil, &domain.InsufficientStockError{
				ProductID: p.ID, ProductName: p.Name, Requested: quantity, Available: p.Stock,
			}
		}
		if err := repos.Products.UpdateStock(ctx, p.ID, p.Stock.Sub(quantity)); err != nil {
			return nil, err
		}
		if err := l.recordMovement(ctx, repos, entity.MovementTypeOUT, p.ID, "", line.ID, line.InvoiceID, quantity.Neg(), now); err != nil {
			return nil, err
		}
		return []Allocation{{Quantity: quantity}}, nil
	}

	lots, err := repos.Lots.ListAvailableForUpdate(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	sortFIFO(lots)
	total := decimal.Zero
	for _, lot := range lots {
		total = total.Add(lot.Available)
	}
	if total.LessThan(quantity) {
		return nil, &domain.InsufficientStockError{
			ProductID: product.ID, ProductName: product.Name, Requested: quantity, Available: total,
		}
	}

	remaining := quantity
	var out []Allocation
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}
		if !lot.Available.IsPositive() {
			continue
		}
		take := decimal.Min(lot.Available, remaining)
		if err := repos.Lots.UpdateAvailable(ctx, lot.ID, lot.Available.Sub(take)); err != nil {
			return nil, err
		}
		link := &entity.LotConsumption{
			ID:              uuid.New().String(),
			InvoiceDetailID: line.ID,
			LotID:           lot.ID,
			Quantity:        take,
			CreatedAt:       now,
		}
		if err := repos.Consumptions.Create(ctx, link); err != nil {
			return nil, err
		}
		if err := l.recordMovement(ctx, repos, entity.MovementTypeOUT, product.ID, lot.ID, line.ID, line.InvoiceID, take.Neg(), now); err != nil {
			return nil, err
		}
		out = append(out, Allocation{LotID: lot.ID, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return out, nil
}

// Restore reingresa quantity imputada a la línea de factura lineID usando la política configurada.
// documentID es el comprobante que provoca el reingreso (nota de crédito).
func (l *StockLedger) Restore(
	ctx context.Context,
	repos repository.Repositories,
	product *entity.Product,
	quantity decimal.Decimal,
	lineID, documentID string,
) ([]Allocation, error) {
	return l.restore(ctx, repos, product, quantity, lineID, documentID, entity.MovementTypeRETURN, l.policy)
}

// Release devuelve lo descontado por una factura rechazada; siempre espeja el consumo original.
func (l *StockLedger) Release(
	ctx context.Context,
	repos repository.Repositories,
	product *entity.Product,
	quantity decimal.Decimal,
	lineID, documentID string,
) ([]Allocation, error) {
	return l.restore(ctx, repos, product, quantity, lineID, documentID, entity.MovementTypeRELEASE, RestoreMirror)
}

func (l *StockLedger) restore(
	ctx context.Context,
	repos repository.Repositories,
	product *entity.Product,
	quantity decimal.Decimal,
	lineID, documentID, movementType string,
	policy RestorePolicy,
) ([]Allocation, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: cantidad a reingresar debe ser mayor a cero", domain.ErrInvalidInput)
	}
	if !product.TracksInventory {
		return nil, nil
	}
	now := l.now()
	if !product.TracksLots {
		p, err := repos.Products.GetForUpdate(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrNotFound
		}
		if err := repos.Products.UpdateStock(ctx, p.ID, p.Stock.Add(quantity)); err != nil {
			return nil, err
		}
		if err := l.recordMovement(ctx, repos, movementType, p.ID, "", lineID, documentID, quantity, now); err != nil {
			return nil, err
		}
		return []Allocation{{Quantity: quantity}}, nil
	}

	links, err := repos.Consumptions.ListByInvoiceDetail(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: la línea %s no tiene consumos de lote registrados", domain.ErrConflict, lineID)
	}
	consumed := make(map[string]decimal.Decimal, len(links))
	ids := make([]string, 0, len(links))
	for _, c := range links {
		if _, ok := consumed[c.LotID]; !ok {
			ids = append(ids, c.LotID)
		}
		consumed[c.LotID] = consumed[c.LotID].Add(c.Quantity)
	}
	lots, err := repos.Lots.ListByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortLatestExpiryFirst(lots)

	var pending map[string]decimal.Decimal
	if policy == RestoreMirror {
		pending, err = l.pendingPerLot(ctx, repos, lineID, consumed)
		if err != nil {
			return nil, err
		}
	}

	remaining := quantity
	var out []Allocation
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}
		room := lot.Purchased.Sub(lot.Available)
		if policy == RestoreMirror {
			room = decimal.Min(room, pending[lot.ID])
		}
		if !room.IsPositive() {
			continue
		}
		give := decimal.Min(room, remaining)
		if err := repos.Lots.UpdateAvailable(ctx, lot.ID, lot.Available.Add(give)); err != nil {
			return nil, err
		}
		if err := l.recordMovement(ctx, repos, movementType, product.ID, lot.ID, lineID, documentID, give, now); err != nil {
			return nil, err
		}
		out = append(out, Allocation{LotID: lot.ID, Quantity: give})
		remaining = remaining.Sub(give)
	}
	if remaining.IsPositive() {
		return nil, fmt.Errorf("%w: no hay capacidad en los lotes de %q para reingresar %s unidades",
			domain.ErrConflict, product.Name, remaining.String())
	}
	return out, nil
}

// pendingPerLot lo consumido por la línea en cada lote menos lo ya reingresado a ese lote.
func (l *StockLedger) pendingPerLot(
	ctx context.Context,
	repos repository.Repositories,
	lineID string,
	consumed map[string]decimal.Decimal,
) (map[string]decimal.Decimal, error) {
	movs, err := repos.Movements.ListByLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]decimal.Decimal, len(consumed))
	for id, q := range consumed {
		pending[id] = q
	}
	for _, m := range movs {
		if m.LotID == "" || m.Type == entity.MovementTypeOUT {
			continue
		}
		pending[m.LotID] = pending[m.LotID].Sub(m.Quantity)
	}
	return pending, nil
}

func (l *StockLedger) recordMovement(
	ctx context.Context,
	repos repository.Repositories,
	movementType, productID, lotID, lineID, documentID string,
	quantity decimal.Decimal,
	now time.Time,
) error {
	return repos.Movements.Create(ctx, &entity.InventoryMovement{
		ID:         uuid.New().String(),
		ProductID:  productID,
		LotID:      lotID,
		LineID:     lineID,
		DocumentID: documentID,
		Type:       movementType,
		Quantity:   quantity,
		CreatedAt:  now,
	})
}

// sortFIFO fecha de compra ascendente, luego fecha de registro y por último ID: el mismo orden
// que la consulta de postgres, para que ambos motores consuman los lotes igual.
func sortFIFO(lots []*entity.InventoryLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.PurchaseDate.Equal(b.PurchaseDate) {
			return a.PurchaseDate.Before(b.PurchaseDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// sortLatestExpiryFirst vencimiento descendente; lotes sin vencimiento al final.
func sortLatestExpiryFirst(lots []*entity.InventoryLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i].ExpiryDate, lots[j].ExpiryDate
		switch {
		case a == nil && b == nil:
			return lots[i].PurchaseDate.After(lots[j].PurchaseDate)
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		}
		return lots[i].PurchaseDate.After(lots[j].PurchaseDate)
	})
}
