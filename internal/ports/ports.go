package ports

import (
	"context"

	"restopos-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

// HealthChecker is used to probe dependencies.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// TableStore owns the occupancy state of tables. Multi-row operations
// (Open, Transfer) run as one database transaction.
type TableStore interface {
	Get(ctx context.Context, id int64) (*domain.Table, error)
	GetByToken(ctx context.Context, token string) (*domain.Table, error)
	List(ctx context.Context) ([]domain.Table, error)
	Create(ctx context.Context, number int) (*domain.Table, error)
	Deactivate(ctx context.Context, id int64) error

	// Open transitions a free table to occupied and creates its staff
	// order in the same transaction.
	Open(ctx context.Context, in OpenTableParams) (*domain.Table, *domain.Order, error)
	// Transfer moves occupancy and the order link from source to target;
	// both rows change together or not at all.
	Transfer(ctx context.Context, sourceID, targetID int64) error
	RequestBill(ctx context.Context, id int64) (*domain.Table, error)
	// Claim is the conditional write backing self-service order
	// creation: it links orderID only if the table has no current order,
	// returning domain.ErrConflict when the race was lost.
	Claim(ctx context.Context, tableID, orderID int64) error
}

type OpenTableParams struct {
	TableID   int64
	WaiterID  int64
	Occupants int
}

// OrderStore owns orders and their item lists. Item mutations recompute
// the order total from the live item set inside the same transaction.
type OrderStore interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	CreateCustomerOrder(ctx context.Context, tableID, customerID int64) (*domain.Order, error)
	// Delete discards a speculative order that lost a claim race. It
	// refuses orders that already have items.
	Delete(ctx context.Context, id int64) error

	AddItem(ctx context.Context, in AddItemParams) (*domain.OrderItem, *domain.Order, error)
	RemoveItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error)
	CancelItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error)
	UpdateItemStatus(ctx context.Context, orderID, itemID int64, next domain.ItemStatus) (*domain.OrderItem, error)
	SetCharges(ctx context.Context, orderID int64, discount, serviceCharge domain.Money) (*domain.Order, error)
	RecalculateTotal(ctx context.Context, orderID int64) (*domain.Order, error)
}

type AddItemParams struct {
	OrderID   int64
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice domain.Money
	Notes     string
}

// RegisterStore owns cash registers and their append-only ledgers. Every
// method is one transaction: lock register, validate, write entry, write
// balance.
type RegisterStore interface {
	Get(ctx context.Context, id int64) (*domain.CashRegister, error)
	Open(ctx context.Context, in OpenRegisterParams) (*domain.CashRegister, *domain.CashTransaction, error)
	Post(ctx context.Context, in PostEntryParams) (*domain.CashRegister, *domain.CashTransaction, error)
	Close(ctx context.Context, in CloseRegisterParams) (*domain.CashRegister, *domain.CashTransaction, error)
	Ledger(ctx context.Context, registerID int64, limit int) ([]domain.CashTransaction, error)
	// RecalculateBalance refolds the ledger since the latest open entry
	// and rewrites the cached balance.
	RecalculateBalance(ctx context.Context, registerID int64) (*domain.CashRegister, error)
}

type OpenRegisterParams struct {
	RegisterID     int64
	OperatorID     int64
	OpeningBalance domain.Money
}

type PostEntryParams struct {
	RegisterID  int64
	Type        domain.CashTxType
	Amount      domain.Money
	Description string
	Destination string
	OrderID     *int64
	OperatorID  *int64
}

type CloseRegisterParams struct {
	RegisterID       int64
	OperatorID       int64
	CountedBalance   domain.Money
	PaymentBreakdown map[string]int64
	CashCount        map[string]int
	Notes            string
}

// AccrueFunc runs loyalty accrual inside the settlement transaction. It
// executes under a savepoint: its failure is discarded without aborting
// the settlement.
type AccrueFunc func(ctx context.Context, tx pgx.Tx, order *domain.Order) error

// SettlementStore performs the atomic close-table unit.
type SettlementStore interface {
	Settle(ctx context.Context, in SettleParams, accrue AccrueFunc) (*SettleResult, error)
}

type SettleParams struct {
	TableID       int64
	PaymentMethod string
	OperatorID    int64
}

type SettleResult struct {
	Table    *domain.Table
	Order    *domain.Order
	Register *domain.CashRegister
	Entry    *domain.CashTransaction
}

// Catalog is the product lookup collaborator used to capture unit prices
// at add time.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// CustomerStore is the loyalty collaborator surface.
type CustomerStore interface {
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	// AccrueWithTx updates the customer's points/tier/visit profile
	// inside an existing transaction.
	AccrueWithTx(ctx context.Context, tx pgx.Tx, customerID int64, orderTotal domain.Money) (*domain.Customer, error)
}

// Notifier is the fire-and-forget event sink. Implementations must be
// safe to call after commit only; errors are logged, never propagated.
type Notifier interface {
	TableUpdated(ctx context.Context, tableID int64) error
	OrderUpdated(ctx context.Context, orderID int64, status domain.OrderStatus) error
	CashRegisterUpdated(ctx context.Context, registerID int64) error
}
