package domain

import "time"

// Enumerations
const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleWaiter  UserRole = "waiter"
	RoleKitchen UserRole = "kitchen"

	TableFree           TableStatus = "free"
	TableOccupied       TableStatus = "occupied"
	TableWaitingPayment TableStatus = "waiting_payment"

	OrderTypeStaff    OrderType = "staff"
	OrderTypeCustomer OrderType = "customer_self"

	OrderOpen     OrderStatus = "open"
	OrderClosed   OrderStatus = "closed"
	OrderCanceled OrderStatus = "canceled"

	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemDelivered ItemStatus = "delivered"
	ItemCanceled  ItemStatus = "canceled"

	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"

	RegisterClosed RegisterStatus = "closed"
	RegisterOpen   RegisterStatus = "open"

	CashOpen     CashTxType = "open"
	CashClose    CashTxType = "close"
	CashDeposit  CashTxType = "deposit"
	CashWithdraw CashTxType = "withdraw"
	CashDrain    CashTxType = "drain"
)

type UserRole string
type TableStatus string
type OrderType string
type OrderStatus string
type ItemStatus string
type PaymentStatus string
type RegisterStatus string
type CashTxType string

// Money is an amount in minor units (e.g. cents).
type Money struct {
	Amount   int64
	Currency string
}

type User struct {
	ID           int64
	Name         string
	Email        string
	Role         UserRole
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Table is a physical table. CurrentOrderID is non-nil exactly when
// Status is not free.
type Table struct {
	ID             int64
	Number         int
	Token          string
	Status         TableStatus
	Occupants      int
	OpenTime       *time.Time
	WaiterID       *int64
	CurrentOrderID *int64
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Order struct {
	ID            int64
	Code          string
	TableID       int64
	Type          OrderType
	Status        OrderStatus
	Total         Money
	Discount      Money
	ServiceCharge Money
	PaymentMethod string
	PaymentStatus PaymentStatus
	CustomerID    *int64
	Items         []OrderItem
	ClosedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem captures the unit price at add time. Once Status leaves
// pending the quantity, price and product are locked.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice Money
	Status    ItemStatus
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CashRegister caches a fold over its ledger; the CashTransaction log is
// the source of truth for CurrentBalance.
type CashRegister struct {
	ID                int64
	Name              string
	Status            RegisterStatus
	CurrentOperatorID *int64
	CurrentBalance    Money
	OpeningBalance    Money
	ExpectedBalance   Money
	ClosingBalance    Money
	BalanceDifference Money
	OpenedAt          *time.Time
	ClosedAt          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CashTransaction is an immutable ledger entry. Amount is always a
// positive magnitude; the sign of the effect is carried by Type and the
// PreviousBalance/NewBalance snapshot pair.
type CashTransaction struct {
	ID              int64
	RegisterID      int64
	Type            CashTxType
	Amount          Money
	PreviousBalance Money
	NewBalance      Money
	Description     string
	Destination     string
	OrderID         *int64
	OperatorID      *int64
	CreatedAt       time.Time
}

type Customer struct {
	ID             int64
	Name           string
	Phone          string
	CredentialHash *string
	Points         int
	Tier           string
	Visits         int
	LastVisit      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

type Product struct {
	ID        int64
	Name      string
	Category  string
	Price     Money
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
