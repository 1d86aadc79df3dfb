package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"

	"github.com/jackc/pgx/v5"
)

// In-memory fakes for the store interfaces. They keep the same
// contracts as the SQL implementations (conditional claim write, total
// recomputation, ledger snapshots) so the services can be exercised
// without a database.

type fakeTableStore struct {
	mu     sync.Mutex
	tables map[int64]*domain.Table
}

func newFakeTableStore(tables ...*domain.Table) *fakeTableStore {
	m := make(map[int64]*domain.Table, len(tables))
	for _, t := range tables {
		m[t.ID] = t
	}
	return &fakeTableStore{tables: m}
}

func (f *fakeTableStore) Get(ctx context.Context, id int64) (*domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTableStore) GetByToken(ctx context.Context, token string) (*domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tables {
		if t.Token == token && t.Active {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTableStore) List(ctx context.Context) ([]domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Table, 0, len(f.tables))
	for _, t := range f.tables {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTableStore) Create(ctx context.Context, number int) (*domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &domain.Table{ID: int64(len(f.tables) + 1), Number: number, Status: domain.TableFree, Active: true}
	f.tables[t.ID] = t
	cp := *t
	return &cp, nil
}

func (f *fakeTableStore) Deactivate(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Status != domain.TableFree {
		return domain.ErrInvalidState
	}
	t.Active = false
	return nil
}

func (f *fakeTableStore) Open(ctx context.Context, in ports.OpenTableParams) (*domain.Table, *domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[in.TableID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if t.Status != domain.TableFree {
		return nil, nil, domain.ErrInvalidState
	}
	order := &domain.Order{ID: in.TableID * 100, TableID: t.ID, Type: domain.OrderTypeStaff, Status: domain.OrderOpen}
	t.Status = domain.TableOccupied
	t.Occupants = in.Occupants
	t.WaiterID = &in.WaiterID
	t.CurrentOrderID = &order.ID
	cp := *t
	return &cp, order, nil
}

func (f *fakeTableStore) Transfer(ctx context.Context, sourceID, targetID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.tables[sourceID]
	if !ok {
		return domain.ErrNotFound
	}
	dst, ok := f.tables[targetID]
	if !ok {
		return domain.ErrNotFound
	}
	if src.Status == domain.TableFree || dst.Status != domain.TableFree {
		return domain.ErrInvalidState
	}
	dst.Status, dst.Occupants, dst.CurrentOrderID, dst.WaiterID = src.Status, src.Occupants, src.CurrentOrderID, src.WaiterID
	src.Status = domain.TableFree
	src.Occupants = 0
	src.CurrentOrderID = nil
	src.WaiterID = nil
	return nil
}

func (f *fakeTableStore) RequestBill(ctx context.Context, id int64) (*domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if t.Status != domain.TableOccupied {
		return nil, domain.ErrInvalidState
	}
	t.Status = domain.TableWaitingPayment
	cp := *t
	return &cp, nil
}

func (f *fakeTableStore) Claim(ctx context.Context, tableID, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableID]
	if !ok {
		return domain.ErrNotFound
	}
	if t.CurrentOrderID != nil {
		return fmt.Errorf("table %d already claimed: %w", tableID, domain.ErrConflict)
	}
	t.CurrentOrderID = &orderID
	t.Status = domain.TableOccupied
	return nil
}

type fakeOrderStore struct {
	mu      sync.Mutex
	orders  map[int64]*domain.Order
	nextID  int64
	deleted []int64
}

func newFakeOrderStore(orders ...*domain.Order) *fakeOrderStore {
	m := make(map[int64]*domain.Order, len(orders))
	var max int64
	for _, o := range orders {
		m[o.ID] = o
		if o.ID > max {
			max = o.ID
		}
	}
	return &fakeOrderStore{orders: m, nextID: max}
}

func (f *fakeOrderStore) Get(ctx context.Context, id int64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) CreateCustomerOrder(ctx context.Context, tableID, customerID int64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o := &domain.Order{
		ID:            f.nextID,
		TableID:       tableID,
		Type:          domain.OrderTypeCustomer,
		Status:        domain.OrderOpen,
		PaymentStatus: domain.PaymentUnpaid,
		CustomerID:    &customerID,
	}
	f.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if len(o.Items) > 0 {
		return domain.ErrInvalidState
	}
	delete(f.orders, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeOrderStore) AddItem(ctx context.Context, in ports.AddItemParams) (*domain.OrderItem, *domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[in.OrderID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if o.Status != domain.OrderOpen {
		return nil, nil, domain.ErrInvalidState
	}
	item := domain.OrderItem{
		ID:        int64(len(o.Items) + 1),
		OrderID:   o.ID,
		ProductID: in.ProductID,
		Name:      in.Name,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		Status:    domain.ItemPending,
		Notes:     in.Notes,
	}
	o.Items = append(o.Items, item)
	o.Total = domain.ComputeTotal(o.Items, o.Discount, o.ServiceCharge)
	cp := *o
	return &item, &cp, nil
}

func (f *fakeOrderStore) RemoveItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for i, it := range o.Items {
		if it.ID != itemID {
			continue
		}
		if it.Locked() {
			return nil, domain.ErrInvalidState
		}
		o.Items = append(o.Items[:i], o.Items[i+1:]...)
		o.Total = domain.ComputeTotal(o.Items, o.Discount, o.ServiceCharge)
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderStore) CancelItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for i, it := range o.Items {
		if it.ID != itemID {
			continue
		}
		if it.Status == domain.ItemDelivered {
			return nil, domain.ErrInvalidState
		}
		o.Items[i].Status = domain.ItemCanceled
		o.Total = domain.ComputeTotal(o.Items, o.Discount, o.ServiceCharge)
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderStore) UpdateItemStatus(ctx context.Context, orderID, itemID int64, next domain.ItemStatus) (*domain.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for i, it := range o.Items {
		if it.ID != itemID {
			continue
		}
		if !it.Status.CanTransition(next) {
			return nil, domain.ErrInvalidState
		}
		o.Items[i].Status = next
		if next == domain.ItemCanceled {
			o.Total = domain.ComputeTotal(o.Items, o.Discount, o.ServiceCharge)
		}
		cp := o.Items[i]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderStore) SetCharges(ctx context.Context, orderID int64, discount, serviceCharge domain.Money) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.Status != domain.OrderOpen {
		return nil, domain.ErrInvalidState
	}
	o.Discount = discount
	o.ServiceCharge = serviceCharge
	o.Total = domain.ComputeTotal(o.Items, o.Discount, o.ServiceCharge)
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) RecalculateTotal(ctx context.Context, orderID int64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Total = domain.ComputeTotal(o.Items, o.Discount, o.ServiceCharge)
	cp := *o
	return &cp, nil
}

type fakeRegisterStore struct {
	mu       sync.Mutex
	register *domain.CashRegister
	ledger   []domain.CashTransaction
	nextID   int64
}

func newFakeRegisterStore(reg *domain.CashRegister) *fakeRegisterStore {
	return &fakeRegisterStore{register: reg}
}

func (f *fakeRegisterStore) Get(ctx context.Context, id int64) (*domain.CashRegister, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.register == nil || f.register.ID != id {
		return nil, domain.ErrNotFound
	}
	cp := *f.register
	return &cp, nil
}

func (f *fakeRegisterStore) Open(ctx context.Context, in ports.OpenRegisterParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.register == nil || f.register.ID != in.RegisterID {
		return nil, nil, domain.ErrNotFound
	}
	if f.register.Status == domain.RegisterOpen {
		return nil, nil, domain.ErrInvalidState
	}
	now := time.Now()
	f.register.Status = domain.RegisterOpen
	f.register.CurrentOperatorID = &in.OperatorID
	f.register.OpeningBalance = in.OpeningBalance
	f.register.CurrentBalance = in.OpeningBalance
	f.register.ExpectedBalance = in.OpeningBalance
	f.register.OpenedAt = &now
	entry := f.append(domain.CashTransaction{
		RegisterID:      in.RegisterID,
		Type:            domain.CashOpen,
		Amount:          in.OpeningBalance,
		PreviousBalance: domain.Money{},
		NewBalance:      in.OpeningBalance,
		OperatorID:      &in.OperatorID,
	})
	reg := *f.register
	return &reg, entry, nil
}

func (f *fakeRegisterStore) Post(ctx context.Context, in ports.PostEntryParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.register == nil || f.register.ID != in.RegisterID {
		return nil, nil, domain.ErrNotFound
	}
	if f.register.Status != domain.RegisterOpen {
		return nil, nil, domain.ErrInvalidState
	}
	prev := f.register.CurrentBalance
	delta := in.Amount.Amount
	if in.Type == domain.CashWithdraw || in.Type == domain.CashDrain {
		if delta > prev.Amount {
			return nil, nil, &domain.InsufficientFundsError{Requested: in.Amount, Available: prev}
		}
		delta = -delta
	}
	next := domain.Money{Amount: prev.Amount + delta}
	f.register.CurrentBalance = next
	f.register.ExpectedBalance = next
	entry := f.append(domain.CashTransaction{
		RegisterID:      in.RegisterID,
		Type:            in.Type,
		Amount:          in.Amount,
		PreviousBalance: prev,
		NewBalance:      next,
		Description:     in.Description,
		Destination:     in.Destination,
		OrderID:         in.OrderID,
		OperatorID:      in.OperatorID,
	})
	reg := *f.register
	return &reg, entry, nil
}

func (f *fakeRegisterStore) Close(ctx context.Context, in ports.CloseRegisterParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.register == nil || f.register.ID != in.RegisterID {
		return nil, nil, domain.ErrNotFound
	}
	if f.register.Status != domain.RegisterOpen {
		return nil, nil, domain.ErrInvalidState
	}
	now := time.Now()
	expected := f.register.CurrentBalance
	f.register.Status = domain.RegisterClosed
	f.register.ClosingBalance = in.CountedBalance
	f.register.BalanceDifference = domain.Money{Amount: in.CountedBalance.Amount - expected.Amount}
	f.register.CurrentOperatorID = nil
	f.register.ClosedAt = &now
	entry := f.append(domain.CashTransaction{
		RegisterID:      in.RegisterID,
		Type:            domain.CashClose,
		Amount:          in.CountedBalance,
		PreviousBalance: expected,
		NewBalance:      in.CountedBalance,
		OperatorID:      &in.OperatorID,
	})
	reg := *f.register
	return &reg, entry, nil
}

func (f *fakeRegisterStore) Ledger(ctx context.Context, registerID int64, limit int) ([]domain.CashTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CashTransaction, len(f.ledger))
	copy(out, f.ledger)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeRegisterStore) RecalculateBalance(ctx context.Context, registerID int64) (*domain.CashRegister, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var since []domain.CashTransaction
	for i := len(f.ledger) - 1; i >= 0; i-- {
		if f.ledger[i].Type == domain.CashOpen {
			since = f.ledger[i+1:]
			break
		}
	}
	f.register.CurrentBalance = domain.FoldLedger(f.register.OpeningBalance, since)
	cp := *f.register
	return &cp, nil
}

func (f *fakeRegisterStore) append(e domain.CashTransaction) *domain.CashTransaction {
	f.nextID++
	e.ID = f.nextID
	e.CreatedAt = time.Now()
	f.ledger = append(f.ledger, e)
	return &e
}

type fakeSettlementStore struct {
	result    *ports.SettleResult
	err       error
	accrueErr error
	calls     []ports.SettleParams
}

func (f *fakeSettlementStore) Settle(ctx context.Context, in ports.SettleParams, accrue ports.AccrueFunc) (*ports.SettleResult, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	if accrue != nil {
		// Savepoint semantics: an accrual failure is swallowed.
		if err := accrue(ctx, nil, f.result.Order); err != nil {
			f.accrueErr = err
		}
	}
	return f.result, nil
}

type fakeCatalog struct {
	products map[int64]*domain.Product
}

func (f fakeCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeCustomerStore struct {
	mu        sync.Mutex
	customers map[int64]*domain.Customer
	accrueErr error
	accrued   []int64
}

func (f *fakeCustomerStore) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomerStore) AccrueWithTx(ctx context.Context, tx pgx.Tx, customerID int64, orderTotal domain.Money) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accrueErr != nil {
		return nil, f.accrueErr
	}
	c, ok := f.customers[customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Points += int(orderTotal.Amount / 100)
	c.Visits++
	f.accrued = append(f.accrued, customerID)
	cp := *c
	return &cp, nil
}

type notifierEvent struct {
	kind string
	id   int64
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
	err    error
}

func (f *fakeNotifier) TableUpdated(ctx context.Context, tableID int64) error {
	return f.record("table", tableID)
}

func (f *fakeNotifier) OrderUpdated(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	return f.record("order", orderID)
}

func (f *fakeNotifier) CashRegisterUpdated(ctx context.Context, registerID int64) error {
	return f.record("register", registerID)
}

func (f *fakeNotifier) record(kind string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, notifierEvent{kind: kind, id: id})
	return nil
}

func (f *fakeNotifier) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}
