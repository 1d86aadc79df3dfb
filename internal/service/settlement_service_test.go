package service

import (
	"context"
	"errors"
	"testing"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settleResult(customerID *int64) *ports.SettleResult {
	orderID := int64(100)
	return &ports.SettleResult{
		Table: &domain.Table{ID: 1, Status: domain.TableFree},
		Order: &domain.Order{
			ID:            orderID,
			TableID:       1,
			Status:        domain.OrderClosed,
			Total:         domain.Money{Amount: 2500},
			PaymentStatus: domain.PaymentPaid,
			CustomerID:    customerID,
		},
		Register: &domain.CashRegister{ID: 1, CurrentBalance: domain.Money{Amount: 12500}},
		Entry: &domain.CashTransaction{
			Type:            domain.CashDeposit,
			Amount:          domain.Money{Amount: 2500},
			PreviousBalance: domain.Money{Amount: 10000},
			NewBalance:      domain.Money{Amount: 12500},
			OrderID:         &orderID,
		},
	}
}

func TestCloseTableRequiresPaymentMethod(t *testing.T) {
	store := &fakeSettlementStore{result: settleResult(nil)}
	svc := SettlementService{Store: store}

	_, err := svc.CloseTable(context.Background(), 1, "", 7)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, store.calls, "store never reached")
}

func TestCloseTableHappyPath(t *testing.T) {
	store := &fakeSettlementStore{result: settleResult(nil)}
	notifier := &fakeNotifier{}
	svc := SettlementService{Store: store, Notifier: notifier}

	res, err := svc.CloseTable(context.Background(), 1, "cash", 7)
	require.NoError(t, err)
	assert.Equal(t, domain.TableFree, res.Table.Status)
	assert.Equal(t, domain.OrderClosed, res.Order.Status)
	assert.Equal(t, int64(12500), res.Register.CurrentBalance.Amount)
	assert.Equal(t, res.Entry.PreviousBalance.Amount+res.Entry.Amount.Amount, res.Entry.NewBalance.Amount)

	require.Len(t, store.calls, 1)
	assert.Equal(t, "cash", store.calls[0].PaymentMethod)
	assert.Equal(t, int64(7), store.calls[0].OperatorID)

	// Events fire only after a successful unit.
	assert.Equal(t, 1, notifier.count("table"))
	assert.Equal(t, 1, notifier.count("order"))
	assert.Equal(t, 1, notifier.count("register"))
}

func TestCloseTableFailurePublishesNothing(t *testing.T) {
	pending := &domain.PendingItemsError{Items: []domain.OrderItem{{ID: 3, Name: "Carbonara", Status: domain.ItemPreparing}}}
	store := &fakeSettlementStore{err: pending}
	notifier := &fakeNotifier{}
	svc := SettlementService{Store: store, Notifier: notifier}

	_, err := svc.CloseTable(context.Background(), 1, "cash", 7)
	var got *domain.PendingItemsError
	require.ErrorAs(t, err, &got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(3), got.Items[0].ID)
	assert.Empty(t, notifier.events)
}

func TestCloseTableNoOpenRegister(t *testing.T) {
	store := &fakeSettlementStore{err: domain.ErrNoOpenRegister}
	notifier := &fakeNotifier{}
	svc := SettlementService{Store: store, Notifier: notifier}

	_, err := svc.CloseTable(context.Background(), 1, "card", 7)
	assert.ErrorIs(t, err, domain.ErrNoOpenRegister)
	assert.Empty(t, notifier.events)
}

func TestCloseTableAccruesLoyalty(t *testing.T) {
	customerID := int64(42)
	store := &fakeSettlementStore{result: settleResult(&customerID)}
	customers := &fakeCustomerStore{customers: map[int64]*domain.Customer{
		42: {ID: 42, Name: "guest", Points: 10},
	}}
	svc := SettlementService{Store: store, Customers: customers}

	_, err := svc.CloseTable(context.Background(), 1, "cash", 7)
	require.NoError(t, err)
	require.Len(t, customers.accrued, 1)

	c, err := customers.GetCustomer(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 35, c.Points, "10 existing + 2500/100 earned")
	assert.Equal(t, 1, c.Visits)
}

// A loyalty failure is confined to its savepoint; the settlement still
// succeeds.
func TestCloseTableLoyaltyFailureDoesNotBlock(t *testing.T) {
	customerID := int64(42)
	store := &fakeSettlementStore{result: settleResult(&customerID)}
	customers := &fakeCustomerStore{
		customers: map[int64]*domain.Customer{42: {ID: 42}},
		accrueErr: errors.New("loyalty service down"),
	}
	svc := SettlementService{Store: store, Customers: customers}

	res, err := svc.CloseTable(context.Background(), 1, "cash", 7)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Error(t, store.accrueErr, "accrual failed inside the unit")
	assert.Empty(t, customers.accrued)
}

func TestCloseTableSkipsAccrualForStaffOrders(t *testing.T) {
	store := &fakeSettlementStore{result: settleResult(nil)}
	customers := &fakeCustomerStore{customers: map[int64]*domain.Customer{}}
	svc := SettlementService{Store: store, Customers: customers}

	_, err := svc.CloseTable(context.Background(), 1, "cash", 7)
	require.NoError(t, err)
	assert.Empty(t, customers.accrued)
}
