package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/metrics"
	"restopos-backend/internal/ports"

	"golang.org/x/crypto/bcrypt"
)

// TableService owns table occupancy transitions and the claim
// arbitration used by self-service ordering.
type TableService struct {
	Tables    ports.TableStore
	Orders    ports.OrderStore
	Customers ports.CustomerStore
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

func (s TableService) Get(ctx context.Context, tableID int64) (*domain.Table, error) {
	return s.Tables.Get(ctx, tableID)
}

func (s TableService) List(ctx context.Context) ([]domain.Table, error) {
	return s.Tables.List(ctx)
}

func (s TableService) Create(ctx context.Context, number int) (*domain.Table, error) {
	if number <= 0 {
		return nil, fmt.Errorf("table number must be positive: %w", domain.ErrInvalidInput)
	}
	return s.Tables.Create(ctx, number)
}

func (s TableService) Deactivate(ctx context.Context, tableID int64) error {
	return s.Tables.Deactivate(ctx, tableID)
}

// Open seats guests at a free table and starts their staff order.
func (s TableService) Open(ctx context.Context, tableID, waiterID int64, occupants int) (*domain.Table, *domain.Order, error) {
	if occupants <= 0 {
		return nil, nil, fmt.Errorf("occupants must be positive: %w", domain.ErrInvalidInput)
	}
	table, order, err := s.Tables.Open(ctx, ports.OpenTableParams{
		TableID:   tableID,
		WaiterID:  waiterID,
		Occupants: occupants,
	})
	if err != nil {
		return nil, nil, err
	}
	s.notifyTable(ctx, table.ID)
	return table, order, nil
}

// Transfer moves a seated party to a free table. The store applies both
// row changes in one transaction; a half transfer is never visible.
func (s TableService) Transfer(ctx context.Context, sourceID, targetID int64) error {
	if err := s.Tables.Transfer(ctx, sourceID, targetID); err != nil {
		return err
	}
	s.notifyTable(ctx, sourceID)
	s.notifyTable(ctx, targetID)
	return nil
}

func (s TableService) RequestBill(ctx context.Context, tableID int64) (*domain.Table, error) {
	table, err := s.Tables.RequestBill(ctx, tableID)
	if err != nil {
		return nil, err
	}
	s.notifyTable(ctx, table.ID)
	return table, nil
}

// Claim atomically takes a free table for a self-service customer. Two
// concurrent claims cannot both succeed: the order is created
// speculatively, then a single conditional write decides the winner.
// The loser's order is discarded and the caller is told to re-fetch the
// table's current order instead of retrying the create.
func (s TableService) Claim(ctx context.Context, token string, customerID int64, credential string) (*domain.Order, error) {
	customer, err := s.Customers.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := verifyCredential(customer, credential); err != nil {
		return nil, err
	}

	table, err := s.Tables.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if table.CurrentOrderID != nil {
		return s.reenter(ctx, table, customerID)
	}

	order, err := s.Orders.CreateCustomerOrder(ctx, table.ID, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.Tables.Claim(ctx, table.ID, order.ID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ClaimConflictsTotal.Inc()
			if delErr := s.Orders.Delete(ctx, order.ID); delErr != nil && s.Logger != nil {
				s.Logger.Warn("orphan speculative order", "order", order.ID, "err", delErr)
			}
			// Idempotent re-entry: the winner may have been this same
			// customer on another device.
			if fresh, freshErr := s.Tables.Get(ctx, table.ID); freshErr == nil && fresh.CurrentOrderID != nil {
				return s.reenter(ctx, fresh, customerID)
			}
		}
		return nil, err
	}

	s.notifyTable(ctx, table.ID)
	return order, nil
}

// reenter returns the table's existing order when it belongs to the
// same customer, otherwise reports the conflict.
func (s TableService) reenter(ctx context.Context, table *domain.Table, customerID int64) (*domain.Order, error) {
	order, err := s.Orders.Get(ctx, *table.CurrentOrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != nil && *order.CustomerID == customerID && order.Status == domain.OrderOpen {
		return order, nil
	}
	return nil, fmt.Errorf("table %d already has an order: %w", table.ID, domain.ErrConflict)
}

func verifyCredential(customer *domain.Customer, credential string) error {
	if customer.CredentialHash == nil || credential == "" {
		return fmt.Errorf("customer credential missing: %w", domain.ErrInvalidInput)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*customer.CredentialHash), []byte(credential)); err != nil {
		return fmt.Errorf("customer credential mismatch: %w", domain.ErrInvalidInput)
	}
	return nil
}

func (s TableService) notifyTable(ctx context.Context, tableID int64) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.TableUpdated(ctx, tableID); err != nil && s.Logger != nil {
		s.Logger.Warn("table event not published", "table", tableID, "err", err)
	}
}
