package service

import (
	"context"
	"fmt"
	"log/slog"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"
)

// OrderService owns an order's line items and total. Every mutation
// recomputes the total from the authoritative item set inside the same
// transaction as the change.
type OrderService struct {
	Orders   ports.OrderStore
	Catalog  ports.Catalog
	Notifier ports.Notifier
	Logger   *slog.Logger
}

func (s OrderService) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.Orders.Get(ctx, orderID)
}

// AddItem captures the catalog price at add time and appends the item.
func (s OrderService) AddItem(ctx context.Context, orderID, productID int64, quantity int, notes string) (*domain.OrderItem, *domain.Order, error) {
	if quantity <= 0 {
		return nil, nil, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidInput)
	}

	product, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if !product.Available {
		return nil, nil, fmt.Errorf("product %q is unavailable: %w", product.Name, domain.ErrInvalidInput)
	}

	item, order, err := s.Orders.AddItem(ctx, ports.AddItemParams{
		OrderID:   orderID,
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: product.Price,
		Notes:     notes,
	})
	if err != nil {
		return nil, nil, err
	}
	s.notifyOrder(ctx, order)
	return item, order, nil
}

func (s OrderService) RemoveItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error) {
	order, err := s.Orders.RemoveItem(ctx, orderID, itemID)
	if err != nil {
		return nil, err
	}
	s.notifyOrder(ctx, order)
	return order, nil
}

// CancelItem is the approval path for items that can no longer be
// removed. The role gate (manager) is enforced at the router.
func (s OrderService) CancelItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error) {
	order, err := s.Orders.CancelItem(ctx, orderID, itemID)
	if err != nil {
		return nil, err
	}
	s.notifyOrder(ctx, order)
	return order, nil
}

func (s OrderService) UpdateItemStatus(ctx context.Context, orderID, itemID int64, next domain.ItemStatus) (*domain.OrderItem, error) {
	switch next {
	case domain.ItemPreparing, domain.ItemReady, domain.ItemDelivered, domain.ItemCanceled:
	default:
		return nil, fmt.Errorf("unknown item status %q: %w", next, domain.ErrInvalidInput)
	}
	item, err := s.Orders.UpdateItemStatus(ctx, orderID, itemID, next)
	if err != nil {
		return nil, err
	}
	s.notifyOrderID(ctx, orderID)
	return item, nil
}

// SetCharges stores the discount and service charge. Both are policy
// inputs; neither is ever derived implicitly.
func (s OrderService) SetCharges(ctx context.Context, orderID int64, discount, serviceCharge domain.Money) (*domain.Order, error) {
	if discount.Amount < 0 || serviceCharge.Amount < 0 {
		return nil, fmt.Errorf("charges must be non-negative: %w", domain.ErrInvalidInput)
	}
	order, err := s.Orders.SetCharges(ctx, orderID, discount, serviceCharge)
	if err != nil {
		return nil, err
	}
	s.notifyOrder(ctx, order)
	return order, nil
}

// RecalculateTotal is idempotent: with no intervening mutation it
// produces the same total every time.
func (s OrderService) RecalculateTotal(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.Orders.RecalculateTotal(ctx, orderID)
}

func (s OrderService) notifyOrder(ctx context.Context, order *domain.Order) {
	if s.Notifier == nil || order == nil {
		return
	}
	if err := s.Notifier.OrderUpdated(ctx, order.ID, order.Status); err != nil && s.Logger != nil {
		s.Logger.Warn("order event not published", "order", order.ID, "err", err)
	}
}

func (s OrderService) notifyOrderID(ctx context.Context, orderID int64) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.OrderUpdated(ctx, orderID, domain.OrderOpen); err != nil && s.Logger != nil {
		s.Logger.Warn("order event not published", "order", orderID, "err", err)
	}
}
