package service

import (
	"context"
	"fmt"
	"log/slog"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/metrics"
	"restopos-backend/internal/ports"

	"github.com/jackc/pgx/v5"
)

// SettlementService closes a table: finalize the order, post the sale
// to the cash ledger, release the table — all or nothing. Events are
// emitted only after the unit has committed.
type SettlementService struct {
	Store     ports.SettlementStore
	Customers ports.CustomerStore
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

func (s SettlementService) CloseTable(ctx context.Context, tableID int64, paymentMethod string, operatorID int64) (*ports.SettleResult, error) {
	if paymentMethod == "" {
		return nil, fmt.Errorf("payment method is required: %w", domain.ErrInvalidInput)
	}

	res, err := s.Store.Settle(ctx, ports.SettleParams{
		TableID:       tableID,
		PaymentMethod: paymentMethod,
		OperatorID:    operatorID,
	}, s.accrue)
	if err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.Inc()
	metrics.LedgerEntriesTotal.WithLabelValues(string(res.Entry.Type)).Inc()
	if s.Logger != nil {
		s.Logger.Info("table settled",
			"table", res.Table.ID,
			"order", res.Order.ID,
			"total", res.Order.Total.Amount,
			"register", res.Register.ID)
	}

	s.emit(ctx, res)
	return res, nil
}

// accrue runs inside the settlement transaction under a savepoint; the
// store discards its failure so loyalty can never block a settlement.
func (s SettlementService) accrue(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	if s.Customers == nil || order.CustomerID == nil {
		return nil
	}
	customer, err := s.Customers.AccrueWithTx(ctx, tx, *order.CustomerID, order.Total)
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("loyalty accrued",
			"customer", customer.ID, "points", customer.Points, "tier", customer.Tier)
	}
	return nil
}

func (s SettlementService) emit(ctx context.Context, res *ports.SettleResult) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.TableUpdated(ctx, res.Table.ID); err != nil && s.Logger != nil {
		s.Logger.Warn("table event not published", "table", res.Table.ID, "err", err)
	}
	if err := s.Notifier.OrderUpdated(ctx, res.Order.ID, res.Order.Status); err != nil && s.Logger != nil {
		s.Logger.Warn("order event not published", "order", res.Order.ID, "err", err)
	}
	if err := s.Notifier.CashRegisterUpdated(ctx, res.Register.ID); err != nil && s.Logger != nil {
		s.Logger.Warn("register event not published", "register", res.Register.ID, "err", err)
	}
}
