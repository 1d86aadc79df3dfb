package repository

import (
	"context"
	"fmt"
	"log/slog"

	"restopos-backend/internal/db"
	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"
)

// SettlementRepository performs the close-table workflow as one
// database transaction: finalize the order, post the sale to the cash
// ledger, release the table. Either every write lands or none does.
type SettlementRepository struct {
	DB     *db.Postgres
	Logger *slog.Logger
}

func (r SettlementRepository) Settle(ctx context.Context, in ports.SettleParams, accrue ports.AccrueFunc) (*ports.SettleResult, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	table, err := lockTable(ctx, tx, in.TableID)
	if err != nil {
		return nil, err
	}
	if table.Status != domain.TableOccupied && table.Status != domain.TableWaitingPayment {
		return nil, fmt.Errorf("table %d is %s: %w", table.ID, table.Status, domain.ErrInvalidState)
	}
	if table.CurrentOrderID == nil {
		return nil, fmt.Errorf("table %d has no order: %w", table.ID, domain.ErrInvalidState)
	}

	order, err := lockOrder(ctx, tx, *table.CurrentOrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderOpen {
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, domain.ErrInvalidState)
	}

	// Delivery gate: every item must be delivered or canceled before the
	// table can close.
	order, err = recomputeTotalTx(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if blockers := domain.Blockers(order.Items); len(blockers) > 0 {
		return nil, &domain.PendingItemsError{Items: blockers}
	}

	row := tx.QueryRow(ctx, `
		UPDATE orders
		SET status='closed', payment_status='paid', payment_method=$1, closed_at=now(), updated_at=now()
		WHERE id=$2
		RETURNING `+orderColumns+`
	`, in.PaymentMethod, order.ID)
	items := order.Items
	order, err = scanOrder(row)
	if err != nil {
		return nil, err
	}
	order.Items = items

	// A closed table with no matching ledger entry is a reconciliation
	// defect, so a missing register fails the whole settlement.
	register, err := findOpenRegisterTx(ctx, tx, in.OperatorID)
	if err != nil {
		return nil, err
	}
	register, entry, err := postEntryLocked(ctx, tx, register, ports.PostEntryParams{
		RegisterID:  register.ID,
		Type:        domain.CashDeposit,
		Amount:      order.Total,
		Description: fmt.Sprintf("sale %s", order.Code),
		OrderID:     &order.ID,
		OperatorID:  &in.OperatorID,
	})
	if err != nil {
		return nil, err
	}

	// Loyalty accrual runs under a savepoint: it must not be able to
	// break a financial settlement.
	if accrue != nil && order.CustomerID != nil {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return nil, err
		}
		if err := accrue(ctx, sp, order); err != nil {
			_ = sp.Rollback(ctx)
			if r.Logger != nil {
				r.Logger.Warn("loyalty accrual failed", "order", order.ID, "customer", *order.CustomerID, "err", err)
			}
		} else if err := sp.Commit(ctx); err != nil {
			return nil, err
		}
	}

	table, err = releaseTableTx(ctx, tx, table.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ports.SettleResult{
		Table:    table,
		Order:    order,
		Register: register,
		Entry:    entry,
	}, nil
}
