package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restopos-backend/internal/db"
	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"

	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	DB *db.Postgres
}

const orderColumns = `id, code, table_id, type, status, total, discount, service_charge, payment_method, payment_status, customer_id, closed_at, created_at, updated_at`
const itemColumns = `id, order_id, product_id, name, quantity, unit_price, status, notes, created_at, updated_at`

func (r OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	items, err := r.itemsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r OrderRepository) itemsOf(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.DB.Pool.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// CreateCustomerOrder inserts the speculative order used by a claim
// attempt. The table link is only made real by TableRepository.Claim.
func (r OrderRepository) CreateCustomerOrder(ctx context.Context, tableID, customerID int64) (*domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := insertOrder(ctx, tx, tableID, domain.OrderTypeCustomer, &customerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete discards a speculative order that lost its claim race. Orders
// that already accumulated items are kept.
func (r OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		DELETE FROM orders
		WHERE id=$1 AND status='open' AND NOT EXISTS (SELECT 1 FROM order_items WHERE order_id=$1)
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d cannot be discarded: %w", id, domain.ErrInvalidState)
	}
	return nil
}

// AddItem appends an item and recomputes the total from the full live
// item set in the same transaction. The total is never patched
// incrementally; concurrent mutations on the same order make that
// unsafe.
func (r OrderRepository) AddItem(ctx context.Context, in ports.AddItemParams) (*domain.OrderItem, *domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, in.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status != domain.OrderOpen {
		return nil, nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, domain.ErrInvalidState)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,'pending',$6, now(), now())
		RETURNING `+itemColumns+`
	`, in.OrderID, in.ProductID, in.Name, in.Quantity, in.UnitPrice.Amount, in.Notes)
	item, err := scanItem(row)
	if err != nil {
		return nil, nil, err
	}

	order, err = recomputeTotalTx(ctx, tx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return item, order, nil
}

// RemoveItem deletes a still-pending item and recomputes the total.
// Locked items (preparation started) can only be canceled, not removed.
func (r OrderRepository) RemoveItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error) {
	return r.mutateItem(ctx, orderID, itemID, func(ctx context.Context, tx pgx.Tx, item *domain.OrderItem) error {
		if item.Locked() {
			return fmt.Errorf("item %d is %s and locked: %w", item.ID, item.Status, domain.ErrInvalidState)
		}
		_, err := tx.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, item.ID)
		return err
	})
}

// CancelItem marks an item canceled, excluding it from the total. Only
// pending items can be canceled without the manager approval path, which
// is enforced at the service layer.
func (r OrderRepository) CancelItem(ctx context.Context, orderID, itemID int64) (*domain.Order, error) {
	return r.mutateItem(ctx, orderID, itemID, func(ctx context.Context, tx pgx.Tx, item *domain.OrderItem) error {
		if item.Status == domain.ItemCanceled {
			return nil
		}
		if item.Status == domain.ItemDelivered {
			return fmt.Errorf("item %d already delivered: %w", item.ID, domain.ErrInvalidState)
		}
		_, err := tx.Exec(ctx, `UPDATE order_items SET status='canceled', updated_at=now() WHERE id=$1`, item.ID)
		return err
	})
}

func (r OrderRepository) mutateItem(ctx context.Context, orderID, itemID int64, mutate func(context.Context, pgx.Tx, *domain.OrderItem) error) (*domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderOpen {
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, domain.ErrInvalidState)
	}

	item, err := lockItem(ctx, tx, orderID, itemID)
	if err != nil {
		return nil, err
	}
	if err := mutate(ctx, tx, item); err != nil {
		return nil, err
	}

	order, err = recomputeTotalTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateItemStatus advances an item along its forward-only progression.
func (r OrderRepository) UpdateItemStatus(ctx context.Context, orderID, itemID int64, next domain.ItemStatus) (*domain.OrderItem, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	item, err := lockItem(ctx, tx, orderID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Status.CanTransition(next) {
		return nil, fmt.Errorf("item %d cannot go from %s to %s: %w", item.ID, item.Status, next, domain.ErrInvalidState)
	}

	row := tx.QueryRow(ctx, `
		UPDATE order_items SET status=$1, updated_at=now() WHERE id=$2
		RETURNING `+itemColumns+`
	`, next, item.ID)
	item, err = scanItem(row)
	if err != nil {
		return nil, err
	}

	// Canceling through the progression path also affects the total.
	if next == domain.ItemCanceled {
		if _, err := recomputeTotalTx(ctx, tx, orderID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

// SetCharges stores the discount and service charge policy fields and
// recomputes the total. The service charge is never silently derived.
func (r OrderRepository) SetCharges(ctx context.Context, orderID int64, discount, serviceCharge domain.Money) (*domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderOpen {
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, domain.ErrInvalidState)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET discount=$1, service_charge=$2, updated_at=now() WHERE id=$3
	`, discount.Amount, serviceCharge.Amount, orderID); err != nil {
		return nil, err
	}

	order, err = recomputeTotalTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// RecalculateTotal is the idempotent repair primitive: it refolds the
// item set into the total with no other side effects.
func (r OrderRepository) RecalculateTotal(ctx context.Context, orderID int64) (*domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := lockOrder(ctx, tx, orderID); err != nil {
		return nil, err
	}
	order, err := recomputeTotalTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// recomputeTotalTx folds the live item set into the order total inside
// the caller's transaction and returns the updated order with items.
func recomputeTotalTx(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.Order, error) {
	rows, err := tx.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	var items []domain.OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, *it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var discount, serviceCharge domain.Money
	if err := tx.QueryRow(ctx, `SELECT discount, service_charge FROM orders WHERE id=$1`, orderID).
		Scan(&discount.Amount, &serviceCharge.Amount); err != nil {
		return nil, err
	}

	total := domain.ComputeTotal(items, discount, serviceCharge)
	row := tx.QueryRow(ctx, `
		UPDATE orders SET total=$1, updated_at=now() WHERE id=$2
		RETURNING `+orderColumns+`
	`, total.Amount, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, tableID int64, orderType domain.OrderType, customerID *int64) (*domain.Order, error) {
	code := fmt.Sprintf("ORD-%d", time.Now().UnixNano()/1e6)
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (code, table_id, type, status, total, discount, service_charge, payment_method, payment_status, customer_id, created_at, updated_at)
		VALUES ($1,$2,$3,'open',0,0,0,'','unpaid',$4, now(), now())
		RETURNING `+orderColumns+`
	`, code, tableID, orderType, customerID)
	return scanOrder(row)
}

func lockOrder(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

func lockItem(ctx context.Context, tx pgx.Tx, orderID, itemID int64) (*domain.OrderItem, error) {
	row := tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id=$1 AND order_id=$2 FOR UPDATE`, itemID, orderID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %d on order %d: %w", itemID, orderID, domain.ErrNotFound)
		}
		return nil, err
	}
	return item, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o             domain.Order
		typ           string
		status        string
		paymentStatus string
	)
	if err := row.Scan(
		&o.ID,
		&o.Code,
		&o.TableID,
		&typ,
		&status,
		&o.Total.Amount,
		&o.Discount.Amount,
		&o.ServiceCharge.Amount,
		&o.PaymentMethod,
		&paymentStatus,
		&o.CustomerID,
		&o.ClosedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Type = domain.OrderType(typ)
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	return &o, nil
}

func scanItem(row pgx.Row) (*domain.OrderItem, error) {
	var (
		it     domain.OrderItem
		status string
	)
	if err := row.Scan(
		&it.ID,
		&it.OrderID,
		&it.ProductID,
		&it.Name,
		&it.Quantity,
		&it.UnitPrice.Amount,
		&status,
		&it.Notes,
		&it.CreatedAt,
		&it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	it.Status = domain.ItemStatus(status)
	return &it, nil
}
