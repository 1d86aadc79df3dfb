package repository

import (
	"context"
	"errors"
	"fmt"

	"restopos-backend/internal/db"
	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TableRepository struct {
	DB *db.Postgres
}

const tableColumns = `id, number, token, status, occupants, open_time, waiter_id, current_order_id, active, created_at, updated_at`

func (r TableRepository) Get(ctx context.Context, id int64) (*domain.Table, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id=$1`, id)
	t, err := scanTable(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("table %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (r TableRepository) GetByToken(ctx context.Context, token string) (*domain.Table, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE token=$1 AND active`, token)
	t, err := scanTable(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("table token: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (r TableRepository) List(ctx context.Context) ([]domain.Table, error) {
	rows, err := r.DB.Pool.Query(ctx, `SELECT `+tableColumns+` FROM tables WHERE active ORDER BY number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []domain.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *t)
	}
	return tables, rows.Err()
}

func (r TableRepository) Create(ctx context.Context, number int) (*domain.Table, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO tables (number, token, status, occupants, active, created_at, updated_at)
		VALUES ($1, $2, 'free', 0, true, now(), now())
		RETURNING `+tableColumns+`
	`, number, uuid.NewString())
	t, err := scanTable(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("table number %d already exists: %w", number, domain.ErrConflict)
		}
		return nil, err
	}
	return t, nil
}

// Deactivate soft-disables a table. Tables with order history are never
// hard-deleted; a table currently in use is refused.
func (r TableRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE tables SET active=false, updated_at=now()
		WHERE id=$1 AND status='free' AND active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("table %d is not free: %w", id, domain.ErrInvalidState)
	}
	return nil
}

// Open creates the staff order and occupies the table in one
// transaction. Preconditions are re-checked after the row lock is held.
func (r TableRepository) Open(ctx context.Context, in ports.OpenTableParams) (*domain.Table, *domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	t, err := lockTable(ctx, tx, in.TableID)
	if err != nil {
		return nil, nil, err
	}
	if !t.Active {
		return nil, nil, fmt.Errorf("table %d is deactivated: %w", t.ID, domain.ErrInvalidState)
	}
	if t.Status != domain.TableFree || t.CurrentOrderID != nil {
		return nil, nil, fmt.Errorf("table %d is %s: %w", t.ID, t.Status, domain.ErrInvalidState)
	}

	order, err := insertOrder(ctx, tx, t.ID, domain.OrderTypeStaff, nil)
	if err != nil {
		return nil, nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE tables
		SET status='occupied', occupants=$1, open_time=now(), waiter_id=$2, current_order_id=$3, updated_at=now()
		WHERE id=$4
		RETURNING `+tableColumns+`
	`, in.Occupants, in.WaiterID, order.ID, t.ID)
	t, err = scanTable(row)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return t, order, nil
}

// Transfer moves occupancy from source to target. Both rows are locked
// in id order to keep concurrent transfers deadlock-free.
func (r TableRepository) Transfer(ctx context.Context, sourceID, targetID int64) error {
	if sourceID == targetID {
		return fmt.Errorf("source and target are the same table: %w", domain.ErrInvalidInput)
	}

	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	first, second := sourceID, targetID
	if second < first {
		first, second = second, first
	}
	locked := map[int64]*domain.Table{}
	for _, id := range []int64{first, second} {
		t, err := lockTable(ctx, tx, id)
		if err != nil {
			return err
		}
		locked[id] = t
	}
	source, target := locked[sourceID], locked[targetID]

	if source.Status != domain.TableOccupied || source.CurrentOrderID == nil {
		return fmt.Errorf("source table %d is %s: %w", source.ID, source.Status, domain.ErrInvalidState)
	}
	if !target.Active || target.Status != domain.TableFree || target.CurrentOrderID != nil {
		return fmt.Errorf("target table %d is not free: %w", target.ID, domain.ErrInvalidState)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET table_id=$1, updated_at=now() WHERE id=$2
	`, target.ID, *source.CurrentOrderID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE tables
		SET status='occupied', occupants=$1, open_time=$2, waiter_id=$3, current_order_id=$4, updated_at=now()
		WHERE id=$5
	`, source.Occupants, source.OpenTime, source.WaiterID, source.CurrentOrderID, target.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE tables
		SET status='free', occupants=0, open_time=NULL, waiter_id=NULL, current_order_id=NULL, updated_at=now()
		WHERE id=$1
	`, source.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r TableRepository) RequestBill(ctx context.Context, id int64) (*domain.Table, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE tables SET status='waiting_payment', updated_at=now()
		WHERE id=$1 AND status='occupied'
		RETURNING `+tableColumns+`
	`, id)
	t, err := scanTable(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, fmt.Errorf("table %d is not occupied: %w", id, domain.ErrInvalidState)
		}
		return nil, err
	}
	return t, nil
}

// Claim links orderID to the table only if no order is linked yet. The
// single conditional write collapses the free-table race to one winner;
// a zero row count means the race was lost.
func (r TableRepository) Claim(ctx context.Context, tableID, orderID int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE tables
		SET status='occupied', current_order_id=$1, open_time=now(), updated_at=now()
		WHERE id=$2 AND current_order_id IS NULL AND active
	`, orderID, tableID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table %d already claimed: %w", tableID, domain.ErrConflict)
	}
	return nil
}

// releaseTableTx clears occupancy inside the settlement transaction. It
// is only reached once the order has been finalized.
func releaseTableTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Table, error) {
	row := tx.QueryRow(ctx, `
		UPDATE tables
		SET status='free', occupants=0, open_time=NULL, waiter_id=NULL, current_order_id=NULL, updated_at=now()
		WHERE id=$1
		RETURNING `+tableColumns+`
	`, id)
	return scanTable(row)
}

func lockTable(ctx context.Context, tx pgx.Tx, id int64) (*domain.Table, error) {
	row := tx.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id=$1 FOR UPDATE`, id)
	t, err := scanTable(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("table %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func scanTable(row pgx.Row) (*domain.Table, error) {
	var (
		t      domain.Table
		status string
	)
	if err := row.Scan(
		&t.ID,
		&t.Number,
		&t.Token,
		&status,
		&t.Occupants,
		&t.OpenTime,
		&t.WaiterID,
		&t.CurrentOrderID,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TableStatus(status)
	return &t, nil
}
