package repository

import (
	"context"
	"errors"
	"fmt"

	"restopos-backend/internal/db"
	"restopos-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

// CustomerRepository backs the loyalty collaborator surface and the
// credential check used by self-service claims.
type CustomerRepository struct {
	DB *db.Postgres
}

const customerColumns = `id, name, phone, credential_hash, points, tier, visits, last_visit, created_at, updated_at`

func (r CustomerRepository) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id=$1 AND deleted_at IS NULL
	`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// AccrueWithTx updates the loyalty profile inside an existing
// transaction: one point per whole currency unit spent, tier by
// lifetime points, visit counters.
func (r CustomerRepository) AccrueWithTx(ctx context.Context, tx pgx.Tx, customerID int64, orderTotal domain.Money) (*domain.Customer, error) {
	points := int(orderTotal.Amount / 100)
	row := tx.QueryRow(ctx, `
		UPDATE customers
		SET points = points + $1,
		    tier = CASE
		        WHEN points + $1 >= 5000 THEN 'gold'
		        WHEN points + $1 >= 1000 THEN 'silver'
		        ELSE 'bronze'
		    END,
		    visits = visits + 1,
		    last_visit = now(),
		    updated_at = now()
		WHERE id=$2 AND deleted_at IS NULL
		RETURNING `+customerColumns+`
	`, points, customerID)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %d: %w", customerID, domain.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.CredentialHash,
		&c.Points,
		&c.Tier,
		&c.Visits,
		&c.LastVisit,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
