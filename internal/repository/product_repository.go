package repository

import (
	"context"
	"errors"
	"fmt"

	"restopos-backend/internal/db"
	"restopos-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ProductRepository is the catalog surface: the engine only reads
// prices and availability from it. Menu editing lives elsewhere.
type ProductRepository struct {
	DB *db.Postgres
}

func (r ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, category, price, available, created_at, updated_at
		FROM products
		WHERE deleted_at IS NULL
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price.Amount, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r ProductRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, name, category, price, available, created_at, updated_at
		FROM products
		WHERE id=$1 AND deleted_at IS NULL
	`, id)

	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price.Amount, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}
