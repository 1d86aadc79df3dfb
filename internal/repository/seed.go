package repository

import (
	"context"

	"restopos-backend/internal/domain"

	"github.com/google/uuid"
)

// SeedDefaults provisions a starter menu. Idempotent: products.name is
// unique.
func (r ProductRepository) SeedDefaults(ctx context.Context) error {
	defaults := []domain.Product{
		{Name: "Margherita", Category: "Mains", Price: domain.Money{Amount: 1200}, Available: true},
		{Name: "Carbonara", Category: "Mains", Price: domain.Money{Amount: 1450}, Available: true},
		{Name: "Caesar Salad", Category: "Starters", Price: domain.Money{Amount: 850}, Available: true},
		{Name: "Bruschetta", Category: "Starters", Price: domain.Money{Amount: 600}, Available: true},
		{Name: "Tiramisu", Category: "Desserts", Price: domain.Money{Amount: 700}, Available: true},
		{Name: "Espresso", Category: "Drinks", Price: domain.Money{Amount: 250}, Available: true},
		{Name: "House Red (glass)", Category: "Drinks", Price: domain.Money{Amount: 550}, Available: true},
	}

	for _, p := range defaults {
		_, err := r.DB.Pool.Exec(ctx, `
			INSERT INTO products (name, category, price, available, created_at, updated_at)
			VALUES ($1,$2,$3,$4, now(), now())
			ON CONFLICT (name) DO NOTHING
		`, p.Name, p.Category, p.Price.Amount, p.Available)
		if err != nil {
			return err
		}
	}
	return nil
}

// SeedDefaults provisions tables 1..n with fresh claim tokens for any
// number not present yet.
func (r TableRepository) SeedDefaults(ctx context.Context, count int) error {
	for number := 1; number <= count; number++ {
		_, err := r.DB.Pool.Exec(ctx, `
			INSERT INTO tables (number, token, status, occupants, active, created_at, updated_at)
			VALUES ($1, $2, 'free', 0, true, now(), now())
			ON CONFLICT (number) DO NOTHING
		`, number, uuid.NewString())
		if err != nil {
			return err
		}
	}
	return nil
}

// SeedDefaults provisions the main cash register.
func (r RegisterRepository) SeedDefaults(ctx context.Context) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO cash_registers (name, status, current_balance, opening_balance, expected_balance, closing_balance, balance_difference, created_at, updated_at)
		VALUES ('main', 'closed', 0, 0, 0, 0, 0, now(), now())
		ON CONFLICT (name) DO NOTHING
	`)
	return err
}
