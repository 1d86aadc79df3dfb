package domain

import (
	"errors"
	"fmt"
)

// Sentinel failure kinds. Operations wrap these with context so callers
// can branch with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidState   = errors.New("invalid state")
	ErrNoOpenRegister = errors.New("no open cash register")
	ErrConflict       = errors.New("conflict")
)

// InsufficientFundsError is returned when a withdrawal or drain exceeds
// the register's current balance.
type InsufficientFundsError struct {
	Requested Money
	Available Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d, available %d", e.Requested.Amount, e.Available.Amount)
}

// PendingItemsError blocks settlement while the table still has
// undelivered items. Items holds the blockers so the caller can resolve
// them.
type PendingItemsError struct {
	Items []OrderItem
}

func (e *PendingItemsError) Error() string {
	return fmt.Sprintf("order has %d undelivered items", len(e.Items))
}
