package service

import (
	"context"
	"fmt"
	"log/slog"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/metrics"
	"restopos-backend/internal/ports"
)

// CashService owns cash register sessions and their append-only
// ledgers. The cached balance on a register is a fold over the ledger;
// RecalculateBalance repairs the cache from the entries.
type CashService struct {
	Registers ports.RegisterStore
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

func (s CashService) Get(ctx context.Context, registerID int64) (*domain.CashRegister, error) {
	return s.Registers.Get(ctx, registerID)
}

func (s CashService) Open(ctx context.Context, registerID, operatorID int64, openingBalance domain.Money) (*domain.CashRegister, error) {
	if openingBalance.Amount < 0 {
		return nil, fmt.Errorf("opening balance must be non-negative: %w", domain.ErrInvalidInput)
	}
	reg, entry, err := s.Registers.Open(ctx, ports.OpenRegisterParams{
		RegisterID:     registerID,
		OperatorID:     operatorID,
		OpeningBalance: openingBalance,
	})
	if err != nil {
		return nil, err
	}
	s.recordEntry(ctx, reg, entry)
	return reg, nil
}

func (s CashService) Deposit(ctx context.Context, registerID int64, amount domain.Money, description string, orderID *int64, operatorID int64) (*domain.CashRegister, *domain.CashTransaction, error) {
	return s.post(ctx, ports.PostEntryParams{
		RegisterID:  registerID,
		Type:        domain.CashDeposit,
		Amount:      amount,
		Description: description,
		OrderID:     orderID,
		OperatorID:  &operatorID,
	})
}

func (s CashService) Withdraw(ctx context.Context, registerID int64, amount domain.Money, description string, operatorID int64) (*domain.CashRegister, *domain.CashTransaction, error) {
	return s.post(ctx, ports.PostEntryParams{
		RegisterID:  registerID,
		Type:        domain.CashWithdraw,
		Amount:      amount,
		Description: description,
		OperatorID:  &operatorID,
	})
}

// Drain removes cash to a named sink (bank deposit, safe). It is a
// distinct ledger type so audits can separate it from ordinary
// withdrawals.
func (s CashService) Drain(ctx context.Context, registerID int64, amount domain.Money, destination string, operatorID int64) (*domain.CashRegister, *domain.CashTransaction, error) {
	if destination == "" {
		return nil, nil, fmt.Errorf("drain requires a destination: %w", domain.ErrInvalidInput)
	}
	return s.post(ctx, ports.PostEntryParams{
		RegisterID:  registerID,
		Type:        domain.CashDrain,
		Amount:      amount,
		Description: fmt.Sprintf("drain to %s", destination),
		Destination: destination,
		OperatorID:  &operatorID,
	})
}

func (s CashService) post(ctx context.Context, in ports.PostEntryParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	if in.Amount.Amount <= 0 {
		return nil, nil, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	reg, entry, err := s.Registers.Post(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	s.recordEntry(ctx, reg, entry)
	return reg, entry, nil
}

func (s CashService) CloseRegister(ctx context.Context, in ports.CloseRegisterParams) (*domain.CashRegister, error) {
	if in.CountedBalance.Amount < 0 {
		return nil, fmt.Errorf("counted balance must be non-negative: %w", domain.ErrInvalidInput)
	}
	reg, entry, err := s.Registers.Close(ctx, in)
	if err != nil {
		return nil, err
	}
	s.recordEntry(ctx, reg, entry)
	if s.Logger != nil && reg.BalanceDifference.Amount != 0 {
		s.Logger.Warn("register closed with balance difference",
			"register", reg.ID, "difference", reg.BalanceDifference.Amount)
	}
	return reg, nil
}

func (s CashService) Ledger(ctx context.Context, registerID int64, limit int) ([]domain.CashTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	return s.Registers.Ledger(ctx, registerID, limit)
}

func (s CashService) RecalculateBalance(ctx context.Context, registerID int64) (*domain.CashRegister, error) {
	return s.Registers.RecalculateBalance(ctx, registerID)
}

func (s CashService) recordEntry(ctx context.Context, reg *domain.CashRegister, entry *domain.CashTransaction) {
	if entry != nil {
		metrics.LedgerEntriesTotal.WithLabelValues(string(entry.Type)).Inc()
	}
	if s.Notifier == nil || reg == nil {
		return
	}
	if err := s.Notifier.CashRegisterUpdated(ctx, reg.ID); err != nil && s.Logger != nil {
		s.Logger.Warn("register event not published", "register", reg.ID, "err", err)
	}
}
