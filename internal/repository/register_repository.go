package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"restopos-backend/internal/db"
	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"

	"github.com/jackc/pgx/v5"
)

type RegisterRepository struct {
	DB *db.Postgres
}

const registerColumns = `id, name, status, current_operator_id, current_balance, opening_balance, expected_balance, closing_balance, balance_difference, opened_at, closed_at, created_at, updated_at`
const entryColumns = `id, register_id, type, amount, previous_balance, new_balance, description, destination, order_id, operator_id, created_at`

func (r RegisterRepository) Get(ctx context.Context, id int64) (*domain.CashRegister, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+registerColumns+` FROM cash_registers WHERE id=$1`, id)
	reg, err := scanRegister(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("register %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return reg, nil
}

// Open starts a register session. The open entry anchors the ledger:
// every balance after it is derivable by folding subsequent entries.
func (r RegisterRepository) Open(ctx context.Context, in ports.OpenRegisterParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	reg, err := lockRegister(ctx, tx, in.RegisterID)
	if err != nil {
		return nil, nil, err
	}
	if reg.Status == domain.RegisterOpen {
		return nil, nil, fmt.Errorf("register %d already open: %w", reg.ID, domain.ErrInvalidState)
	}

	entry, err := insertEntry(ctx, tx, entryParams{
		RegisterID:      reg.ID,
		Type:            domain.CashOpen,
		Amount:          in.OpeningBalance,
		PreviousBalance: domain.Money{},
		NewBalance:      in.OpeningBalance,
		Description:     "register opened",
		OperatorID:      &in.OperatorID,
	})
	if err != nil {
		return nil, nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE cash_registers
		SET status='open', current_operator_id=$1, current_balance=$2, opening_balance=$2,
		    expected_balance=$2, closing_balance=0, balance_difference=0,
		    opened_at=now(), closed_at=NULL, updated_at=now()
		WHERE id=$3
		RETURNING `+registerColumns+`
	`, in.OperatorID, in.OpeningBalance.Amount, reg.ID)
	reg, err = scanRegister(row)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return reg, entry, nil
}

// Post appends a deposit, withdraw or drain entry. The register row is
// locked first so the entry's previous balance always equals the
// register balance at write time.
func (r RegisterRepository) Post(ctx context.Context, in ports.PostEntryParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	reg, entry, err := postEntryTx(ctx, tx, in)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return reg, entry, nil
}

// postEntryTx is shared with the settlement transaction, which posts the
// sale deposit inside its own atomic unit.
func postEntryTx(ctx context.Context, tx pgx.Tx, in ports.PostEntryParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	reg, err := lockRegister(ctx, tx, in.RegisterID)
	if err != nil {
		return nil, nil, err
	}
	return postEntryLocked(ctx, tx, reg, in)
}

func postEntryLocked(ctx context.Context, tx pgx.Tx, reg *domain.CashRegister, in ports.PostEntryParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	if reg.Status != domain.RegisterOpen {
		return nil, nil, fmt.Errorf("register %d is closed: %w", reg.ID, domain.ErrInvalidState)
	}

	prev := reg.CurrentBalance
	var next int64
	switch in.Type {
	case domain.CashDeposit:
		next = prev.Amount + in.Amount.Amount
	case domain.CashWithdraw, domain.CashDrain:
		if in.Amount.Amount > prev.Amount {
			return nil, nil, &domain.InsufficientFundsError{Requested: in.Amount, Available: prev}
		}
		next = prev.Amount - in.Amount.Amount
	default:
		return nil, nil, fmt.Errorf("ledger type %s cannot be posted directly: %w", in.Type, domain.ErrInvalidInput)
	}

	entry, err := insertEntry(ctx, tx, entryParams{
		RegisterID:      reg.ID,
		Type:            in.Type,
		Amount:          in.Amount,
		PreviousBalance: prev,
		NewBalance:      domain.Money{Amount: next},
		Description:     in.Description,
		Destination:     in.Destination,
		OrderID:         in.OrderID,
		OperatorID:      in.OperatorID,
	})
	if err != nil {
		return nil, nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE cash_registers
		SET current_balance=$1, expected_balance=$1, updated_at=now()
		WHERE id=$2
		RETURNING `+registerColumns+`
	`, next, reg.ID)
	reg, err = scanRegister(row)
	if err != nil {
		return nil, nil, err
	}
	return reg, entry, nil
}

// Close ends the session. The counted/expected difference is recorded
// permanently on the register; it is never corrected away.
func (r RegisterRepository) Close(ctx context.Context, in ports.CloseRegisterParams) (*domain.CashRegister, *domain.CashTransaction, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	reg, err := lockRegister(ctx, tx, in.RegisterID)
	if err != nil {
		return nil, nil, err
	}
	if reg.Status != domain.RegisterOpen {
		return nil, nil, fmt.Errorf("register %d is not open: %w", reg.ID, domain.ErrInvalidState)
	}

	difference := in.CountedBalance.Amount - reg.ExpectedBalance.Amount

	breakdown, err := json.Marshal(in.PaymentBreakdown)
	if err != nil {
		return nil, nil, err
	}
	cashCount, err := json.Marshal(in.CashCount)
	if err != nil {
		return nil, nil, err
	}

	entry, err := insertEntry(ctx, tx, entryParams{
		RegisterID:      reg.ID,
		Type:            domain.CashClose,
		Amount:          in.CountedBalance,
		PreviousBalance: reg.CurrentBalance,
		NewBalance:      in.CountedBalance,
		Description:     in.Notes,
		OperatorID:      &in.OperatorID,
		PaymentBreak:    breakdown,
		CashCount:       cashCount,
	})
	if err != nil {
		return nil, nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE cash_registers
		SET status='closed', current_operator_id=NULL, closing_balance=$1,
		    balance_difference=$2, closed_at=now(), updated_at=now()
		WHERE id=$3
		RETURNING `+registerColumns+`
	`, in.CountedBalance.Amount, difference, reg.ID)
	reg, err = scanRegister(row)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return reg, entry, nil
}

func (r RegisterRepository) Ledger(ctx context.Context, registerID int64, limit int) ([]domain.CashTransaction, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+entryColumns+` FROM cash_transactions
		WHERE register_id=$1
		ORDER BY id DESC
		LIMIT $2
	`, registerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CashTransaction
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// RecalculateBalance refolds the ledger since the latest open entry and
// rewrites the cached balance. The ledger is the source of truth; the
// register fields are only a cache of this fold.
func (r RegisterRepository) RecalculateBalance(ctx context.Context, registerID int64) (*domain.CashRegister, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	reg, err := lockRegister(ctx, tx, registerID)
	if err != nil {
		return nil, err
	}
	if reg.Status != domain.RegisterOpen {
		return nil, fmt.Errorf("register %d is not open: %w", reg.ID, domain.ErrInvalidState)
	}

	rows, err := tx.Query(ctx, `
		SELECT `+entryColumns+` FROM cash_transactions
		WHERE register_id=$1
		  AND id > (SELECT COALESCE(MAX(id), 0) FROM cash_transactions WHERE register_id=$1 AND type='open')
		ORDER BY id ASC
	`, registerID)
	if err != nil {
		return nil, err
	}
	var entries []domain.CashTransaction
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, *e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	balance := domain.FoldLedger(reg.OpeningBalance, entries)
	row := tx.QueryRow(ctx, `
		UPDATE cash_registers
		SET current_balance=$1, expected_balance=$1, updated_at=now()
		WHERE id=$2
		RETURNING `+registerColumns+`
	`, balance.Amount, registerID)
	reg, err = scanRegister(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

// findOpenRegisterTx locks the operator's own open register if there is
// one, otherwise any open register.
func findOpenRegisterTx(ctx context.Context, tx pgx.Tx, operatorID int64) (*domain.CashRegister, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+registerColumns+` FROM cash_registers
		WHERE status='open' AND current_operator_id=$1
		ORDER BY id ASC LIMIT 1
		FOR UPDATE
	`, operatorID)
	reg, err := scanRegister(row)
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	row = tx.QueryRow(ctx, `
		SELECT ` + registerColumns + ` FROM cash_registers
		WHERE status='open'
		ORDER BY id ASC LIMIT 1
		FOR UPDATE
	`)
	reg, err = scanRegister(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoOpenRegister
		}
		return nil, err
	}
	return reg, nil
}

type entryParams struct {
	RegisterID      int64
	Type            domain.CashTxType
	Amount          domain.Money
	PreviousBalance domain.Money
	NewBalance      domain.Money
	Description     string
	Destination     string
	OrderID         *int64
	OperatorID      *int64
	PaymentBreak    []byte
	CashCount       []byte
}

func insertEntry(ctx context.Context, tx pgx.Tx, p entryParams) (*domain.CashTransaction, error) {
	if len(p.PaymentBreak) == 0 {
		p.PaymentBreak = []byte("null")
	}
	if len(p.CashCount) == 0 {
		p.CashCount = []byte("null")
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO cash_transactions
		(register_id, type, amount, previous_balance, new_balance, description, destination, order_id, operator_id, payment_breakdown, cash_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now())
		RETURNING `+entryColumns+`
	`, p.RegisterID, p.Type, p.Amount.Amount, p.PreviousBalance.Amount, p.NewBalance.Amount,
		p.Description, p.Destination, p.OrderID, p.OperatorID, p.PaymentBreak, p.CashCount)
	return scanEntry(row)
}

func lockRegister(ctx context.Context, tx pgx.Tx, id int64) (*domain.CashRegister, error) {
	row := tx.QueryRow(ctx, `SELECT `+registerColumns+` FROM cash_registers WHERE id=$1 FOR UPDATE`, id)
	reg, err := scanRegister(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("register %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return reg, nil
}

func scanRegister(row pgx.Row) (*domain.CashRegister, error) {
	var (
		reg    domain.CashRegister
		status string
	)
	if err := row.Scan(
		&reg.ID,
		&reg.Name,
		&status,
		&reg.CurrentOperatorID,
		&reg.CurrentBalance.Amount,
		&reg.OpeningBalance.Amount,
		&reg.ExpectedBalance.Amount,
		&reg.ClosingBalance.Amount,
		&reg.BalanceDifference.Amount,
		&reg.OpenedAt,
		&reg.ClosedAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reg.Status = domain.RegisterStatus(status)
	return &reg, nil
}

func scanEntry(row pgx.Row) (*domain.CashTransaction, error) {
	var (
		e   domain.CashTransaction
		typ string
	)
	if err := row.Scan(
		&e.ID,
		&e.RegisterID,
		&typ,
		&e.Amount.Amount,
		&e.PreviousBalance.Amount,
		&e.NewBalance.Amount,
		&e.Description,
		&e.Destination,
		&e.OrderID,
		&e.OperatorID,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Type = domain.CashTxType(typ)
	return &e, nil
}
