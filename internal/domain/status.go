package domain

// itemFlow is the forward-only progression of an order item. Canceling
// is allowed only from pending; there are no regressions.
var itemFlow = map[ItemStatus][]ItemStatus{
	ItemPending:   {ItemPreparing, ItemReady, ItemDelivered, ItemCanceled},
	ItemPreparing: {ItemReady, ItemDelivered},
	ItemReady:     {ItemDelivered},
	ItemDelivered: {},
	ItemCanceled:  {},
}

// CanTransition reports whether an item may move from s to next.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	for _, allowed := range itemFlow[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Locked reports whether the item row is frozen: once preparation has
// started the quantity, price and product may no longer change.
func (i OrderItem) Locked() bool {
	return i.Status != ItemPending
}

// Undelivered reports whether the item blocks settlement of its table.
func (i OrderItem) Undelivered() bool {
	switch i.Status {
	case ItemPending, ItemPreparing, ItemReady:
		return true
	}
	return false
}

// ComputeTotal folds the live item set into an order total. Canceled
// items are excluded; the result is floored at zero.
func ComputeTotal(items []OrderItem, discount, serviceCharge Money) Money {
	var sum int64
	for _, it := range items {
		if it.Status == ItemCanceled {
			continue
		}
		sum += it.UnitPrice.Amount * int64(it.Quantity)
	}
	total := sum - discount.Amount + serviceCharge.Amount
	if total < 0 {
		total = 0
	}
	return Money{Amount: total}
}

// SignedAmount is the effect of a ledger entry on the register balance.
// Open and close entries carry the balance in their snapshots and have
// no signed effect of their own.
func (t CashTransaction) SignedAmount() int64 {
	switch t.Type {
	case CashDeposit:
		return t.Amount.Amount
	case CashWithdraw, CashDrain:
		return -t.Amount.Amount
	}
	return 0
}

// FoldLedger replays ledger entries over an opening balance. The cached
// CurrentBalance on a register must always equal this fold; it is the
// reconciliation primitive.
func FoldLedger(opening Money, entries []CashTransaction) Money {
	balance := opening.Amount
	for _, e := range entries {
		balance += e.SignedAmount()
	}
	return Money{Amount: balance}
}

// Blockers returns the items that keep a table from being closed.
func Blockers(items []OrderItem) []OrderItem {
	var out []OrderItem
	for _, it := range items {
		if it.Undelivered() {
			out = append(out, it)
		}
	}
	return out
}
