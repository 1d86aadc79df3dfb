package handler

import (
	"strconv"
	"time"

	"restopos-backend/internal/domain"
)

func toTableView(t *domain.Table) map[string]any {
	return map[string]any{
		"id":             strconv.FormatInt(t.ID, 10),
		"number":         t.Number,
		"status":         string(t.Status),
		"occupants":      t.Occupants,
		"openTime":       formatTime(t.OpenTime),
		"waiterId":       t.WaiterID,
		"currentOrderId": t.CurrentOrderID,
		"active":         t.Active,
	}
}

func toOrderView(o *domain.Order) map[string]any {
	return map[string]any{
		"id":            strconv.FormatInt(o.ID, 10),
		"code":          o.Code,
		"tableId":       o.TableID,
		"type":          string(o.Type),
		"status":        string(o.Status),
		"total":         o.Total.Amount,
		"discount":      o.Discount.Amount,
		"serviceCharge": o.ServiceCharge.Amount,
		"paymentMethod": o.PaymentMethod,
		"paymentStatus": string(o.PaymentStatus),
		"customerId":    o.CustomerID,
		"closedAt":      formatTime(o.ClosedAt),
		"items":         toItemViews(o.Items),
	}
}

func toItemViews(items []domain.OrderItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"id":        strconv.FormatInt(it.ID, 10),
			"productId": it.ProductID,
			"name":      it.Name,
			"quantity":  it.Quantity,
			"unitPrice": it.UnitPrice.Amount,
			"status":    string(it.Status),
			"notes":     it.Notes,
		})
	}
	return out
}

func toRegisterView(reg *domain.CashRegister) map[string]any {
	return map[string]any{
		"id":                strconv.FormatInt(reg.ID, 10),
		"name":              reg.Name,
		"status":            string(reg.Status),
		"currentOperatorId": reg.CurrentOperatorID,
		"currentBalance":    reg.CurrentBalance.Amount,
		"openingBalance":    reg.OpeningBalance.Amount,
		"expectedBalance":   reg.ExpectedBalance.Amount,
		"closingBalance":    reg.ClosingBalance.Amount,
		"balanceDifference": reg.BalanceDifference.Amount,
		"openedAt":          formatTime(reg.OpenedAt),
		"closedAt":          formatTime(reg.ClosedAt),
	}
}

func toEntryView(e *domain.CashTransaction) map[string]any {
	return map[string]any{
		"id":              strconv.FormatInt(e.ID, 10),
		"registerId":      e.RegisterID,
		"type":            string(e.Type),
		"amount":          e.Amount.Amount,
		"previousBalance": e.PreviousBalance.Amount,
		"newBalance":      e.NewBalance.Amount,
		"description":     e.Description,
		"destination":     e.Destination,
		"orderId":         e.OrderID,
		"createdAt":       e.CreatedAt.Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
