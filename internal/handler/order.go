package handler

import (
	"encoding/json"
	"net/http"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	Orders service.OrderService
}

func (h OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/{id}", h.get)
	r.Post("/orders/{id}/items", h.addItem)
	r.Delete("/orders/{id}/items/{itemID}", h.removeItem)
	r.Put("/orders/{id}/items/{itemID}/status", h.updateItemStatus)
	r.Post("/orders/{id}/recalculate", h.recalculate)
}

// RegisterManagerRoutes holds the approval paths (manager/admin).
func (h OrderHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/orders/{id}/items/{itemID}/cancel", h.cancelItem)
	r.Put("/orders/{id}/charges", h.setCharges)
}

func (h OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (h OrderHandler) addItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		ProductID int64  `json:"productId"`
		Quantity  int    `json:"quantity"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	item, order, err := h.Orders.AddItem(r.Context(), id, req.ProductID, req.Quantity, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"item":  toItemViews([]domain.OrderItem{*item})[0],
		"order": toOrderView(order),
	})
}

func (h OrderHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	order, err := h.Orders.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (h OrderHandler) cancelItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	order, err := h.Orders.CancelItem(r.Context(), id, itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (h OrderHandler) updateItemStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	item, err := h.Orders.UpdateItemStatus(r.Context(), id, itemID, domain.ItemStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemViews([]domain.OrderItem{*item})[0])
}

func (h OrderHandler) setCharges(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Discount      int64 `json:"discount"`
		ServiceCharge int64 `json:"serviceCharge"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	order, err := h.Orders.SetCharges(r.Context(), id,
		domain.Money{Amount: req.Discount}, domain.Money{Amount: req.ServiceCharge})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (h OrderHandler) recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.Orders.RecalculateTotal(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}
