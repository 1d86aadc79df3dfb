package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"restopos-backend/internal/server/authctx"
	"restopos-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type TableHandler struct {
	Tables     service.TableService
	Settlement service.SettlementService
}

func (h TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.list)
	r.Post("/tables/{id}/open", h.open)
	r.Post("/tables/{id}/request-bill", h.requestBill)
	r.Post("/tables/{id}/transfer", h.transfer)
	r.Post("/tables/{id}/close", h.close)
}

// RegisterAdminRoutes holds provisioning endpoints (manager/admin).
func (h TableHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/tables", h.create)
	r.Delete("/tables/{id}", h.deactivate)
}

func (h TableHandler) list(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Tables.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(tables))
	for i := range tables {
		views = append(views, toTableView(&tables[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h TableHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number int `json:"number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	table, err := h.Tables.Create(r.Context(), req.Number)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableView(table))
}

func (h TableHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Tables.Deactivate(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h TableHandler) open(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Occupants int `json:"occupants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}
	table, order, err := h.Tables.Open(r.Context(), id, user.ID, req.Occupants)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table": toTableView(table),
		"order": toOrderView(order),
	})
}

func (h TableHandler) requestBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	table, err := h.Tables.RequestBill(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableView(table))
}

func (h TableHandler) transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		TargetID int64 `json:"targetId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.Tables.Transfer(r.Context(), id, req.TargetID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (h TableHandler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}
	res, err := h.Settlement.CloseTable(r.Context(), id, req.PaymentMethod, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":    toTableView(res.Table),
		"order":    toOrderView(res.Order),
		"register": toRegisterView(res.Register),
		"entry":    toEntryView(res.Entry),
	})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
