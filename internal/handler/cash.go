package handler

import (
	"encoding/json"
	"net/http"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/ports"
	"restopos-backend/internal/server/authctx"
	"restopos-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type CashHandler struct {
	Cash service.CashService
}

func (h CashHandler) RegisterRoutes(r chi.Router) {
	r.Get("/registers/{id}", h.get)
	r.Get("/registers/{id}/ledger", h.ledger)
	r.Post("/registers/{id}/open", h.open)
	r.Post("/registers/{id}/deposit", h.deposit)
	r.Post("/registers/{id}/withdraw", h.withdraw)
	r.Post("/registers/{id}/drain", h.drain)
	r.Post("/registers/{id}/close", h.close)
}

// RegisterManagerRoutes holds the reconciliation repair endpoint.
func (h CashHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/registers/{id}/recalculate", h.recalculate)
}

func (h CashHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reg, err := h.Cash.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegisterView(reg))
}

func (h CashHandler) ledger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.Cash.Ledger(r.Context(), id, 200)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(entries))
	for i := range entries {
		views = append(views, toEntryView(&entries[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h CashHandler) open(w http.ResponseWriter, r *http.Request) {
	id, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	var req struct {
		OpeningBalance int64 `json:"openingBalance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	reg, err := h.Cash.Open(r.Context(), id, user.ID, domain.Money{Amount: req.OpeningBalance})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegisterView(reg))
}

func (h CashHandler) deposit(w http.ResponseWriter, r *http.Request) {
	id, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	reg, entry, err := h.Cash.Deposit(r.Context(), id, domain.Money{Amount: req.Amount}, req.Description, nil, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"register": toRegisterView(reg),
		"entry":    toEntryView(entry),
	})
}

func (h CashHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	id, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	reg, entry, err := h.Cash.Withdraw(r.Context(), id, domain.Money{Amount: req.Amount}, req.Description, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"register": toRegisterView(reg),
		"entry":    toEntryView(entry),
	})
}

func (h CashHandler) drain(w http.ResponseWriter, r *http.Request) {
	id, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount      int64  `json:"amount"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	reg, entry, err := h.Cash.Drain(r.Context(), id, domain.Money{Amount: req.Amount}, req.Destination, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"register": toRegisterView(reg),
		"entry":    toEntryView(entry),
	})
}

func (h CashHandler) close(w http.ResponseWriter, r *http.Request) {
	id, user, ok := h.operator(w, r)
	if !ok {
		return
	}
	var req struct {
		CountedBalance   int64            `json:"countedBalance"`
		PaymentBreakdown map[string]int64 `json:"paymentBreakdown"`
		CashCount        map[string]int   `json:"cashCount"`
		Notes            string           `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	reg, err := h.Cash.CloseRegister(r.Context(), ports.CloseRegisterParams{
		RegisterID:       id,
		OperatorID:       user.ID,
		CountedBalance:   domain.Money{Amount: req.CountedBalance},
		PaymentBreakdown: req.PaymentBreakdown,
		CashCount:        req.CashCount,
		Notes:            req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegisterView(reg))
}

func (h CashHandler) recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reg, err := h.Cash.RecalculateBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRegisterView(reg))
}

func (h CashHandler) operator(w http.ResponseWriter, r *http.Request) (int64, *authctx.CurrentUser, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return 0, nil, false
	}
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "missing user")
		return 0, nil, false
	}
	return id, user, true
}
