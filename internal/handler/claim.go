package handler

import (
	"encoding/json"
	"net/http"

	"restopos-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

// ClaimHandler is the public self-service surface: a customer scans the
// token at their table and claims it for a new order.
type ClaimHandler struct {
	Tables service.TableService
}

func (h ClaimHandler) RegisterRoutes(r chi.Router) {
	r.Post("/claim/{token}", h.claim)
}

func (h ClaimHandler) claim(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req struct {
		CustomerID int64  `json:"customerId"`
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	order, err := h.Tables.Claim(r.Context(), token, req.CustomerID, req.Credential)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}
