package handler

import (
	"net/http"
	"strconv"

	"restopos-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

// CatalogHandler exposes the read-only menu surface used by staff when
// taking orders.
type CatalogHandler struct {
	Repo     repository.ProductRepository
	Currency string
}

func (h CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog", h.list)
}

func (h CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.Repo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]map[string]any, 0, len(products))
	for _, p := range products {
		views = append(views, map[string]any{
			"id":        strconv.FormatInt(p.ID, 10),
			"name":      p.Name,
			"category":  p.Category,
			"price":     p.Price.Amount,
			"currency":  h.Currency,
			"available": p.Available,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
