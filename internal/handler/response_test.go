package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"restopos-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDomainErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("table 9: %w", domain.ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("qty: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{"invalid state", fmt.Errorf("closed: %w", domain.ErrInvalidState), http.StatusUnprocessableEntity},
		{"no open register", domain.ErrNoOpenRegister, http.StatusUnprocessableEntity},
		{"conflict", fmt.Errorf("claimed: %w", domain.ErrConflict), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, c.err)
			assert.Equal(t, c.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteDomainErrorPendingItems(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, &domain.PendingItemsError{Items: []domain.OrderItem{
		{ID: 3, Name: "Carbonara", Quantity: 1, Status: domain.ItemPreparing},
		{ID: 4, Name: "Espresso", Quantity: 2, Status: domain.ItemPending},
	}})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body.Data.(map[string]any)
	assert.Equal(t, "pending_items", data["kind"])
	items := data["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "Carbonara", first["name"])
	assert.Equal(t, "preparing", first["status"])
}

func TestWriteDomainErrorInsufficientFunds(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, &domain.InsufficientFundsError{
		Requested: domain.Money{Amount: 5000},
		Available: domain.Money{Amount: 1000},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body.Data.(map[string]any)
	assert.Equal(t, "insufficient_funds", data["kind"])
	assert.Equal(t, float64(5000), data["requested"])
	assert.Equal(t, float64(1000), data["available"])
}

func TestWriteDomainErrorConflictHint(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, fmt.Errorf("table 2 already has an order: %w", domain.ErrConflict))

	var body apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body.Data.(map[string]any)
	assert.Equal(t, "conflict", data["kind"])
	assert.NotEmpty(t, data["retry"])
}
