package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"restopos-backend/internal/domain"
)

type apiError struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
}

type apiResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Error   *apiError `json:"error,omitempty"`
}

func writeRawJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if status >= 400 {
		writeRawJSON(w, status, apiResponse{
			Status:  "error",
			Message: "",
			Data:    payload,
			Error: &apiError{
				Code:   status,
				Status: http.StatusText(status),
			},
		})
		return
	}
	writeRawJSON(w, status, apiResponse{
		Status:  "ok",
		Message: "",
		Data:    payload,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	writeRawJSON(w, status, apiResponse{
		Status:  "error",
		Message: message,
		Data:    nil,
		Error: &apiError{
			Code:   status,
			Status: http.StatusText(status),
		},
	})
}

// writeDomainError maps the typed failure kinds to HTTP responses.
// PendingItems and InsufficientFunds carry their blocking data; Conflict
// tells the caller to re-fetch instead of retrying the same write.
func writeDomainError(w http.ResponseWriter, err error) {
	var pending *domain.PendingItemsError
	if errors.As(err, &pending) {
		writeRawJSON(w, http.StatusConflict, apiResponse{
			Status:  "error",
			Message: pending.Error(),
			Data:    map[string]any{"kind": "pending_items", "items": toItemViews(pending.Items)},
			Error:   &apiError{Code: http.StatusConflict, Status: http.StatusText(http.StatusConflict)},
		})
		return
	}
	var funds *domain.InsufficientFundsError
	if errors.As(err, &funds) {
		writeRawJSON(w, http.StatusUnprocessableEntity, apiResponse{
			Status:  "error",
			Message: funds.Error(),
			Data: map[string]any{
				"kind":      "insufficient_funds",
				"requested": funds.Requested.Amount,
				"available": funds.Available.Amount,
			},
			Error: &apiError{Code: http.StatusUnprocessableEntity, Status: http.StatusText(http.StatusUnprocessableEntity)},
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrNoOpenRegister):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeRawJSON(w, http.StatusConflict, apiResponse{
			Status:  "error",
			Message: err.Error(),
			Data:    map[string]any{"kind": "conflict", "retry": "re-fetch the current order"},
			Error:   &apiError{Code: http.StatusConflict, Status: http.StatusText(http.StatusConflict)},
		})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
