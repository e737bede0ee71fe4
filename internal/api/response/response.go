// Package response writes the JSON envelopes shared by every handler.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/catalog"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/facade"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`

	// Partial is set when one half of a purchase or sale was applied.
	Partial bool `json:"partial,omitempty"`
}

// SuccessResponse represents a successful API response with data.
type SuccessResponse struct {
	Data any `json:"data"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, err error) {
	JSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
		Partial: facade.IsPartialFailure(err),
	})
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, err)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, err error) {
	Error(w, http.StatusNotFound, err)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, err error) {
	Error(w, http.StatusInternalServerError, err)
}

// FromError writes err with the status its cause maps to.
func FromError(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

// StatusFor maps a facade error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, facade.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, facade.ErrNotFound), errors.Is(err, collection.ErrCardNotOwned):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyClaimedToday):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrDataUnavailable), errors.Is(err, booster.ErrEmptyPool):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
