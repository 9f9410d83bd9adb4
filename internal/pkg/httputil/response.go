package httputil

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ignite/survey-integrity-scorer/internal/domain"
)

// ErrorResponse is the standard error envelope for all API errors
// (spec §6.1/§7): a single human-readable detail string, no nested
// error object.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically. If encoding fails,
// a 500 error is written instead.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[httputil] JSON encode error: %v", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response with the given data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a JSON error response. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorResponse{Detail: detail})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, detail string) {
	Error(w, http.StatusBadRequest, detail)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, detail string) {
	Error(w, http.StatusNotFound, detail)
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client (never leak internals).
func InternalError(w http.ResponseWriter, err error) {
	log.Printf("[httputil] internal error: %v", err)
	Error(w, http.StatusInternalServerError, "internal server error")
}

// DomainError maps a *domain.Error's Kind to the HTTP status §6.1/§7
// assigns it and writes the single-detail-string envelope. Any other
// error is treated as an unexpected internal failure.
func DomainError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		InternalError(w, err)
		return
	}
	switch derr.Kind {
	case domain.KindValidationFailed, domain.KindCapExceeded:
		Error(w, http.StatusBadRequest, derr.Message)
	case domain.KindSessionNotFound, domain.KindHierarchyNotFound:
		Error(w, http.StatusNotFound, derr.Message)
	case domain.KindConflict:
		Error(w, http.StatusConflict, derr.Message)
	case domain.KindClassifierUnavailable, domain.KindFraudComponentUnavailable:
		Error(w, http.StatusServiceUnavailable, derr.Message)
	default:
		InternalError(w, derr)
	}
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
