package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Every error body has the same shape:
//   {"error": "Invalid credentials"}
//
// Two error writers exist because the two resource groups report server
// failures differently:
//   writeError     → account routes; a 500 says only "Server error"
//   writeItemError → item routes; a 500 carries the error text

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/secondchance/internal/apperror"
)

// ErrorResponse is the error format returned by all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to its HTTP status code.
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer should not know about HTTP status codes. errors.Is walks
// the whole chain, so a service error wrapped with fmt.Errorf("...: %w")
// still matches its sentinel:
//
//	service returns: fmt.Errorf("updating item: %w", apperror.NotFound("Item"))
//	errors.Is walks: outer error → AppError → ErrNotFound ✓ match!
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrDuplicateEmail),
		errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the AppError message when there is one.
func clientMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// writeError sends an account-flow error.
//
// NEVER expose internal error details from these routes: the raw error might
// contain queries, file paths or driver messages. A 500 is always generic.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeJSON(w, status, ErrorResponse{Error: "Server error"})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: clientMessage(err)})
}

// writeItemError sends an item-flow error. Unlike writeError, a 500 reports
// the error text as-is.
func writeItemError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeJSON(w, status, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: clientMessage(err)})
}
