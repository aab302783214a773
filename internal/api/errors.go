// ABOUTME: Application error taxonomy and HTTP status mapping
// ABOUTME: Every handler failure flows through an AppError into a JSON error body

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cergworks/cergdb/internal/store"
)

// AppError is a handler failure carrying the HTTP status and client-facing
// message for the response. The underlying cause, if any, is logged but
// never sent to the client.
type AppError struct {
	Status  int
	Message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.cause }

// Error constructors covering every failure the API can report. The
// messages are part of the wire contract; clients match on them.
func errMissingCredential() *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: "missing credential"}
}

func errWrongCredential() *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: "wrong credentials"}
}

// errUserDoesNotExist shares a 401 status with errWrongCredential so the two
// are indistinguishable at the transport level, but stays a distinct kind in
// logs.
func errUserDoesNotExist() *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: "User does not exist"}
}

func errUserAlreadyExists() *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: "User already exists"}
}

func errAuthentication(msg string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: "Authentication error: " + msg}
}

func errIDNotFound(id string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: fmt.Sprintf("id %q not found", id)}
}

func errIDExists(id string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: fmt.Sprintf("id %q already exists", id)}
}

func errInvalidRequest(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: msg}
}

func errTokenCreation(cause error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: "failed to create token", cause: cause}
}

func errInternal(cause error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: "an internal server error occurred", cause: cause}
}

// mapStoreError translates store sentinel errors into their AppError
// equivalents; anything else is an internal error.
func mapStoreError(err error) *AppError {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return errUserDoesNotExist()
	case errors.Is(err, store.ErrUserExists):
		return errUserAlreadyExists()
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Status: http.StatusRequestTimeout, Message: "request timed out", cause: err}
	default:
		return errInternal(err)
	}
}

// writeError logs the failure and writes the JSON error body. Internal
// causes are logged at error level; client mistakes at warn.
func writeError(w http.ResponseWriter, logger *slog.Logger, appErr *AppError) {
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", appErr.Status, "error", appErr.Error())
	} else {
		logger.Warn("request rejected", "status", appErr.Status, "message", appErr.Message)
	}

	writeJSON(w, appErr.Status, map[string]string{"error": appErr.Message})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
