package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"perfdash/internal/domain/apperr"
)

type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// Classify maps a domain error to its status, code and client message.
// Unknown errors are internal and their text is not exposed.
func Classify(err error) (int, *Error) {
	if verr, ok := apperr.IsValidation(err); ok {
		return http.StatusBadRequest, &Error{Code: "validation_error", Message: "payload validation failed", Details: map[string]any{"fields": verr.Issues}}
	}
	if ext, ok := apperr.IsExternal(err); ok {
		return http.StatusBadGateway, &Error{Code: "external_service_error", Message: ext.Service + " is unavailable, try again later", Retryable: ext.Retryable()}
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, &Error{Code: "not_found", Message: "resource not found"}
	case errors.Is(err, apperr.ErrPermission):
		return http.StatusForbidden, &Error{Code: "forbidden", Message: "not allowed for your role"}
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict, &Error{Code: "invalid_transition", Message: "the record no longer accepts this change"}
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, &Error{Code: "conflict", Message: "the record conflicts with an existing one"}
	}
	return http.StatusInternalServerError, &Error{Code: "internal_error", Message: "internal error"}
}

// FailError writes the envelope for a domain error.
func FailError(w http.ResponseWriter, err error, requestID string) {
	status, body := Classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "request_id", requestID, "err", err)
	}
	WriteJSON(w, status, Envelope{Success: false, Error: body, RequestID: requestID})
}
