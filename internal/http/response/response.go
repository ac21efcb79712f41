// Package response writes the versioned JSON envelope for handlers that sit
// outside huma, such as multipart uploads and middleware rejections.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/store"
)

// Version is the envelope format version carried in every response.
const Version = 1

// Envelope wraps successful bodies, and plain errors in Error.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorEnvelope wraps coded errors. Success is always false.
type ErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Created writes data as a 201 envelope.
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// JSON writes data in an envelope; Success follows the status class.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	encode(w, status, Envelope{Version: Version, Success: status < http.StatusBadRequest, Data: data}, logger)
}

// Coded writes an error envelope with an explicit code.
func Coded(w http.ResponseWriter, status int, code, message string, details any, logger *slog.Logger) {
	encode(w, status, ErrorEnvelope{Version: Version, Code: code, Message: message, Details: details}, logger)
}

// BadRequest writes a 400 validation error.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	status(w, http.StatusBadRequest, message, logger)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	status(w, http.StatusUnauthorized, message, logger)
}

// TooManyRequests writes a 429. Callers set Retry-After themselves.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	status(w, http.StatusTooManyRequests, message, logger)
}

// InternalError writes a 500.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	status(w, http.StatusInternalServerError, message, logger)
}

// HandleError writes whatever err maps to: domain errors keep their code and
// details, store errors their status, and anything else is a logged 500 with
// a generic message.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	var storeErr *store.Error
	switch {
	case errors.As(err, &domainErr):
		code := domainErr.HTTPStatus()
		if code >= http.StatusInternalServerError {
			logError(logger, "Request failed", "code", domainErr.Code, "error", err)
		}
		Coded(w, code, string(domainErr.Code), domainErr.Message, domainErr.Details, logger)
	case errors.As(err, &storeErr):
		status(w, storeErr.HTTPCode(), storeErr.Message, logger)
	default:
		logError(logger, "Unhandled error", "error", err)
		InternalError(w, "internal server error", logger)
	}
}

// CodeForStatus names the ambient error code closest to an HTTP status.
func CodeForStatus(status int) string {
	var c domainerrors.Code
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		c = domainerrors.CodeValidation
	case http.StatusUnauthorized:
		c = domainerrors.CodeUnauthorized
	case http.StatusForbidden:
		c = domainerrors.CodeForbidden
	case http.StatusNotFound:
		c = domainerrors.CodeNotFound
	case http.StatusConflict:
		c = domainerrors.CodeConflict
	case http.StatusRequestEntityTooLarge:
		c = domainerrors.CodeFileTooLarge
	case http.StatusTooManyRequests:
		c = domainerrors.CodeRateLimited
	default:
		c = domainerrors.CodeInternal
	}
	return string(c)
}

func status(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	Coded(w, code, CodeForStatus(code), message, nil, logger)
}

func encode(w http.ResponseWriter, code int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logError(logger, "Failed to encode JSON response", "error", err)
	}
}

func logError(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}
