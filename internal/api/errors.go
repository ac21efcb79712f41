package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/http/response"
	"github.com/retroarena/eventengine/internal/store"
)

// statusClientClosed is the nginx convention for a request the client gave up on.
const statusClientClosed = 499

// APIError is the huma.StatusError every handler failure becomes.
type APIError struct { //nolint:revive // mirrors the envelope name
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Field errors or extra context"`
}

func (e *APIError) Error() string { return e.Message }

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int { return e.status }

// ContentType implements huma.ContentTypeFilter.
func (e *APIError) ContentType(string) string { return "application/json" }

// RegisterErrorHandler routes every huma error through apiErrorFrom. It must
// run before routes are registered.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr, ok := apiErrorFrom(err); ok {
				return apiErr
			}
		}
		apiErr := &APIError{
			status:  status,
			Code:    response.CodeForStatus(status),
			Message: message,
		}
		if details := fieldDetails(errs); details != nil {
			apiErr.Details = details
		}
		return apiErr
	}
}

// apiErrorFrom translates errors the engine knows how to report. Anything
// else is left to huma's status and message.
func apiErrorFrom(err error) (*APIError, bool) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}, true
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) && storeErr.HTTPCode() < http.StatusInternalServerError {
		return &APIError{
			status:  storeErr.HTTPCode(),
			Code:    response.CodeForStatus(storeErr.HTTPCode()),
			Message: storeErr.Message,
		}, true
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &APIError{status: statusClientClosed, Code: "CANCELED", Message: "request canceled"}, true
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{status: http.StatusGatewayTimeout, Code: "TIMEOUT", Message: "request timed out"}, true
	}
	return nil, false
}

// fieldDetails keys huma's request validation failures by location, e.g.
// "body.name" or "query.available". Errors without a location are listed
// under "request".
func fieldDetails(errs []error) map[string]string {
	details := make(map[string]string)
	for _, err := range errs {
		if err == nil {
			continue
		}
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) && detail.Location != "" {
			details[detail.Location] = detail.Message
			continue
		}
		details["request"] = err.Error()
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
