// Package errors defines the coded errors the engine reports to callers.
//
// Services return them directly; every constructed error matches its sentinel
// under errors.Is because matching is by Code:
//
//	if errors.Is(err, errors.ErrTeamFull) {
//	    // offer another team
//	}
//
// HTTP handlers map the Code to a status with HTTPStatus.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Is is errors.Is, so callers need not import both packages.
var Is = errors.Is

// Code represents a machine-readable error code.
type Code string

// Engine error codes.
const (
	CodeEventNotFound          Code = "EVENT_NOT_FOUND"
	CodeEventNotActive         Code = "EVENT_NOT_ACTIVE"
	CodeAlreadyParticipating   Code = "ALREADY_PARTICIPATING"
	CodeNotParticipating       Code = "NOT_PARTICIPATING"
	CodeEventNotTeamEnabled    Code = "EVENT_NOT_TEAM_ENABLED"
	CodeDuplicateTeamName      Code = "DUPLICATE_TEAM_NAME"
	CodeAlreadyOnTeam          Code = "ALREADY_ON_TEAM"
	CodeTeamFull               Code = "TEAM_FULL"
	CodeTeamNotFound           Code = "TEAM_NOT_FOUND"
	CodeNotAMember             Code = "NOT_A_MEMBER"
	CodeMissingRequiredField   Code = "MISSING_REQUIRED_FIELD"
	CodeFileTooLarge           Code = "FILE_TOO_LARGE"
	CodeUnsupportedMediaType   Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeSubmissionLimitReached Code = "SUBMISSION_LIMIT_REACHED"
	CodeSubmissionNotFound     Code = "SUBMISSION_NOT_FOUND"
	CodeNotOwner               Code = "NOT_OWNER"
	CodeCollaboratorFailure    Code = "COLLABORATOR_FAILURE"
)

// Ambient error codes.
const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeValidation   Code = "VALIDATION"
	CodeConflict     Code = "CONFLICT"
	CodeInternal     Code = "INTERNAL"
	CodeRateLimited  Code = "RATE_LIMITED"
)

var statusByCode = map[Code]int{
	CodeNotFound:           http.StatusNotFound,
	CodeEventNotFound:      http.StatusNotFound,
	CodeTeamNotFound:       http.StatusNotFound,
	CodeSubmissionNotFound: http.StatusNotFound,

	CodeConflict:               http.StatusConflict,
	CodeEventNotActive:         http.StatusConflict,
	CodeAlreadyParticipating:   http.StatusConflict,
	CodeNotParticipating:       http.StatusConflict,
	CodeEventNotTeamEnabled:    http.StatusConflict,
	CodeDuplicateTeamName:      http.StatusConflict,
	CodeAlreadyOnTeam:          http.StatusConflict,
	CodeTeamFull:               http.StatusConflict,
	CodeNotAMember:             http.StatusConflict,
	CodeSubmissionLimitReached: http.StatusConflict,

	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeNotOwner:     http.StatusForbidden,
	CodeRateLimited:  http.StatusTooManyRequests,

	CodeValidation:           http.StatusBadRequest,
	CodeMissingRequiredField: http.StatusBadRequest,
	CodeFileTooLarge:         http.StatusRequestEntityTooLarge,
	CodeUnsupportedMediaType: http.StatusUnsupportedMediaType,
	CodeCollaboratorFailure:  http.StatusBadGateway,
}

// HTTPStatus maps c to a response status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error carries a Code, a message for humans and optional structured details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same Code, whatever its message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus is e.Code.HTTPStatus().
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// GetStatus implements huma.StatusError so handlers can return e as is.
func (e *Error) GetStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Sentinels for errors.Is. Their messages are generic; constructors below
// name the offending id.
var (
	ErrEventNotFound          = &Error{Code: CodeEventNotFound, Message: "event not found"}
	ErrEventNotActive         = &Error{Code: CodeEventNotActive, Message: "event is not active"}
	ErrAlreadyParticipating   = &Error{Code: CodeAlreadyParticipating, Message: "already participating in event"}
	ErrNotParticipating       = &Error{Code: CodeNotParticipating, Message: "not participating in event"}
	ErrEventNotTeamEnabled    = &Error{Code: CodeEventNotTeamEnabled, Message: "event does not allow teams"}
	ErrDuplicateTeamName      = &Error{Code: CodeDuplicateTeamName, Message: "team name already taken"}
	ErrAlreadyOnTeam          = &Error{Code: CodeAlreadyOnTeam, Message: "already on a team for this event"}
	ErrTeamFull               = &Error{Code: CodeTeamFull, Message: "team is full"}
	ErrTeamNotFound           = &Error{Code: CodeTeamNotFound, Message: "team not found"}
	ErrNotAMember             = &Error{Code: CodeNotAMember, Message: "not a member of this team"}
	ErrMissingRequiredField   = &Error{Code: CodeMissingRequiredField, Message: "missing required field"}
	ErrFileTooLarge           = &Error{Code: CodeFileTooLarge, Message: "file too large"}
	ErrUnsupportedMediaType   = &Error{Code: CodeUnsupportedMediaType, Message: "unsupported media type"}
	ErrSubmissionLimitReached = &Error{Code: CodeSubmissionLimitReached, Message: "maximum submissions reached"}
	ErrSubmissionNotFound     = &Error{Code: CodeSubmissionNotFound, Message: "submission not found"}
	ErrNotOwner               = &Error{Code: CodeNotOwner, Message: "only the owner may do this"}
	ErrCollaboratorFailure    = &Error{Code: CodeCollaboratorFailure, Message: "collaborator failure"}

	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict     = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal     = &Error{Code: CodeInternal, Message: "internal error"}
)

// EventNotFound creates an event not found error for id.
func EventNotFound(eventID string) *Error {
	return &Error{Code: CodeEventNotFound, Message: fmt.Sprintf("event %s not found", eventID)}
}

// EventNotActive creates an event not active error for id.
func EventNotActive(eventID string) *Error {
	return &Error{Code: CodeEventNotActive, Message: fmt.Sprintf("event %s is not active", eventID)}
}

// TeamNotFound creates a team not found error for id.
func TeamNotFound(teamID string) *Error {
	return &Error{Code: CodeTeamNotFound, Message: fmt.Sprintf("team %s not found", teamID)}
}

// SubmissionNotFound creates a submission not found error for id.
func SubmissionNotFound(submissionID string) *Error {
	return &Error{Code: CodeSubmissionNotFound, Message: fmt.Sprintf("submission %s not found", submissionID)}
}

// MissingRequiredField names the absent field in both the message and the details.
func MissingRequiredField(field string) *Error {
	return &Error{
		Code:    CodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
		Details: map[string]string{"field": field},
	}
}

// FileTooLarge reports the offending size against the limit.
func FileTooLarge(size, limit int64) *Error {
	return &Error{
		Code:    CodeFileTooLarge,
		Message: fmt.Sprintf("file is %d bytes, limit is %d bytes", size, limit),
		Details: map[string]int64{"size": size, "limit": limit},
	}
}

// UnsupportedMediaType reports the rejected content type.
func UnsupportedMediaType(contentType string) *Error {
	return &Error{
		Code:    CodeUnsupportedMediaType,
		Message: fmt.Sprintf("media type %q is not a supported photo or video type", contentType),
		Details: map[string]string{"content_type": contentType},
	}
}

// CollaboratorFailure wraps an unexpected failure from an external collaborator.
func CollaboratorFailure(collaborator string, err error) *Error {
	return &Error{
		Code:    CodeCollaboratorFailure,
		Message: collaborator + " failed",
		cause:   err,
	}
}

// Forbidden reports an action the caller's role does not allow.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validationf reports malformed input with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails reports malformed input with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal reports a failure the caller cannot fix.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}
