package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := EventNotActive("evt-1")

	assert.True(t, Is(err, ErrEventNotActive))
	assert.False(t, Is(err, ErrEventNotFound))

	wrapped := fmt.Errorf("join: %w", err)
	assert.True(t, Is(wrapped, ErrEventNotActive))
}

func TestError_WithCauseUnwraps(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := CollaboratorFailure("byte storage", cause)

	assert.True(t, Is(err, ErrCollaboratorFailure))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "byte storage failed: disk on fire", err.Error())
}

func TestMissingRequiredField_NamesField(t *testing.T) {
	err := MissingRequiredField("declaredResultTime")

	assert.Equal(t, CodeMissingRequiredField, err.Code)
	assert.Equal(t, map[string]string{"field": "declaredResultTime"}, err.Details)
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeEventNotFound, http.StatusNotFound},
		{CodeTeamNotFound, http.StatusNotFound},
		{CodeEventNotActive, http.StatusConflict},
		{CodeTeamFull, http.StatusConflict},
		{CodeAlreadyOnTeam, http.StatusConflict},
		{CodeMissingRequiredField, http.StatusBadRequest},
		{CodeFileTooLarge, http.StatusRequestEntityTooLarge},
		{CodeUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{CodeNotOwner, http.StatusForbidden},
		{CodeCollaboratorFailure, http.StatusBadGateway},
		{CodeUnauthorized, http.StatusUnauthorized},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
