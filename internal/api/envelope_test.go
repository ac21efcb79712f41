package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/store"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "created response", status: "201", input: map[string]string{"id": "123"}},
		{name: "no content response", status: "204", input: nil},
		{name: "bad request error", status: "400", input: errors.New("invalid input")},
		{
			name:   "conflict error with details",
			status: "409",
			input: &APIError{
				Code:    "TEAM_FULL",
				Message: "team is full",
				Details: map[string]string{"team_id": "123"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			raw, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(raw, &envelope))

			require.Contains(t, envelope, "v")
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"title": "Any% Sprint"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)

	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Empty(t, envelope.Error)
}

func TestEnvelopeTransformer_ErrorResponse(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "400", errors.New("validation failed"))
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)

	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	assert.Equal(t, "validation failed", envelope.Error)
}

func TestEnvelopeTransformer_CodedError(t *testing.T) {
	apiErr := &APIError{
		Code:    "SUBMISSION_LIMIT_REACHED",
		Message: "maximum submissions reached",
		Details: map[string]int{"limit": 3},
	}

	result, err := EnvelopeTransformer(nil, "409", apiErr)
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok)

	assert.False(t, envelope.Success)
	assert.Equal(t, "SUBMISSION_LIMIT_REACHED", envelope.Code)
	assert.Equal(t, map[string]int{"limit": 3}, envelope.Details)
}

func TestEnvelopeTransformer_DomainErrorReturnedDirectly(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "409", domainerrors.ErrTeamFull)
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok)

	assert.Equal(t, "TEAM_FULL", envelope.Code)
	assert.Equal(t, "team is full", envelope.Message)
}

func TestAPIErrorFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantOK     bool
		wantStatus int
		wantCode   string
	}{
		{"domain error", domainerrors.TeamNotFound("team-x"), true, http.StatusNotFound, "TEAM_NOT_FOUND"},
		{"wrapped store conflict", fmt.Errorf("join: %w", store.ErrAlreadyExists), true, http.StatusConflict, "CONFLICT"},
		{"canceled", context.Canceled, true, statusClientClosed, "CANCELED"},
		{"deadline", fmt.Errorf("rank: %w", context.DeadlineExceeded), true, http.StatusGatewayTimeout, "TIMEOUT"},
		{"unknown", errors.New("disk on fire"), false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr, ok := apiErrorFrom(tt.err)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantStatus, apiErr.GetStatus())
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestFieldDetails(t *testing.T) {
	details := fieldDetails([]error{
		&huma.ErrorDetail{Location: "body.name", Message: "expected string"},
		errors.New("unexpected property"),
		nil,
	})
	assert.Equal(t, map[string]string{
		"body.name": "expected string",
		"request":   "unexpected property",
	}, details)

	assert.Nil(t, fieldDetails(nil))
}
