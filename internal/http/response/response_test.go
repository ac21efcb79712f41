package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/store"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	JSON(w, http.StatusOK, map[string]string{"event_id": "smw-any-sprint"}, logger)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var result Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Equal(t, Version, result.Version)
	assert.True(t, result.Success)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Error)
}

func TestJSON_NilLogger(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"message": "test"}, nil)

	var result Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()

	Created(w, map[string]string{"id": "new-id"}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestError_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad", nil) }, http.StatusBadRequest, "VALIDATION"},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "who", nil) }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"rate limited", func(w http.ResponseWriter) { TooManyRequests(w, "slow down", nil) }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "boom", nil) }, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)

			var result ErrorEnvelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.False(t, result.Success)
			assert.Equal(t, Version, result.Version)
			assert.Equal(t, tt.code, result.Code)
		})
	}
}

func TestHandleError_DomainError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domainerrors.FileTooLarge(200, 100), nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var result ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "FILE_TOO_LARGE", result.Code)
	assert.Equal(t, map[string]any{"size": float64(200), "limit": float64(100)}, result.Details)
}

func TestHandleError_StoreError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, store.ErrNotFound.WithMessage("team not found"), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var result ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "team not found", result.Message)
}

func TestHandleError_UnknownError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, errors.New("disk on fire"), slog.New(slog.DiscardHandler))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var result ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "internal server error", result.Message)
}

func TestJSON_ErrorStatusIsNotSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusConflict, nil, nil)

	var result Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, "VALIDATION", CodeForStatus(http.StatusUnprocessableEntity))
	assert.Equal(t, "FILE_TOO_LARGE", CodeForStatus(http.StatusRequestEntityTooLarge))
	assert.Equal(t, "RATE_LIMITED", CodeForStatus(http.StatusTooManyRequests))
	assert.Equal(t, "INTERNAL", CodeForStatus(http.StatusTeapot))
}
