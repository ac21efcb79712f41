package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/validation"
)

type createTeamRequest struct {
	Name        string `json:"name" validate:"notblank,max=30,nocontrol"`
	Description string `json:"description,omitempty" validate:"max=200"`
	Progress    int    `json:"progress" validate:"gte=0,lte=100"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(createTeamRequest{Name: "Pixel Pushers", Progress: 40})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       createTeamRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "blank name",
			req:       createTeamRequest{Name: "   "},
			wantField: "name",
			wantMsg:   "is required",
		},
		{
			name:      "name too long",
			req:       createTeamRequest{Name: strings.Repeat("a", 31)},
			wantField: "name",
			wantMsg:   "must not exceed 30 characters",
		},
		{
			name:      "description too long",
			req:       createTeamRequest{Name: "ok", Description: strings.Repeat("d", 201)},
			wantField: "description",
			wantMsg:   "must not exceed 200 characters",
		},
		{
			name:      "control character in name",
			req:       createTeamRequest{Name: "Pixel\x1bPushers"},
			wantField: "name",
			wantMsg:   "must not contain control characters",
		},
		{
			name:      "progress out of range",
			req:       createTeamRequest{Name: "ok", Progress: 101},
			wantField: "progress",
			wantMsg:   "must be less than or equal to 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_CountsRunesNotBytes(t *testing.T) {
	v := validation.New()

	// 30 multibyte characters is still within the limit.
	err := v.Validate(createTeamRequest{Name: strings.Repeat("é", 30)})
	assert.NoError(t, err)
}

func TestValidator_NocontrolAllowsNewlineAndTab(t *testing.T) {
	v := validation.New()

	type comment struct {
		Text string `json:"text" validate:"nocontrol"`
	}
	assert.NoError(t, v.Validate(comment{Text: "split 1\tsplit 2\nfinal"}))
	assert.Error(t, v.Validate(comment{Text: "bell\a"}))
}

func TestValidator_NonStructInput(t *testing.T) {
	v := validation.New()

	err := v.Validate("not a struct")
	require.Error(t, err)

	var domainErr *domainerrors.Error
	assert.False(t, errors.As(err, &domainErr), "programming errors are not validation failures")
}
