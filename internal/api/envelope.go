package api

import (
	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/retroarena/eventengine/internal/errors"
	"github.com/retroarena/eventengine/internal/http/response"
	"github.com/retroarena/eventengine/internal/store"
)

// EnvelopeVersion is the version carried in the "v" field of every body.
const EnvelopeVersion = response.Version

// APIEnvelope wraps successful bodies and plain errors.
type APIEnvelope = response.Envelope

// APIErrorEnvelope wraps coded errors.
type APIErrorEnvelope = response.ErrorEnvelope

// EnvelopeTransformer wraps every huma response body in the versioned envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    body.Code,
			Message: body.Message,
			Details: body.Details,
		}, nil
	case *domainerrors.Error:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    string(body.Code),
			Message: body.Message,
			Details: body.Details,
		}, nil
	case *store.Error:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    response.CodeForStatus(body.HTTPCode()),
			Message: body.Message,
		}, nil
	case error:
		return APIEnvelope{
			Version: EnvelopeVersion,
			Error:   body.Error(),
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: len(status) > 0 && status[0] == '2',
		Data:    v,
	}, nil
}
