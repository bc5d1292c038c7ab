package extraction

import (
	"errors"
	"fmt"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

var (
	// ErrStrategyUnavailable means the collaborator behind a strategy was
	// never configured.
	ErrStrategyUnavailable = errors.New("extraction strategy unavailable")
	// ErrMalformedResponse means the generative collaborator answered with
	// something other than the requested JSON object.
	ErrMalformedResponse = errors.New("malformed generative response")
)

// DecodeError reports a recognized field whose payload is neither a scalar
// nor a {value, unit} object.
type DecodeError struct {
	Field  models.CanonicalField
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrMalformedResponse
}
