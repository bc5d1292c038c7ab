package narrative

import (
	"errors"
	"fmt"
	"strings"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

var (
	errInvalidSource = errors.New("invalid source")
	errEmptyText     = errors.New("narrative text is empty")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator checks inbound requests. With no allowed sources configured any
// source, including none, is accepted.
type Validator struct {
	allowedSources map[string]struct{}
}

func NewValidator(sources []string) *Validator {
	vs := make(map[string]struct{})
	for _, src := range sources {
		if trimmed := strings.TrimSpace(strings.ToLower(src)); trimmed != "" {
			vs[trimmed] = struct{}{}
		}
	}
	return &Validator{allowedSources: vs}
}

func (v *Validator) Validate(req models.ExtractRequest) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}

	if strings.TrimSpace(req.Text) == "" {
		return ValidationError{reason: errEmptyText}
	}

	if len(v.allowedSources) > 0 {
		source := strings.TrimSpace(strings.ToLower(req.Source))
		if source == "" {
			return ValidationError{reason: fmt.Errorf("source required: %w", errInvalidSource)}
		}
		if _, ok := v.allowedSources[source]; !ok {
			return ValidationError{reason: fmt.Errorf("source '%s' not allowed: %w", source, errInvalidSource)}
		}
	}

	return nil
}
