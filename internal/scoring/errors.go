package scoring

import (
	"errors"
	"strings"
)

// ErrInvalidProfile is the sentinel wrapped by every ValidationError.
var ErrInvalidProfile = errors.New("invalid financial profile")

// ValidationError reports why a profile cannot be scored.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidProfile.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidProfile
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
