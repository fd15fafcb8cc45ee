package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorValidation marks rejected-input failures. Handlers map it to 400,
// ErrorRecordNotFound to 404; everything else is a 500.
var ErrorValidation = errors.New("validation failed")

func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrorValidation, fmt.Sprintf(format, args...))
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrorValidation)
}
