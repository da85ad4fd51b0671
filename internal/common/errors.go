package common

import "errors"

// Callers match these with errors.Is.
var (
	ErrNotFound = errors.New("not found")

	ErrUnauthorized = errors.New("unauthorized")

	ErrValidation = errors.New("validation error")
)
