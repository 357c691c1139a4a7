package apperr

import "errors"

// Error taxonomy surfaced to API clients. Handlers translate these to
// HTTP statuses; everything else becomes a 500.
var (
	ErrConflict           = errors.New("already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrModelNotFound      = errors.New("model not found")
)
