package sentinal_errors

import "errors"

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrTransactionAborted = errors.New("transaction aborted")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("already exists")
)
