package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrLockedOut          = errors.New("locked_out")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrInvalidSession     = errors.New("invalid_session")
)
