package authorization

import "errors"

var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnknownPolicy   = errors.New("unknown_policy")
)
