package auth

import "errors"

var (
	// ErrUnauthenticated means the request carried no usable bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredentials covers both an unknown name and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateName is returned by Register when the name is already taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidRequest is returned for input rejected before any store access.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternal hides store and hashing failures from callers.
	ErrInternal = errors.New("internal error")
)

// RequestError carries a client-safe reason for ErrInvalidRequest.
type RequestError struct {
	Reason string
}

func (e RequestError) Error() string { return ErrInvalidRequest.Error() + ": " + e.Reason }

func (e RequestError) Unwrap() error { return ErrInvalidRequest }
