package todo

import "errors"

var (
	// ErrNotFound means no item has the requested id.
	ErrNotFound = errors.New("item not found")

	// ErrForbidden means the item exists but belongs to another account.
	ErrForbidden = errors.New("item belongs to another account")

	// ErrInvalidInput marks client input rejected before reaching the store.
	ErrInvalidInput = errors.New("invalid item input")

	// ErrInternal hides store failures from callers.
	ErrInternal = errors.New("internal error")
)

// InputError carries a client-safe reason for ErrInvalidInput.
type InputError struct {
	Reason string
}

func (e InputError) Error() string { return ErrInvalidInput.Error() + ": " + e.Reason }

func (e InputError) Unwrap() error { return ErrInvalidInput }
