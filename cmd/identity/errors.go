package identity

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a Store returns for a caller-attributable reason
// wraps exactly one of these; anything else is an infrastructure failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
)

// Unique fields a ConflictError can name.
const (
	FieldName  = "name"  // accounts.name
	FieldToken = "token" // auth_tokens.token_hash
)

// OpError is an ErrInvalidInput raised before the store is touched.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string { return describe(e.Op, e.Kind, e.Msg) }

func (e OpError) Unwrap() error { return e.Kind }

// ConflictError is a unique-constraint violation on Field.
type ConflictError struct {
	Op    string
	Field string
}

func (e ConflictError) Error() string { return describe(e.Op, ErrConflict, e.Field) }

func (e ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError is a missing account or token, or a dangling account reference.
type NotFoundError struct {
	Op       string
	Resource string
}

func (e NotFoundError) Error() string { return describe(e.Op, ErrNotFound, e.Resource) }

func (e NotFoundError) Unwrap() error { return ErrNotFound }

func describe(op string, kind error, detail string) string {
	if detail == "" {
		return fmt.Sprintf("%s: %v", op, kind)
	}
	return fmt.Sprintf("%s: %v: %s", op, kind, detail)
}

// IsConflictOn reports whether err is a ConflictError on field.
func IsConflictOn(err error, field string) bool {
	var ce ConflictError
	return errors.As(err, &ce) && ce.Field == field
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err wraps ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func invalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}
