package todo

import (
	"strings"
	"unicode/utf8"
)

const (
	maxDescriptionLen = 4096
	maxDueDateLen     = 64
)

// Item is a task owned by exactly one account.
type Item struct {
	ID          int64
	OwnerID     int64
	Description string
	DueDate     string
}

// Input carries the client-mutable fields of an Item.
type Input struct {
	Description string
	DueDate     string
}

// Validate checks the bounds the store relies on. Empty strings are allowed.
func (in Input) Validate() error {
	switch {
	case !utf8.ValidString(in.Description) || !utf8.ValidString(in.DueDate):
		return InputError{Reason: "fields must be valid UTF-8"}
	case utf8.RuneCountInString(in.Description) > maxDescriptionLen:
		return InputError{Reason: "description is too long"}
	case utf8.RuneCountInString(strings.TrimSpace(in.DueDate)) > maxDueDateLen:
		return InputError{Reason: "due_date is too long"}
	}
	return nil
}
