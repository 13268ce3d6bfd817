package password

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Policy violations returned by Validate and Hash.
var (
	ErrPasswordTooShort = errors.New("password: shorter than policy minimum")
	ErrPasswordTooLong  = errors.New("password: longer than policy maximum")
	ErrWeakPassword     = errors.New("password: rejected as trivially guessable")
)

// commonPasswords are rejected when Policy.RejectVeryWeak is set.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"123456":      {},
	"123456789":   {},
	"qwerty":      {},
	"qwerty123":   {},
	"letmein":     {},
	"11111111":    {},
}

// Validate applies the password policy. Length is counted in runes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)

	switch {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	case c.Policy.RejectVeryWeak && looksVeryWeak(password):
		return ErrWeakPassword
	}
	return nil
}

// looksVeryWeak catches a handful of trivially guessable shapes. It is not a
// strength estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	if _, ok := commonPasswords[strings.ToLower(s)]; ok {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	sameRune := true
	allDigits := true
	for _, r := range s {
		if r != first {
			sameRune = false
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	if sameRune {
		return true
	}
	return allDigits && utf8.RuneCountInString(s) < 12
}
