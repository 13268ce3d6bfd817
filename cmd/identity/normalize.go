package identity

import "strings"

// NormalizeName trims surrounding whitespace. Names stay case-sensitive:
// "Ann" and "ann" are distinct accounts.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}
