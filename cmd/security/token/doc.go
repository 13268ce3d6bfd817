// Package token generates opaque bearer tokens and derives their storage hashes.
//
// Tokens are random strings over [A-Za-z0-9]. The server persists only a
// 64-char hex digest: HMAC-SHA256 when TASKLIST_TOKEN_HMAC_KEY is set,
// SHA-256 otherwise.
package token
