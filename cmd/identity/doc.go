// Package identity persists accounts and the opaque bearer tokens issued to them.
//
// Stores never see plaintext passwords or tokens: callers pass an encoded
// password hash and a token digest. Store errors are classified into the
// sentinel kinds in kinds.go so callers can map them without inspecting
// driver errors.
package identity
