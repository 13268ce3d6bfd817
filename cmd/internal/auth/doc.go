// Package auth registers and authenticates accounts, issues opaque bearer
// tokens, and resolves the Authorization header of a request to the account
// it belongs to.
//
// Every failure is reported as one of the sentinel errors in errors.go;
// underlying store errors are logged and collapsed into ErrInternal.
package auth
