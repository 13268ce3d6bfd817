package api

import (
	"errors"
	"net/http"

	"tasklist/cmd/internal/auth"
	"tasklist/cmd/internal/todo"
)

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tasklist"`)
	writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid bearer token")
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}

// writeAuthError maps auth sentinels to responses. Unknown errors are 500.
func writeAuthError(w http.ResponseWriter, err error) {
	var reqErr auth.RequestError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, http.StatusBadRequest, "invalid_request", reqErr.Reason)
	case errors.Is(err, auth.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request")
	case errors.Is(err, auth.ErrDuplicateName):
		writeError(w, http.StatusConflict, "duplicate_name", "name is already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeUnauthenticated(w)
	default:
		writeServerError(w)
	}
}

// writeTodoError maps todo sentinels to responses. Unknown errors are 500.
func writeTodoError(w http.ResponseWriter, err error) {
	var inErr todo.InputError
	switch {
	case errors.As(err, &inErr):
		writeError(w, http.StatusBadRequest, "invalid_request", inErr.Reason)
	case errors.Is(err, todo.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid task")
	case errors.Is(err, todo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "task not found")
	case errors.Is(err, todo.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "task belongs to another account")
	default:
		writeServerError(w)
	}
}
