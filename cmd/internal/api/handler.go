package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tasklist/cmd/internal/auth"
	"tasklist/cmd/internal/todo"
)

// Handler wires HTTP endpoints to the auth and todo services.
type Handler struct {
	log *slog.Logger
	cfg Config

	auth  *auth.Service
	todos *todo.Service

	rec Recorder
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithRecorder reports auth events to rec.
func WithRecorder(rec Recorder) HandlerOption {
	return func(h *Handler) {
		if h == nil || rec == nil {
			return
		}
		h.rec = rec
	}
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, authSvc *auth.Service, todos *todo.Service, opts ...HandlerOption) (*Handler, error) {
	if authSvc == nil {
		return nil, errors.New("api: nil auth service")
	}
	if todos == nil {
		return nil, errors.New("api: nil todo service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:   log,
		cfg:   cfg,
		auth:  authSvc,
		todos: todos,
		rec:   nopRecorder{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires the routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)

	mux.Handle("POST /todo", h.RequireAccount(http.HandlerFunc(h.handleCreateTask)))
	mux.Handle("GET /todouser", h.RequireAccount(http.HandlerFunc(h.handleListTasks)))
	mux.Handle("GET /todo/{id}", h.RequireAccount(http.HandlerFunc(h.handleGetTask)))
	mux.Handle("PUT /todo/{id}", h.RequireAccount(http.HandlerFunc(h.handleUpdateTask)))
	mux.Handle("DELETE /todo/{id}", h.RequireAccount(http.HandlerFunc(h.handleDeleteTask)))
}

// RequireAccount resolves the bearer token and stores the account id in the
// request context. Requests without a valid token never reach next.
func (h *Handler) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.auth.Authz.Authorize(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				h.audit(r, EventAuthorizeRejected, "path", r.URL.Path)
			}
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithAccountID(r.Context(), id)))
	})
}

// ---- account handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	acct, err := h.auth.Authn.Register(r.Context(), req.Name, req.Password, req.Profession)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateName) {
			h.audit(r, EventRegisterDuplicate)
		}
		writeAuthError(w, err)
		return
	}

	h.audit(r, EventRegisterSuccess, "account_id", acct.ID)
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name and password are required")
		return
	}

	acct, tok, err := h.auth.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.audit(r, EventLoginFailed)
		}
		writeAuthError(w, err)
		return
	}

	h.audit(r, EventLoginSuccess, "account_id", acct.ID)
	w.Header().Set("Authorization", "Bearer "+tok)
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

// ---- task handlers ----

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeTask(w, r)
	if !ok {
		return
	}

	it, err := h.todos.Create(r.Context(), callerID, in)
	if err != nil {
		writeTodoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(it))
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	items, err := h.todos.List(r.Context(), callerID)
	if err != nil {
		writeTodoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponses(items))
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	callerID, id, ok := h.callerAndTaskID(w, r)
	if !ok {
		return
	}

	it, err := h.todos.Get(r.Context(), id, callerID)
	if err != nil {
		h.taskFailed(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(it))
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	callerID, id, ok := h.callerAndTaskID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeTask(w, r)
	if !ok {
		return
	}

	it, err := h.todos.Update(r.Context(), id, callerID, in)
	if err != nil {
		h.taskFailed(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(it))
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	callerID, id, ok := h.callerAndTaskID(w, r)
	if !ok {
		return
	}

	it, err := h.todos.Delete(r.Context(), id, callerID)
	if err != nil {
		h.taskFailed(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(it))
}

// ---- helpers ----

func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.AccountIDFrom(r.Context())
	if !ok {
		// Route registered without RequireAccount.
		h.log.Error("api.caller.missing", "path", r.URL.Path)
		writeServerError(w)
		return 0, false
	}
	return id, true
}

func (h *Handler) callerAndTaskID(w http.ResponseWriter, r *http.Request) (callerID, taskID int64, ok bool) {
	callerID, ok = h.callerID(w, r)
	if !ok {
		return 0, 0, false
	}
	taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || taskID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "task id must be a positive integer")
		return 0, 0, false
	}
	return callerID, taskID, true
}

func (h *Handler) decodeTask(w http.ResponseWriter, r *http.Request) (todo.Input, bool) {
	var req taskRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return todo.Input{}, false
	}
	in, ok := req.input()
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "description and due_date are required")
		return todo.Input{}, false
	}
	return in, true
}

func (h *Handler) taskFailed(w http.ResponseWriter, r *http.Request, err error, taskID int64) {
	if errors.Is(err, todo.ErrForbidden) {
		callerID, _ := auth.AccountIDFrom(r.Context())
		h.audit(r, EventForbidden, "account_id", callerID, "task_id", taskID, "method", r.Method)
	}
	writeTodoError(w, err)
}
