package api

import (
	"net"
	"net/http"
	"strings"
)

// Auth event names reported to the Recorder and the log.
const (
	EventRegisterSuccess   = "register_success"
	EventRegisterDuplicate = "register_duplicate"
	EventLoginSuccess      = "login_success"
	EventLoginFailed       = "login_failed"
	EventAuthorizeRejected = "authorize_rejected"
	EventForbidden         = "forbidden"
)

// Recorder counts security-relevant events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	AuthEvent(event string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string) {}

// audit logs event with the caller's address and user agent. Tokens and
// passwords are never passed here.
func (h *Handler) audit(r *http.Request, event string, args ...any) {
	h.rec.AuthEvent(event)

	attrs := append([]any{
		"event", event,
		"ip", ipString(clientIP(r, h.cfg.TrustProxy)),
		"user_agent", strings.TrimSpace(r.UserAgent()),
	}, args...)

	switch event {
	case EventLoginFailed, EventAuthorizeRejected, EventForbidden:
		h.log.Warn("auth.audit", attrs...)
	default:
		h.log.Info("auth.audit", attrs...)
	}
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
