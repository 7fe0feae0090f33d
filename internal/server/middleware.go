package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const (
	clientIPKey  contextKey = "client_ip"
	sessionIDKey contextKey = "session_id"
	accountIDKey contextKey = "account_id"
)

// ClientIPFromContext returns the client IP stored by the IP middleware,
// or "" when none was recorded. Also used as the audit logger's IP extractor.
func ClientIPFromContext(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}

// SessionIDFromContext returns the authenticated session id, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok && v != ""
}

// AccountIDFromContext returns the authenticated account id, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountIDKey).(string)
	return v, ok && v != ""
}

// clientIP resolves the caller's address, preferring proxy headers over the
// socket peer. X-Forwarded-For may carry a chain; the first hop is the client.
func clientIP(r *http.Request) string {
	if x := r.Header.Get("X-Real-Ip"); x != "" {
		return strings.TrimSpace(x)
	}
	if x := r.Header.Get("X-Forwarded-For"); x != "" {
		parts := strings.Split(x, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// withClientIP stores the resolved client IP in the request context so
// handlers and the audit logger can read it without re-parsing headers.
func (s *Server) withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withBlocklist rejects requests from blocked IPs before any other work.
func (s *Server) withBlocklist(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.blocklist == nil {
			next.ServeHTTP(w, r)
			return
		}
		ip := ClientIPFromContext(r.Context())
		blocked, remaining, err := s.blocklist.IsBlocked(r.Context(), ip)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if blocked {
			w.Header().Set("Retry-After", retryAfterSeconds(remaining))
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Code:       "IP_BLOCKED",
				Message:    "address temporarily blocked",
				RetryAfter: int64(remaining.Seconds()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies one named limiter keyed by client IP.
func (s *Server) withRateLimit(limiter consumer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Consume(r.Context(), ClientIPFromContext(r.Context()))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(res.RetryAfter))
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Code:       "RATE_LIMITED",
					Message:    "too many requests",
					RetryAfter: int64(res.RetryAfter.Seconds()),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// withAuth validates the Bearer access token, checks the session is still
// active, stores session/account ids in the context, and bumps the session's
// last activity best-effort.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "missing bearer token")
			return
		}
		sessionID, accountID, err := s.tokens.ValidateAccess(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "invalid or expired token")
			return
		}
		sess, err := s.sessions.GetByID(r.Context(), sessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if sess == nil || !sess.IsActive {
			// revoked by eviction, mass logout, or suspension after issue
			writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "session revoked")
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		ctx = context.WithValue(ctx, accountIDKey, accountID)
		s.auth.Heartbeat(ctx, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
