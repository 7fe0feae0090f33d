// Package server exposes the portal's HTTP surface: auth endpoints guarded by
// the IP blocklist and named rate limiters, plus authenticated content routes.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	accountservice "medportal/backend/internal/account/service"
	"medportal/backend/internal/blocklist"
	"medportal/backend/internal/ratelimit"
	"medportal/backend/internal/security"
	sessiondomain "medportal/backend/internal/session/domain"
)

// consumer is the limiter surface the middleware needs.
type consumer interface {
	Consume(ctx context.Context, key string) (*ratelimit.Result, error)
}

// SessionReader is the minimal session lookup the auth middleware needs.
type SessionReader interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// Limiters groups the named limiter instances by the routes they guard.
type Limiters struct {
	Auth     *ratelimit.Limiter
	API      *ratelimit.Limiter
	Quiz     *ratelimit.Limiter
	Progress *ratelimit.Limiter
}

// Server wires the HTTP handlers to the auth service and governance pieces.
type Server struct {
	auth      *accountservice.AuthService
	tokens    *security.TokenProvider
	sessions  SessionReader
	limiters  Limiters
	blocklist *blocklist.Blocklist
	origins   []string
}

// New returns a Server. blocklist may be nil; then no IP blocking is applied.
func New(
	auth *accountservice.AuthService,
	tokens *security.TokenProvider,
	sessions SessionReader,
	limiters Limiters,
	bl *blocklist.Blocklist,
	allowedOrigins []string,
) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{
		auth:      auth,
		tokens:    tokens,
		sessions:  sessions,
		limiters:  limiters,
		blocklist: bl,
		origins:   allowedOrigins,
	}
}

// Router builds the route tree. Order on guarded routes is blocklist first,
// then the rate limiter, then the handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.withClientIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withBlocklist)
		r.Use(s.withRateLimit(s.limiters.API))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.withRateLimit(s.limiters.Auth))
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
			})
			r.Group(func(r chi.Router) {
				r.Use(s.withAuth)
				r.Post("/logout", s.handleLogout)
				r.Get("/sessions", s.handleSessions)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.withAuth)
			r.With(s.withRateLimit(s.limiters.Quiz)).Post("/quiz/submit", s.handleQuizSubmit)
			r.With(s.withRateLimit(s.limiters.Progress)).Post("/progress", s.handleProgress)
		})
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
