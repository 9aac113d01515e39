package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/users"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// ChainMiddleware applies middleware in reverse order so the first listed
// runs outermost.
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is the stack shared by every JSON route.
func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	stack := []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
	}
	return append(stack, mw...)
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered from panic")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// RequireAccessToken validates the bearer token against the token authority
// and loads the token's user into the request context.
func (s *Server) RequireAccessToken() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeError(w, autherrors.ErrInvalidCredentials)
				return
			}

			ctx, cancel := s.storeContext(r.Context())
			defer cancel()

			record, err := s.tokens.ValidateAccess(ctx, tokenStr)
			if err != nil {
				writeError(w, err)
				return
			}

			user, err := s.repos.Users.GetByID(ctx, record.UserID)
			if err != nil {
				writeError(w, err)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), currentUserKey, user)))
		}
	}
}

// RequireAdmin gates a route on the already-resolved user's admin flag.
// It must run after RequireAccessToken.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := requestUser(r)
			if user == nil || !user.IsAdmin {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin required"})
				return
			}
			next(w, r)
		}
	}
}

// storeContext bounds a store-bound request context with the configured
// adapter timeout.
func (s *Server) storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.config.StoreTimeout)
}

func requestUser(r *http.Request) *users.User {
	user, _ := r.Context().Value(currentUserKey).(*users.User)
	return user
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
