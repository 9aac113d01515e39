// Package server is the HTTP surface of the session service. It maps JSON
// requests onto the session, token, and directory operations; the core
// packages stay transport-agnostic.
package server

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-service/clients"
	"github.com/jrsteele09/go-session-service/internal/config"
	"github.com/jrsteele09/go-session-service/secrets"
	"github.com/jrsteele09/go-session-service/session"
	"github.com/jrsteele09/go-session-service/token"
	"github.com/jrsteele09/go-session-service/users"
)

// Repos holds all store dependencies for the Server.
type Repos struct {
	Users   users.Repo
	Clients clients.Repo
	Access  token.AccessTokenRepo
	Refresh token.RefreshTokenRepo
}

// Server routes requests and owns the long-lived service dependencies. A
// fresh session.Context is created per inbound request; nothing principal-
// related is shared across requests.
type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  *config.Config
	repos   Repos
	tokens    *token.Manager
	hasher    *secrets.Hasher
	userSvc   *users.Service
	clientSvc *clients.Service
}

// New wires the service dependencies and registers routes. It also runs the
// first-start bootstrap (admin user + default client) when configured.
func New(cfg *config.Config, repos Repos) (*Server, error) {
	hasher := secrets.NewHasher(cfg.BcryptCost)

	tokens, err := token.New(
		token.Repos{Access: repos.Access, Refresh: repos.Refresh},
		token.WithTokenExpiry(cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] token.New")
	}

	userSvc, err := users.NewService(repos.Users, hasher)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] users.NewService")
	}

	clientSvc, err := clients.NewService(repos.Clients, hasher)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] clients.NewService")
	}

	s := &Server{
		env:       cfg.Env,
		mux:       http.NewServeMux(),
		config:    cfg,
		repos:     repos,
		tokens:    tokens,
		hasher:    hasher,
		userSvc:   userSvc,
		clientSvc: clientSvc,
	}

	if err := s.bootstrap(context.Background()); err != nil {
		return nil, errors.Wrap(err, "[server.New] bootstrap")
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// newSession creates the request-scoped session context.
func (s *Server) newSession() (*session.Context, error) {
	return session.New(
		session.Repos{Users: s.repos.Users, Clients: s.repos.Clients},
		s.tokens,
		s.hasher,
	)
}

func (s *Server) registerRoute(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.registerRoute("POST /auth/login", ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.registerRoute("POST /auth/token/validate", ChainMiddleware(s.ValidateTokenHandler(), s.APIMiddleware()...))
	s.registerRoute("POST /auth/token/refresh", ChainMiddleware(s.RefreshTokenHandler(), s.APIMiddleware()...))
	s.registerRoute("POST /auth/token/revoke", ChainMiddleware(s.RevokeTokenHandler(), s.APIMiddleware()...))

	s.registerRoute("GET /users", ChainMiddleware(s.ListUsersHandler(), s.APIMiddleware(s.RequireAccessToken())...))
	s.registerRoute("GET /users/{id}", ChainMiddleware(s.GetUserHandler(), s.APIMiddleware(s.RequireAccessToken())...))
	s.registerRoute("POST /users", ChainMiddleware(s.CreateUserHandler(), s.APIMiddleware(s.RequireAccessToken(), s.RequireAdmin())...))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		log.Info().Str("route", route).Msg("registered")
	}
}
