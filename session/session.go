// Package session binds a "current principal" to a single inbound request.
// A Context is created at the start of request handling and discarded at its
// end; two requests never share one. The cached client/user fields are the
// only mutable state and are confined to the request's own goroutine.
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-service/clients"
	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/secrets"
	"github.com/jrsteele09/go-session-service/token"
	"github.com/jrsteele09/go-session-service/users"
)

// Repos holds the store dependencies for a session Context.
type Repos struct {
	Users   users.Repo
	Clients clients.Repo
}

// Context resolves and caches the current client and user for one request,
// delegating token operations to the token Manager.
type Context struct {
	repos  Repos
	tokens *token.Manager
	hasher *secrets.Hasher

	currentClient *clients.Client
	currentUser   *users.User
}

// New creates a request-scoped session Context.
func New(repos Repos, tokens *token.Manager, hasher *secrets.Hasher) (*Context, error) {
	if repos.Users == nil {
		return nil, errors.New("[session.New] Users repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[session.New] Clients repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[session.New] token manager is required")
	}
	if hasher == nil {
		return nil, errors.New("[session.New] hasher is required")
	}
	return &Context{repos: repos, tokens: tokens, hasher: hasher}, nil
}

// GetClient looks up a client by name and verifies its secret against the
// stored hash. On success the client becomes the context's current client.
// Fails with autherrors.ErrNotFound for an unknown name and
// autherrors.ErrInvalidCredentials on a secret mismatch.
func (s *Context) GetClient(ctx context.Context, name, secret string) (*clients.Client, error) {
	client, err := s.repos.Clients.GetByName(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "[Context.GetClient] Clients.GetByName")
	}
	if !s.hasher.Verify(secret, client.SecretHash) {
		return nil, autherrors.ErrInvalidCredentials
	}
	s.currentClient = client
	return client, nil
}

// Authenticate looks up a user by email and verifies the password against the
// stored hash. On success the user becomes the context's current user.
// Fails with autherrors.ErrNotFound for an unknown email and
// autherrors.ErrInvalidCredentials on a password mismatch.
func (s *Context) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "[Context.Authenticate] Users.GetByEmail")
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, autherrors.ErrInvalidCredentials
	}
	s.currentUser = user
	return user, nil
}

// CurrentClient returns the most recently resolved client in this context,
// or nil. It performs no I/O.
func (s *Context) CurrentClient() *clients.Client {
	return s.currentClient
}

// CurrentUser returns the most recently resolved user in this context, or
// nil. It performs no I/O.
func (s *Context) CurrentUser() *users.User {
	return s.currentUser
}

// SaveAccessToken persists an access token bound to the context's current
// user and client. It fails with autherrors.ErrNoCurrentPrincipal unless both
// have been resolved in this context.
func (s *Context) SaveAccessToken(ctx context.Context, tokenStr string, expiry time.Time) error {
	if s.currentUser == nil || s.currentClient == nil {
		return autherrors.ErrNoCurrentPrincipal
	}
	if err := s.tokens.SaveAccess(ctx, tokenStr, s.currentUser.ID, s.currentClient.ID, expiry); err != nil {
		return errors.Wrap(err, "[Context.SaveAccessToken] tokens.SaveAccess")
	}
	return nil
}

// SaveRefreshToken persists a refresh token bound to the context's current
// user and client, with the same precondition as SaveAccessToken.
func (s *Context) SaveRefreshToken(ctx context.Context, tokenStr string, expiry time.Time) error {
	if s.currentUser == nil || s.currentClient == nil {
		return autherrors.ErrNoCurrentPrincipal
	}
	if err := s.tokens.SaveRefresh(ctx, tokenStr, s.currentUser.ID, s.currentClient.ID, expiry); err != nil {
		return errors.Wrap(err, "[Context.SaveRefreshToken] tokens.SaveRefresh")
	}
	return nil
}

// Validate delegates to the token authority's access token validation.
func (s *Context) Validate(ctx context.Context, tokenStr string) (*token.AccessToken, error) {
	return s.tokens.ValidateAccess(ctx, tokenStr)
}

// Refresh delegates to the token authority's refresh operation.
func (s *Context) Refresh(ctx context.Context, tokenStr string) (*token.AccessToken, error) {
	return s.tokens.Refresh(ctx, tokenStr)
}

// Revoke delegates to the token authority's revoke operation.
func (s *Context) Revoke(ctx context.Context, tokenStr string) error {
	return s.tokens.Revoke(ctx, tokenStr)
}
