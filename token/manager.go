package token

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-service/internal/autherrors"
)

// Repos holds the store dependencies for the Manager.
type Repos struct {
	Access  AccessTokenRepo
	Refresh RefreshTokenRepo
}

// Manager issues, validates, refreshes, and revokes tokens. Issuance is
// additive: pre-existing tokens for the same (user, client) stay live, and
// the manager never assumes the store enforces a single-active-token policy.
// Refresh does not rotate the refresh token; the same token string remains
// usable until it is explicitly revoked or naturally expires.
type Manager struct {
	repos              Repos
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithTokenExpiry sets the default lifetimes for issued tokens.
func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// New creates a Manager.
func New(repos Repos, options ...ManagerOption) (*Manager, error) {
	if repos.Access == nil {
		return nil, errors.New("[token.New] Access repo is required")
	}
	if repos.Refresh == nil {
		return nil, errors.New("[token.New] Refresh repo is required")
	}

	m := &Manager{repos: repos}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = time.Hour
	}
	if m.refreshTokenExpiry == 0 {
		m.refreshTokenExpiry = 7 * 24 * time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

// IssueAccess generates a fresh access token for (user, client), persists it,
// and returns the token string.
func (m *Manager) IssueAccess(ctx context.Context, userID, clientID string) (string, error) {
	tokenStr, err := NewTokenString()
	if err != nil {
		return "", errors.Wrap(err, "[Manager.IssueAccess] NewTokenString")
	}
	if err := m.SaveAccess(ctx, tokenStr, userID, clientID, m.nowFunc().Add(m.accessTokenExpiry)); err != nil {
		return "", err
	}
	return tokenStr, nil
}

// IssueRefresh generates a fresh refresh token for (user, client), persists
// it, and returns the token string.
func (m *Manager) IssueRefresh(ctx context.Context, userID, clientID string) (string, error) {
	tokenStr, err := NewTokenString()
	if err != nil {
		return "", errors.Wrap(err, "[Manager.IssueRefresh] NewTokenString")
	}
	if err := m.SaveRefresh(ctx, tokenStr, userID, clientID, m.nowFunc().Add(m.refreshTokenExpiry)); err != nil {
		return "", err
	}
	return tokenStr, nil
}

// SaveAccess persists a caller-supplied access token string bound to
// (user, client) with the given expiry.
func (m *Manager) SaveAccess(ctx context.Context, tokenStr, userID, clientID string, expiry time.Time) error {
	_, err := m.repos.Access.Create(ctx, &AccessToken{
		Token:    tokenStr,
		UserID:   userID,
		ClientID: clientID,
		Expiry:   expiry,
	})
	if err != nil {
		return errors.Wrap(err, "[Manager.SaveAccess] Access.Create")
	}
	return nil
}

// SaveRefresh persists a caller-supplied refresh token string bound to
// (user, client) with the given expiry.
func (m *Manager) SaveRefresh(ctx context.Context, tokenStr, userID, clientID string, expiry time.Time) error {
	_, err := m.repos.Refresh.Create(ctx, &RefreshToken{
		Token:    tokenStr,
		UserID:   userID,
		ClientID: clientID,
		Expiry:   expiry,
	})
	if err != nil {
		return errors.Wrap(err, "[Manager.SaveRefresh] Refresh.Create")
	}
	return nil
}

// ValidateAccess looks up an access token by its string. It fails with
// autherrors.ErrNotFound for unknown strings and autherrors.ErrExpired once
// the current time reaches the expiry; otherwise the record is returned.
func (m *Manager) ValidateAccess(ctx context.Context, tokenStr string) (*AccessToken, error) {
	record, err := m.repos.Access.Get(ctx, tokenStr)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.ValidateAccess] Access.Get")
	}
	if !m.nowFunc().Before(record.Expiry) {
		return nil, autherrors.ErrExpired
	}
	return record, nil
}

// Refresh exchanges a live refresh token for a new access token bound to the
// same (user, client). It fails with autherrors.ErrNotFound for unknown
// strings, autherrors.ErrRevoked for revoked tokens, and autherrors.ErrExpired
// past expiry. The refresh token itself is left as-is.
func (m *Manager) Refresh(ctx context.Context, tokenStr string) (*AccessToken, error) {
	record, err := m.repos.Refresh.Get(ctx, tokenStr)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Refresh] Refresh.Get")
	}
	if record.Revoked {
		return nil, autherrors.ErrRevoked
	}
	if !m.nowFunc().Before(record.Expiry) {
		return nil, autherrors.ErrExpired
	}

	accessStr, err := m.IssueAccess(ctx, record.UserID, record.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Refresh] IssueAccess")
	}
	return m.repos.Access.Get(ctx, accessStr)
}

// Revoke sets the refresh token's revoked flag. Revoking an already-revoked
// token succeeds; an unknown token string fails with autherrors.ErrNotFound.
func (m *Manager) Revoke(ctx context.Context, tokenStr string) error {
	if err := m.repos.Refresh.MarkRevoked(ctx, tokenStr); err != nil {
		return errors.Wrap(err, "[Manager.Revoke] Refresh.MarkRevoked")
	}
	return nil
}
