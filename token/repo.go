package token

import "context"

// AccessTokenRepo is the store contract for access token records. Lookups
// are by exact token string; implementations enforce token string uniqueness
// (autherrors.ErrConflict on duplicates) and return autherrors.ErrNotFound
// for absent records. Creates must be atomic per record.
type AccessTokenRepo interface {
	Create(ctx context.Context, t *AccessToken) (*AccessToken, error)
	Get(ctx context.Context, tokenStr string) (*AccessToken, error)
}

// RefreshTokenRepo is the store contract for refresh token records.
// MarkRevoked must be a read-modify-write atomic per token record so that
// racing revoke/refresh calls serialize deterministically; it returns
// autherrors.ErrNotFound for unknown token strings and succeeds without
// error on already-revoked tokens.
type RefreshTokenRepo interface {
	Create(ctx context.Context, t *RefreshToken) (*RefreshToken, error)
	Get(ctx context.Context, tokenStr string) (*RefreshToken, error)
	MarkRevoked(ctx context.Context, tokenStr string) error
}
