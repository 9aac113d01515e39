// Package memory provides an in-memory directory store adapter. It is the
// default backend and doubles as the test double for the repo contracts:
// maps guarded by a RWMutex, uuid-assigned IDs, and uniqueness enforcement
// on user email, client name, and token strings.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-session-service/clients"
	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/token"
	"github.com/jrsteele09/go-session-service/users"
)

// Store holds all record types behind a single lock, which also gives the
// per-record read-modify-write atomicity the refresh token contract needs.
// The typed repo views are obtained via Users, Clients, AccessTokens, and
// RefreshTokens.
type Store struct {
	lock          sync.RWMutex
	usersByID     map[string]users.User
	userIDByEmail map[string]string
	clientsByName map[string]clients.Client
	accessTokens  map[string]token.AccessToken
	refreshTokens map[string]token.RefreshToken
	userOrder     []string // insertion order, the store's natural order
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		usersByID:     make(map[string]users.User),
		userIDByEmail: make(map[string]string),
		clientsByName: make(map[string]clients.Client),
		accessTokens:  make(map[string]token.AccessToken),
		refreshTokens: make(map[string]token.RefreshToken),
	}
}

// Users returns the user repo view of the store.
func (s *Store) Users() users.Repo { return userRepo{s} }

// Clients returns the client repo view of the store.
func (s *Store) Clients() clients.Repo { return clientRepo{s} }

// AccessTokens returns the access token repo view of the store.
func (s *Store) AccessTokens() token.AccessTokenRepo { return accessTokenRepo{s} }

// RefreshTokens returns the refresh token repo view of the store.
func (s *Store) RefreshTokens() token.RefreshTokenRepo { return refreshTokenRepo{s} }

type userRepo struct{ s *Store }

var _ users.Repo = userRepo{}

func (r userRepo) Create(ctx context.Context, user *users.User) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	if _, exists := r.s.userIDByEmail[user.Email]; exists {
		return nil, autherrors.ErrConflict
	}

	created := *user
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	r.s.usersByID[created.ID] = created
	r.s.userIDByEmail[created.Email] = created.ID
	r.s.userOrder = append(r.s.userOrder, created.ID)
	return &created, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	id, ok := r.s.userIDByEmail[email]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	user := r.s.usersByID[id]
	return &user, nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	user, ok := r.s.usersByID[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) List(ctx context.Context) ([]*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	userList := make([]*users.User, 0, len(r.s.userOrder))
	for _, id := range r.s.userOrder {
		user := r.s.usersByID[id]
		userList = append(userList, &user)
	}
	return userList, nil
}

type clientRepo struct{ s *Store }

var _ clients.Repo = clientRepo{}

func (r clientRepo) Create(ctx context.Context, client *clients.Client) (*clients.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	if _, exists := r.s.clientsByName[client.Name]; exists {
		return nil, autherrors.ErrConflict
	}

	created := *client
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	r.s.clientsByName[created.Name] = created
	return &created, nil
}

func (r clientRepo) GetByName(ctx context.Context, name string) (*clients.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	client, ok := r.s.clientsByName[name]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return &client, nil
}

type accessTokenRepo struct{ s *Store }

var _ token.AccessTokenRepo = accessTokenRepo{}

func (r accessTokenRepo) Create(ctx context.Context, t *token.AccessToken) (*token.AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	if _, exists := r.s.accessTokens[t.Token]; exists {
		return nil, autherrors.ErrConflict
	}
	created := *t
	r.s.accessTokens[created.Token] = created
	return &created, nil
}

func (r accessTokenRepo) Get(ctx context.Context, tokenStr string) (*token.AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	record, ok := r.s.accessTokens[tokenStr]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return &record, nil
}

type refreshTokenRepo struct{ s *Store }

var _ token.RefreshTokenRepo = refreshTokenRepo{}

func (r refreshTokenRepo) Create(ctx context.Context, t *token.RefreshToken) (*token.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	if _, exists := r.s.refreshTokens[t.Token]; exists {
		return nil, autherrors.ErrConflict
	}
	created := *t
	r.s.refreshTokens[created.Token] = created
	return &created, nil
}

func (r refreshTokenRepo) Get(ctx context.Context, tokenStr string) (*token.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	record, ok := r.s.refreshTokens[tokenStr]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return &record, nil
}

// MarkRevoked sets the revoked flag under the write lock. Revoking an
// already-revoked token succeeds.
func (r refreshTokenRepo) MarkRevoked(ctx context.Context, tokenStr string) error {
	if err := ctx.Err(); err != nil {
		return autherrors.ErrStoreUnavailable
	}
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	record, ok := r.s.refreshTokens[tokenStr]
	if !ok {
		return autherrors.ErrNotFound
	}
	record.Revoked = true
	r.s.refreshTokens[tokenStr] = record
	return nil
}
