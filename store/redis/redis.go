// Package redis provides a redis-backed token store adapter, for deployments
// that scale the service horizontally and need token state shared between
// instances. Only token records live here; user and client records stay in
// the primary backend. Records are JSON values under a configurable key
// prefix.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/token"
)

// Default timeouts for redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

const (
	accessKeyPrefix  = "access:"
	refreshKeyPrefix = "refresh:"
)

// Config holds redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces this service's keys, e.g. "sessionsvc:".
	KeyPrefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Store implements the token repo contracts on a redis backend.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New connects to redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(autherrors.ErrStoreUnavailable, err.Error())
	}

	return &Store{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// AccessTokens returns the access token repo view of the store.
func (s *Store) AccessTokens() token.AccessTokenRepo { return accessTokenRepo{s} }

// RefreshTokens returns the refresh token repo view of the store.
func (s *Store) RefreshTokens() token.RefreshTokenRepo { return refreshTokenRepo{s} }

func (s *Store) accessKey(tokenStr string) string {
	return s.keyPrefix + accessKeyPrefix + tokenStr
}

func (s *Store) refreshKey(tokenStr string) string {
	return s.keyPrefix + refreshKeyPrefix + tokenStr
}

// storeErr maps redis failures to the taxonomy. redis.Nil means the record
// is absent; anything else that isn't already a sentinel is an outage.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return autherrors.ErrNotFound
	case errors.Is(err, autherrors.ErrNotFound), errors.Is(err, autherrors.ErrConflict):
		return err
	default:
		return errors.Wrap(autherrors.ErrStoreUnavailable, err.Error())
	}
}

type accessTokenRepo struct{ s *Store }

var _ token.AccessTokenRepo = accessTokenRepo{}

func (r accessTokenRepo) Create(ctx context.Context, t *token.AccessToken) (*token.AccessToken, error) {
	created := *t
	value, err := json.Marshal(created)
	if err != nil {
		return nil, errors.Wrap(err, "[redis accessTokenRepo.Create] marshal")
	}

	ok, err := r.s.client.SetNX(ctx, r.s.accessKey(created.Token), value, 0).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, autherrors.ErrConflict
	}
	return &created, nil
}

func (r accessTokenRepo) Get(ctx context.Context, tokenStr string) (*token.AccessToken, error) {
	value, err := r.s.client.Get(ctx, r.s.accessKey(tokenStr)).Bytes()
	if err != nil {
		return nil, storeErr(err)
	}
	var record token.AccessToken
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, errors.Wrap(err, "[redis accessTokenRepo.Get] unmarshal")
	}
	return &record, nil
}

type refreshTokenRepo struct{ s *Store }

var _ token.RefreshTokenRepo = refreshTokenRepo{}

func (r refreshTokenRepo) Create(ctx context.Context, t *token.RefreshToken) (*token.RefreshToken, error) {
	created := *t
	value, err := json.Marshal(created)
	if err != nil {
		return nil, errors.Wrap(err, "[redis refreshTokenRepo.Create] marshal")
	}

	ok, err := r.s.client.SetNX(ctx, r.s.refreshKey(created.Token), value, 0).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, autherrors.ErrConflict
	}
	return &created, nil
}

func (r refreshTokenRepo) Get(ctx context.Context, tokenStr string) (*token.RefreshToken, error) {
	value, err := r.s.client.Get(ctx, r.s.refreshKey(tokenStr)).Bytes()
	if err != nil {
		return nil, storeErr(err)
	}
	var record token.RefreshToken
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, errors.Wrap(err, "[redis refreshTokenRepo.Get] unmarshal")
	}
	return &record, nil
}

// MarkRevoked performs an optimistic WATCH transaction so the read-modify-
// write is atomic per token record. Revoking an already-revoked token
// succeeds.
func (r refreshTokenRepo) MarkRevoked(ctx context.Context, tokenStr string) error {
	key := r.s.refreshKey(tokenStr)

	revoke := func(tx *redis.Tx) error {
		value, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		var record token.RefreshToken
		if err := json.Unmarshal(value, &record); err != nil {
			return err
		}
		if record.Revoked {
			return nil
		}
		record.Revoked = true
		updated, err := json.Marshal(record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for {
		err := r.s.client.Watch(ctx, revoke, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // key changed under us, retry
		}
		return storeErr(err)
	}
}
