// Package bolt provides a durable single-file directory store adapter backed
// by bbolt. Records are stored as JSON values in one bucket per record type;
// bolt's serialized update transactions give atomic create/update per record.
package bolt

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/jrsteele09/go-session-service/clients"
	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/token"
	"github.com/jrsteele09/go-session-service/users"
)

const (
	storeDirPerm  = fs.FileMode(0o700)
	storeFilePerm = fs.FileMode(0o600)

	// openTimeout bounds the wait for the bolt file lock.
	openTimeout = 5 * time.Second
)

var (
	usersBucket         = []byte("users")
	userEmailsBucket    = []byte("user_emails") // email -> user id
	clientsBucket       = []byte("clients")     // keyed by client name
	accessTokensBucket  = []byte("access_tokens")
	refreshTokensBucket = []byte("refresh_tokens")
)

// Store wraps a bbolt database holding all directory records.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the store database at path. The parent
// directory is created with owner-only permissions.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, errors.Wrap(err, "[bolt.Open] creating store directory")
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrap(err, "[bolt.Open] opening store db")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{usersBucket, userEmailsBucket, clientsBucket, accessTokensBucket, refreshTokensBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "[bolt.Open] initializing buckets")
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Users returns the user repo view of the store.
func (s *Store) Users() users.Repo { return userRepo{s} }

// Clients returns the client repo view of the store.
func (s *Store) Clients() clients.Repo { return clientRepo{s} }

// AccessTokens returns the access token repo view of the store.
func (s *Store) AccessTokens() token.AccessTokenRepo { return accessTokenRepo{s} }

// RefreshTokens returns the refresh token repo view of the store.
func (s *Store) RefreshTokens() token.RefreshTokenRepo { return refreshTokenRepo{s} }

// storeErr maps cancellation and bolt-level failures to the taxonomy,
// passing sentinel values through untouched.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, autherrors.ErrNotFound) || errors.Is(err, autherrors.ErrConflict) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return autherrors.ErrStoreUnavailable
	}
	return errors.Wrap(autherrors.ErrStoreUnavailable, err.Error())
}

// userRecord is the stored form of a user. The API model excludes the
// password hash from JSON, but the store must keep it.
type userRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	SMS          string `json:"sms,omitempty"`
	PasswordHash string `json:"password_hash"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

func toUserRecord(u *users.User) userRecord {
	return userRecord{ID: u.ID, Name: u.Name, Email: u.Email, SMS: u.SMS, PasswordHash: u.PasswordHash, IsAdmin: u.IsAdmin}
}

func (rec userRecord) toUser() *users.User {
	return &users.User{ID: rec.ID, Name: rec.Name, Email: rec.Email, SMS: rec.SMS, PasswordHash: rec.PasswordHash, IsAdmin: rec.IsAdmin}
}

type userRepo struct{ s *Store }

var _ users.Repo = userRepo{}

func (r userRepo) Create(ctx context.Context, user *users.User) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	created := *user
	if created.ID == "" {
		created.ID = uuid.New().String()
	}

	err := r.s.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket(userEmailsBucket)
		if emails.Get([]byte(created.Email)) != nil {
			return autherrors.ErrConflict
		}
		value, err := json.Marshal(toUserRecord(&created))
		if err != nil {
			return err
		}
		if err := tx.Bucket(usersBucket).Put([]byte(created.ID), value); err != nil {
			return err
		}
		return emails.Put([]byte(created.Email), []byte(created.ID))
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &created, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	var rec userRecord
	err := r.s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(userEmailsBucket).Get([]byte(email))
		if id == nil {
			return autherrors.ErrNotFound
		}
		value := tx.Bucket(usersBucket).Get(id)
		if value == nil {
			return autherrors.ErrNotFound
		}
		return json.Unmarshal(value, &rec)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return rec.toUser(), nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	var rec userRecord
	err := r.s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(usersBucket).Get([]byte(id))
		if value == nil {
			return autherrors.ErrNotFound
		}
		return json.Unmarshal(value, &rec)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return rec.toUser(), nil
}

func (r userRepo) List(ctx context.Context) ([]*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	userList := make([]*users.User, 0)
	err := r.s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(usersBucket).ForEach(func(_, value []byte) error {
			var rec userRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return err
			}
			userList = append(userList, rec.toUser())
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return userList, nil
}

// clientRecord is the stored form of a client, keeping the secret hash the
// API model excludes from JSON.
type clientRecord struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	SecretHash string              `json:"secret_hash"`
	Grants     []clients.GrantType `json:"grants,omitempty"`
	Contact    string              `json:"contact,omitempty"`
}

func toClientRecord(c *clients.Client) clientRecord {
	return clientRecord{ID: c.ID, Name: c.Name, SecretHash: c.SecretHash, Grants: c.Grants, Contact: c.Contact}
}

func (rec clientRecord) toClient() *clients.Client {
	return &clients.Client{ID: rec.ID, Name: rec.Name, SecretHash: rec.SecretHash, Grants: rec.Grants, Contact: rec.Contact}
}

type clientRepo struct{ s *Store }

var _ clients.Repo = clientRepo{}

func (r clientRepo) Create(ctx context.Context, client *clients.Client) (*clients.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	created := *client
	if created.ID == "" {
		created.ID = uuid.New().String()
	}

	err := r.s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(clientsBucket)
		if bucket.Get([]byte(created.Name)) != nil {
			return autherrors.ErrConflict
		}
		value, err := json.Marshal(toClientRecord(&created))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(created.Name), value)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &created, nil
}

func (r clientRepo) GetByName(ctx context.Context, name string) (*clients.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	var rec clientRecord
	err := r.s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(clientsBucket).Get([]byte(name))
		if value == nil {
			return autherrors.ErrNotFound
		}
		return json.Unmarshal(value, &rec)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return rec.toClient(), nil
}

type accessTokenRepo struct{ s *Store }

var _ token.AccessTokenRepo = accessTokenRepo{}

func (r accessTokenRepo) Create(ctx context.Context, t *token.AccessToken) (*token.AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	created := *t
	err := r.s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(accessTokensBucket)
		if bucket.Get([]byte(created.Token)) != nil {
			return autherrors.ErrConflict
		}
		value, err := json.Marshal(created)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(created.Token), value)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &created, nil
}

func (r accessTokenRepo) Get(ctx context.Context, tokenStr string) (*token.AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	var record token.AccessToken
	err := r.s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(accessTokensBucket).Get([]byte(tokenStr))
		if value == nil {
			return autherrors.ErrNotFound
		}
		return json.Unmarshal(value, &record)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &record, nil
}

type refreshTokenRepo struct{ s *Store }

var _ token.RefreshTokenRepo = refreshTokenRepo{}

func (r refreshTokenRepo) Create(ctx context.Context, t *token.RefreshToken) (*token.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	created := *t
	err := r.s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(refreshTokensBucket)
		if bucket.Get([]byte(created.Token)) != nil {
			return autherrors.ErrConflict
		}
		value, err := json.Marshal(created)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(created.Token), value)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &created, nil
}

func (r refreshTokenRepo) Get(ctx context.Context, tokenStr string) (*token.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.ErrStoreUnavailable
	}

	var record token.RefreshToken
	err := r.s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(refreshTokensBucket).Get([]byte(tokenStr))
		if value == nil {
			return autherrors.ErrNotFound
		}
		return json.Unmarshal(value, &record)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &record, nil
}

// MarkRevoked flips the revoked flag inside a single update transaction, so
// a racing refresh either sees the flag or linearizes before it.
func (r refreshTokenRepo) MarkRevoked(ctx context.Context, tokenStr string) error {
	if err := ctx.Err(); err != nil {
		return autherrors.ErrStoreUnavailable
	}

	err := r.s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(refreshTokensBucket)
		value := bucket.Get([]byte(tokenStr))
		if value == nil {
			return autherrors.ErrNotFound
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
		return bucket.Put([]byte(tokenStr), updated)
	})
	return storeErr(err)
}
