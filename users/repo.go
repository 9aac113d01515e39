package users

import "context"

// Repo is the directory store contract for user records. Implementations must
// be safe for concurrent use, enforce email uniqueness (returning
// autherrors.ErrConflict on duplicates), and return autherrors.ErrNotFound for
// absent records. Timeouts surface as autherrors.ErrStoreUnavailable.
type Repo interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
