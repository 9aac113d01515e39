package clients

import "context"

// Repo is the directory store contract for client records. Implementations
// must be safe for concurrent use, enforce name uniqueness (returning
// autherrors.ErrConflict on duplicates), and return autherrors.ErrNotFound
// for absent records.
type Repo interface {
	Create(ctx context.Context, client *Client) (*Client, error)
	GetByName(ctx context.Context, name string) (*Client, error)
}
