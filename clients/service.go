package clients

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-service/secrets"
)

// Service provisions client records, hashing the secret before it reaches
// the store. Clients are otherwise immutable; secret rotation is not part of
// this surface.
type Service struct {
	repo   Repo
	hasher *secrets.Hasher
}

// NewService creates a client provisioning service.
func NewService(repo Repo, hasher *secrets.Hasher) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[clients.NewService] repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[clients.NewService] hasher is required")
	}
	return &Service{repo: repo, hasher: hasher}, nil
}

// AddClient hashes the secret and persists a new client owned by contact.
func (s *Service) AddClient(ctx context.Context, name, secret string, grants []GrantType, contact string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("[Service.AddClient] name is required")
	}
	if secret == "" {
		return nil, errors.New("[Service.AddClient] secret is required")
	}

	secretHash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.AddClient] hasher.Hash")
	}

	client, err := s.repo.Create(ctx, &Client{
		Name:       name,
		SecretHash: secretHash,
		Grants:     grants,
		Contact:    contact,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.AddClient] repo.Create")
	}
	return client, nil
}
