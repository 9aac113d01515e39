package users

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/secrets"
)

// Service is the directory service for user records. It runs new-user input
// through the validation rules, hashes passwords before they reach the store,
// and never persists a partially-validated user.
type Service struct {
	repo   Repo
	hasher *secrets.Hasher
}

// NewService creates a directory service.
func NewService(repo Repo, hasher *secrets.Hasher) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[users.NewService] repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[users.NewService] hasher is required")
	}
	return &Service{repo: repo, hasher: hasher}, nil
}

// GetUsers returns all users in the store's natural order.
func (s *Service) GetUsers(ctx context.Context) ([]*User, error) {
	userList, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetUsers] repo.List")
	}
	return userList, nil
}

// GetUser returns the user with the given id, or autherrors.ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetUser] repo.GetByID")
	}
	return user, nil
}

// AddUser validates the input, hashes the password, and persists the new
// user. On any policy violation it fails with a *autherrors.ValidationError
// carrying the complete ordered violation list; nothing is persisted.
// An omitted sms defaults to the empty string.
func (s *Service) AddUser(ctx context.Context, name, email, sms, password string) (*User, error) {
	input := NewUserInput{Name: name, Email: email, SMS: sms, Password: password}
	if result := ValidateNewUser(input); !result.Valid() {
		return nil, autherrors.NewValidationError(result.Violations)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.AddUser] hasher.Hash")
	}

	user, err := s.repo.Create(ctx, &User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		SMS:          sms,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.AddUser] repo.Create")
	}
	return user, nil
}
