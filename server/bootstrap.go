package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-service/clients"
	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/users"
)

// bootstrap provisions the configured admin user and a default client on
// first start. Generated credentials are logged exactly once, on creation.
func (s *Server) bootstrap(ctx context.Context) error {
	if s.config.AdminEmail == "" {
		return nil
	}

	admin, err := s.ensureAdminUser(ctx)
	if err != nil {
		return errors.Wrap(err, "[Server.bootstrap] ensureAdminUser")
	}

	if s.config.DefaultClientName != "" {
		if err := s.ensureDefaultClient(ctx, admin); err != nil {
			return errors.Wrap(err, "[Server.bootstrap] ensureDefaultClient")
		}
	}
	return nil
}

func (s *Server) ensureAdminUser(ctx context.Context) (*users.User, error) {
	existing, err := s.repos.Users.GetByEmail(ctx, s.config.AdminEmail)
	if err == nil {
		return existing, nil
	}
	if !autherrors.Is(err, autherrors.ErrNotFound) {
		return nil, err
	}

	password := s.config.AdminPassword
	generated := false
	if password == "" {
		password, err = generateSecret()
		if err != nil {
			return nil, err
		}
		generated = true
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	admin, err := s.repos.Users.Create(ctx, &users.User{
		Name:         s.config.AdminName,
		Email:        s.config.AdminEmail,
		PasswordHash: passwordHash,
		IsAdmin:      true,
	})
	if err != nil {
		return nil, err
	}

	event := log.Info().Str("email", admin.Email)
	if generated {
		event = event.Str("password", password)
	}
	event.Msg("bootstrap: admin user created")
	return admin, nil
}

func (s *Server) ensureDefaultClient(ctx context.Context, admin *users.User) error {
	if _, err := s.repos.Clients.GetByName(ctx, s.config.DefaultClientName); err == nil {
		return nil
	} else if !autherrors.Is(err, autherrors.ErrNotFound) {
		return err
	}

	secret := s.config.DefaultClientSecret
	generated := false
	if secret == "" {
		var err error
		secret, err = generateSecret()
		if err != nil {
			return err
		}
		generated = true
	}

	client, err := s.clientSvc.AddClient(ctx, s.config.DefaultClientName, secret,
		[]clients.GrantType{clients.GrantPassword, clients.GrantRefreshToken}, admin.ID)
	if err != nil {
		return err
	}

	event := log.Info().Str("client", client.Name)
	if generated {
		event = event.Str("secret", secret)
	}
	event.Msg("bootstrap: default client created")
	return nil
}

func generateSecret() (string, error) {
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", errors.Wrap(err, "generateSecret rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(secretBytes), nil
}
