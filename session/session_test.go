package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-service/clients"
	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/secrets"
	"github.com/jrsteele09/go-session-service/session"
	"github.com/jrsteele09/go-session-service/store/memory"
	"github.com/jrsteele09/go-session-service/token"
	"github.com/jrsteele09/go-session-service/users"
)

const (
	testClientName   = "test-client"
	testClientSecret = "client-secret-1"
	testUserName     = "Admin"
	testUserEmail    = "admin@example.com"
	testUserPassword = "Abcdef1!"
)

// testFixture holds all test dependencies.
type testFixture struct {
	store  *memory.Store
	hasher *secrets.Hasher
	tokens *token.Manager
	client *clients.Client
	user   *users.User
}

// setupTestFixture seeds a client and a user and builds the shared services.
// Each test creates its own session contexts from it, one per simulated
// request.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	hasher := secrets.NewHasher(4)

	secretHash, err := hasher.Hash(testClientSecret)
	require.NoError(t, err)
	client, err := store.Clients().Create(ctx, &clients.Client{
		Name:       testClientName,
		SecretHash: secretHash,
		Grants:     []clients.GrantType{clients.GrantPassword, clients.GrantRefreshToken},
	})
	require.NoError(t, err)

	passwordHash, err := hasher.Hash(testUserPassword)
	require.NoError(t, err)
	user, err := store.Users().Create(ctx, &users.User{
		Name:         testUserName,
		Email:        testUserEmail,
		PasswordHash: passwordHash,
		IsAdmin:      true,
	})
	require.NoError(t, err)

	tokens, err := token.New(token.Repos{Access: store.AccessTokens(), Refresh: store.RefreshTokens()})
	require.NoError(t, err)

	return &testFixture{store: store, hasher: hasher, tokens: tokens, client: client, user: user}
}

func (f *testFixture) newSession(t *testing.T) *session.Context {
	t.Helper()
	sess, err := session.New(
		session.Repos{Users: f.store.Users(), Clients: f.store.Clients()},
		f.tokens,
		f.hasher,
	)
	require.NoError(t, err)
	return sess
}

func TestContext_GetClient(t *testing.T) {
	ctx := context.Background()
	fixture := setupTestFixture(t)

	t.Run("valid name and secret resolves the client", func(t *testing.T) {
		sess := fixture.newSession(t)

		client, err := sess.GetClient(ctx, testClientName, testClientSecret)
		require.NoError(t, err)
		require.Equal(t, fixture.client.ID, client.ID)
		require.Equal(t, client, sess.CurrentClient())
	})

	t.Run("wrong secret fails with invalid credentials", func(t *testing.T) {
		sess := fixture.newSession(t)

		_, err := sess.GetClient(ctx, testClientName, "wrong-secret")
		require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
		require.Nil(t, sess.CurrentClient())
	})

	t.Run("unknown name fails with not found", func(t *testing.T) {
		sess := fixture.newSession(t)

		_, err := sess.GetClient(ctx, "no-such-client", testClientSecret)
		require.ErrorIs(t, err, autherrors.ErrNotFound)
	})
}

func TestContext_Authenticate(t *testing.T) {
	ctx := context.Background()
	fixture := setupTestFixture(t)

	t.Run("valid email and password resolves the user", func(t *testing.T) {
		sess := fixture.newSession(t)

		user, err := sess.Authenticate(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)
		require.Equal(t, testUserName, user.Name)

		current := sess.CurrentUser()
		require.NotNil(t, current)
		require.Equal(t, testUserName, current.Name)
	})

	t.Run("wrong password fails with invalid credentials", func(t *testing.T) {
		sess := fixture.newSession(t)

		_, err := sess.Authenticate(ctx, testUserEmail, "wrong-password")
		require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
		require.Nil(t, sess.CurrentUser())
	})

	t.Run("unknown email fails with not found", func(t *testing.T) {
		sess := fixture.newSession(t)

		_, err := sess.Authenticate(ctx, "nobody@example.com", testUserPassword)
		require.ErrorIs(t, err, autherrors.ErrNotFound)
	})

	t.Run("contexts are isolated between requests", func(t *testing.T) {
		first := fixture.newSession(t)
		_, err := first.Authenticate(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)

		second := fixture.newSession(t)
		require.Nil(t, second.CurrentUser())
		require.Nil(t, second.CurrentClient())
	})
}

func TestContext_SaveAndValidateAccessToken(t *testing.T) {
	ctx := context.Background()
	fixture := setupTestFixture(t)
	futureExpiry := time.Now().Add(time.Hour)

	t.Run("save requires both principals", func(t *testing.T) {
		sess := fixture.newSession(t)

		err := sess.SaveAccessToken(ctx, "T", futureExpiry)
		require.ErrorIs(t, err, autherrors.ErrNoCurrentPrincipal)

		_, err = sess.Authenticate(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)
		err = sess.SaveAccessToken(ctx, "T", futureExpiry)
		require.ErrorIs(t, err, autherrors.ErrNoCurrentPrincipal)
	})

	t.Run("saved token validates with the same string", func(t *testing.T) {
		sess := fixture.newSession(t)
		_, err := sess.GetClient(ctx, testClientName, testClientSecret)
		require.NoError(t, err)
		_, err = sess.Authenticate(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)

		require.NoError(t, sess.SaveAccessToken(ctx, "T", futureExpiry))

		record, err := sess.Validate(ctx, "T")
		require.NoError(t, err)
		require.Equal(t, "T", record.Token)
		require.Equal(t, fixture.user.ID, record.UserID)
		require.Equal(t, fixture.client.ID, record.ClientID)
	})

	t.Run("unknown token fails with not found", func(t *testing.T) {
		sess := fixture.newSession(t)
		_, err := sess.Validate(ctx, "unknown-token")
		require.ErrorIs(t, err, autherrors.ErrNotFound)
	})
}

func TestContext_RefreshAndRevoke(t *testing.T) {
	ctx := context.Background()
	fixture := setupTestFixture(t)
	futureExpiry := time.Now().Add(24 * time.Hour)

	authenticatedSession := func(t *testing.T) *session.Context {
		t.Helper()
		sess := fixture.newSession(t)
		_, err := sess.GetClient(ctx, testClientName, testClientSecret)
		require.NoError(t, err)
		_, err = sess.Authenticate(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)
		return sess
	}

	t.Run("saved refresh token produces a new access token", func(t *testing.T) {
		sess := authenticatedSession(t)
		require.NoError(t, sess.SaveRefreshToken(ctx, "R", futureExpiry))

		record, err := sess.Refresh(ctx, "R")
		require.NoError(t, err)
		require.NotEqual(t, "R", record.Token)
		require.Equal(t, fixture.user.ID, record.UserID)
		require.Equal(t, fixture.client.ID, record.ClientID)
	})

	t.Run("revoked refresh token fails with revoked", func(t *testing.T) {
		sess := authenticatedSession(t)
		require.NoError(t, sess.SaveRefreshToken(ctx, "R2", futureExpiry))

		require.NoError(t, sess.Revoke(ctx, "R2"))
		_, err := sess.Refresh(ctx, "R2")
		require.ErrorIs(t, err, autherrors.ErrRevoked)

		// Idempotent revocation.
		require.NoError(t, sess.Revoke(ctx, "R2"))
	})

	t.Run("revoking an unknown token fails with not found", func(t *testing.T) {
		sess := fixture.newSession(t)
		err := sess.Revoke(ctx, "unknown-token")
		require.ErrorIs(t, err, autherrors.ErrNotFound)
	})
}

func TestContext_ConcurrentTokenSaves(t *testing.T) {
	ctx := context.Background()
	fixture := setupTestFixture(t)
	futureExpiry := time.Now().Add(time.Hour)

	tokenStrs := []string{"concurrent-a", "concurrent-b"}
	saveErrs := make([]error, len(tokenStrs))

	var wg sync.WaitGroup
	for i, tokenStr := range tokenStrs {
		sess := fixture.newSession(t)
		wg.Add(1)
		go func(i int, tokenStr string, sess *session.Context) {
			defer wg.Done()

			if _, err := sess.GetClient(ctx, testClientName, testClientSecret); err != nil {
				saveErrs[i] = err
				return
			}
			if _, err := sess.Authenticate(ctx, testUserEmail, testUserPassword); err != nil {
				saveErrs[i] = err
				return
			}
			saveErrs[i] = sess.SaveAccessToken(ctx, tokenStr, futureExpiry)
		}(i, tokenStr, sess)
	}
	wg.Wait()

	for _, err := range saveErrs {
		require.NoError(t, err)
	}

	// Both racing saves landed and validate independently.
	checker := fixture.newSession(t)
	for _, tokenStr := range tokenStrs {
		record, err := checker.Validate(ctx, tokenStr)
		require.NoError(t, err)
		require.Equal(t, tokenStr, record.Token)
	}
}
