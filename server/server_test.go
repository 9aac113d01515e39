package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-service/internal/config"
	"github.com/jrsteele09/go-session-service/secrets"
	"github.com/jrsteele09/go-session-service/server"
	"github.com/jrsteele09/go-session-service/store/memory"
	"github.com/jrsteele09/go-session-service/token"
	"github.com/jrsteele09/go-session-service/users"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Abcdef1!"
	clientName    = "test-client"
	clientSecret  = "client-secret-1"
)

type testServer struct {
	srv   *httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppName:             "Session Service",
		Env:                 "TEST",
		StoreBackend:        config.StoreMemory,
		BcryptCost:          4,
		AccessTokenExpiry:   time.Hour,
		RefreshTokenExpiry:  168 * time.Hour,
		StoreTimeout:        5 * time.Second,
		AdminName:           "admin",
		AdminEmail:          adminEmail,
		AdminPassword:       adminPassword,
		DefaultClientName:   clientName,
		DefaultClientSecret: clientSecret,
	}

	store := memory.New()
	s, err := server.New(cfg, server.Repos{
		Users:   store.Users(),
		Clients: store.Clients(),
		Access:  store.AccessTokens(),
		Refresh: store.RefreshTokens(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store}
}

func (ts *testServer) postJSON(t *testing.T, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return ts.do(t, req)
}

func (ts *testServer) get(t *testing.T, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return ts.do(t, req)
}

func (ts *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func (ts *testServer) login(t *testing.T, email, password string) tokenPair {
	t.Helper()
	resp, body := ts.postJSON(t, "/auth/login", map[string]string{
		"client_name":   clientName,
		"client_secret": clientSecret,
		"email":         email,
		"password":      password,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var pair tokenPair
	require.NoError(t, json.Unmarshal(body, &pair))
	return pair
}

func bearer(pair tokenPair) map[string]string {
	return map[string]string{"Authorization": "Bearer " + pair.AccessToken}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	t.Run("valid credentials issue a token pair", func(t *testing.T) {
		pair := ts.login(t, adminEmail, adminPassword)
		require.Len(t, pair.AccessToken, 64)
		require.Len(t, pair.RefreshToken, 64)
		require.Equal(t, "bearer", pair.TokenType)
		require.Equal(t, 3600, pair.ExpiresIn)
	})

	t.Run("wrong password fails with 401", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/login", map[string]string{
			"client_name":   clientName,
			"client_secret": clientSecret,
			"email":         adminEmail,
			"password":      "wrong-password",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong client secret fails with 401", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/login", map[string]string{
			"client_name":   clientName,
			"client_secret": "wrong-secret",
			"email":         adminEmail,
			"password":      adminPassword,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown client fails with 404", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/login", map[string]string{
			"client_name":   "no-such-client",
			"client_secret": clientSecret,
			"email":         adminEmail,
			"password":      adminPassword,
		}, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed body fails with 400", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/auth/login", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		resp, _ := ts.do(t, req)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestValidateToken(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t, adminEmail, adminPassword)

	t.Run("live token returns its record", func(t *testing.T) {
		resp, body := ts.postJSON(t, "/auth/token/validate", map[string]string{"token": pair.AccessToken}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var record token.AccessToken
		require.NoError(t, json.Unmarshal(body, &record))
		require.Equal(t, pair.AccessToken, record.Token)
		require.NotEmpty(t, record.UserID)
		require.NotEmpty(t, record.ClientID)
	})

	t.Run("unknown token fails with 404", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/token/validate", map[string]string{"token": "unknown-token"}, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRefreshToken(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t, adminEmail, adminPassword)

	t.Run("live refresh token yields a new access token", func(t *testing.T) {
		resp, body := ts.postJSON(t, "/auth/token/refresh", map[string]string{"token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var refreshed tokenPair
		require.NoError(t, json.Unmarshal(body, &refreshed))
		require.NotEqual(t, pair.AccessToken, refreshed.AccessToken)
		require.Empty(t, refreshed.RefreshToken)

		// The new access token works for protected routes.
		resp, _ = ts.get(t, "/users", bearer(refreshed))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown token fails with 404", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/token/refresh", map[string]string{"token": "unknown-token"}, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRevokeToken(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t, adminEmail, adminPassword)

	resp, _ := ts.postJSON(t, "/auth/token/revoke", map[string]string{"token": pair.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("revoked token no longer refreshes", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/token/refresh", map[string]string{"token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("revoking again still succeeds", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/token/revoke", map[string]string{"token": pair.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("revoking an unknown token fails with 404", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/auth/token/revoke", map[string]string{"token": "unknown-token"}, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUserRoutes(t *testing.T) {
	ts := newTestServer(t)
	adminPair := ts.login(t, adminEmail, adminPassword)

	t.Run("missing bearer token fails with 401", func(t *testing.T) {
		resp, _ := ts.get(t, "/users", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown bearer token fails with 404", func(t *testing.T) {
		resp, _ := ts.get(t, "/users", map[string]string{"Authorization": "Bearer unknown-token"})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("admin creates a user", func(t *testing.T) {
		resp, body := ts.postJSON(t, "/users", map[string]string{
			"name":     "Alice",
			"email":    "alice@example.com",
			"password": "Ghijkl2?",
		}, bearer(adminPair))
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

		var created users.User
		require.NoError(t, json.Unmarshal(body, &created))
		require.NotEmpty(t, created.ID)
		require.Equal(t, "Alice", created.Name)
		require.NotContains(t, string(body), "Ghijkl2?")

		resp, body = ts.get(t, "/users/"+created.ID, bearer(adminPair))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var fetched users.User
		require.NoError(t, json.Unmarshal(body, &fetched))
		require.Equal(t, "alice@example.com", fetched.Email)
	})

	t.Run("invalid input returns the full ordered violation list", func(t *testing.T) {
		resp, body := ts.postJSON(t, "/users", map[string]string{}, bearer(adminPair))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var payload struct {
			Code   int      `json:"code"`
			Errors []string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, 400, payload.Code)
		require.Equal(t, []string{
			"Name is required.",
			"Email is required.",
			"Password must be at least 6 characters.",
			"Password must contain at least 1 uppercase letter.",
			"Password must contain at least 1 lowercase letter.",
			"Password must contain at least 1 digit.",
			"Password must contain at least 1 symbol.",
		}, payload.Errors)
	})

	t.Run("duplicate email fails with 409", func(t *testing.T) {
		resp, _ := ts.postJSON(t, "/users", map[string]string{
			"name":     "Other",
			"email":    adminEmail,
			"password": "Ghijkl2?",
		}, bearer(adminPair))
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("non-admin user cannot create users", func(t *testing.T) {
		hasher := secrets.NewHasher(4)
		passwordHash, err := hasher.Hash("Mnopqr3#")
		require.NoError(t, err)
		_, err = ts.store.Users().Create(context.Background(), &users.User{
			Name:         "Bob",
			Email:        "bob@example.com",
			PasswordHash: passwordHash,
		})
		require.NoError(t, err)

		bobPair := ts.login(t, "bob@example.com", "Mnopqr3#")
		resp, _ := ts.postJSON(t, "/users", map[string]string{
			"name":     "Carol",
			"email":    "carol@example.com",
			"password": "Stuvwx4$",
		}, bearer(bobPair))
		require.Equal(t, http.StatusForbidden, resp.StatusCode)

		// Reading the directory is still allowed.
		resp, _ = ts.get(t, "/users", bearer(bobPair))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown user id fails with 404", func(t *testing.T) {
		resp, _ := ts.get(t, "/users/no-such-id", bearer(adminPair))
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestBootstrapIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	// A second server over the same store must not duplicate the admin or
	// default client.
	cfg := &config.Config{
		Env:                 "TEST",
		StoreBackend:        config.StoreMemory,
		BcryptCost:          4,
		AccessTokenExpiry:   time.Hour,
		RefreshTokenExpiry:  168 * time.Hour,
		StoreTimeout:        5 * time.Second,
		AdminName:           "admin",
		AdminEmail:          adminEmail,
		AdminPassword:       adminPassword,
		DefaultClientName:   clientName,
		DefaultClientSecret: clientSecret,
	}
	_, err := server.New(cfg, server.Repos{
		Users:   ts.store.Users(),
		Clients: ts.store.Clients(),
		Access:  ts.store.AccessTokens(),
		Refresh: ts.store.RefreshTokens(),
	})
	require.NoError(t, err)

	userList, err := ts.store.Users().List(context.Background())
	require.NoError(t, err)
	require.Len(t, userList, 1)
}
