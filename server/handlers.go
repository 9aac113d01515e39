package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-service/internal/autherrors"
	"github.com/jrsteele09/go-session-service/token"
)

const contentTypeJSON = "application/json; charset=utf-8"

type loginRequest struct {
	ClientName   string `json:"client_name"`
	ClientSecret string `json:"client_secret"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// LoginHandler authenticates the calling client and user, then issues and
// persists an access/refresh token pair bound to them.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		sess, err := s.newSession()
		if err != nil {
			writeError(w, err)
			return
		}

		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		if _, err := sess.GetClient(ctx, req.ClientName, req.ClientSecret); err != nil {
			writeError(w, err)
			return
		}
		if _, err := sess.Authenticate(ctx, req.Email, req.Password); err != nil {
			writeError(w, err)
			return
		}

		accessStr, err := token.NewTokenString()
		if err != nil {
			writeError(w, err)
			return
		}
		refreshStr, err := token.NewTokenString()
		if err != nil {
			writeError(w, err)
			return
		}

		now := time.Now()
		if err := sess.SaveAccessToken(ctx, accessStr, now.Add(s.config.AccessTokenExpiry)); err != nil {
			writeError(w, err)
			return
		}
		if err := sess.SaveRefreshToken(ctx, refreshStr, now.Add(s.config.RefreshTokenExpiry)); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken:  accessStr,
			RefreshToken: refreshStr,
			TokenType:    "bearer",
			ExpiresIn:    int(s.config.AccessTokenExpiry.Seconds()),
		})
	}
}

// ValidateTokenHandler returns the access token record for a live token.
func (s *Server) ValidateTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		sess, err := s.newSession()
		if err != nil {
			writeError(w, err)
			return
		}

		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		record, err := sess.Validate(ctx, req.Token)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// RefreshTokenHandler exchanges a live refresh token for a new access token.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		sess, err := s.newSession()
		if err != nil {
			writeError(w, err)
			return
		}

		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		record, err := sess.Refresh(ctx, req.Token)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: record.Token,
			TokenType:   "bearer",
			ExpiresIn:   int(time.Until(record.Expiry).Seconds()),
		})
	}
}

// RevokeTokenHandler revokes a refresh token; revoking twice is fine.
func (s *Server) RevokeTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		sess, err := s.newSession()
		if err != nil {
			writeError(w, err)
			return
		}

		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		if err := sess.Revoke(ctx, req.Token); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the failure taxonomy onto HTTP statuses. Validation
// failures return the complete ordered violation list.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *autherrors.ValidationError
	if autherrors.As(err, &validationErr) {
		writeJSON(w, validationErr.Code, validationErr)
		return
	}

	switch {
	case autherrors.Is(err, autherrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: autherrors.ErrNotFound.Error()})
	case autherrors.Is(err, autherrors.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: autherrors.ErrInvalidCredentials.Error()})
	case autherrors.Is(err, autherrors.ErrExpired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: autherrors.ErrExpired.Error()})
	case autherrors.Is(err, autherrors.ErrRevoked):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: autherrors.ErrRevoked.Error()})
	case autherrors.Is(err, autherrors.ErrNoCurrentPrincipal):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: autherrors.ErrNoCurrentPrincipal.Error()})
	case autherrors.Is(err, autherrors.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: autherrors.ErrConflict.Error()})
	case autherrors.Is(err, autherrors.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: autherrors.ErrStoreUnavailable.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
