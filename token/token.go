// Package token owns the token lifecycle: issuing, validating, refreshing,
// and revoking opaque access and refresh tokens. Token strings are the sole
// authentication factor after issuance, so they are generated from
// cryptographically secure randomness and validated by store lookup.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

// tokenLength is the number of random bytes in a generated token string
// (32 bytes = 256 bits, hex encoded).
const tokenLength = 32

// AccessToken is a short-lived credential authorizing API calls. Records are
// never mutated after creation; new issuance supersedes rather than destroys.
type AccessToken struct {
	Token    string    `json:"token"`
	UserID   string    `json:"userId"`
	ClientID string    `json:"clientId"`
	Expiry   time.Time `json:"expiry"`
}

// RefreshToken is a longer-lived credential used solely to obtain new access
// tokens. Once the revoked flag is set it must never refresh again.
type RefreshToken struct {
	Token    string    `json:"token"`
	UserID   string    `json:"userId"`
	ClientID string    `json:"clientId"`
	Expiry   time.Time `json:"expiry"`
	Revoked  bool      `json:"revoked"`
}

// NewTokenString returns a fresh unguessable opaque token string.
func NewTokenString() (string, error) {
	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[token.NewTokenString] rand.Read")
	}
	return hex.EncodeToString(tokenBytes), nil
}
