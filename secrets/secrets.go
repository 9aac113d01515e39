// Package secrets provides one-way hashing and verification for passwords and
// client secrets. Hashes embed a fresh random salt, so two hashes of the same
// secret differ; comparison is resistant to timing side-channels.
package secrets

import "golang.org/x/crypto/bcrypt"

// Hasher hashes and verifies secrets with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher. A cost outside bcrypt's supported range falls
// back to the library default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the secret.
func (h *Hasher) Hash(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	return string(bytes), err
}

// Verify reports whether secret matches the stored hash. A malformed hash
// verifies as false rather than returning an error.
func (h *Hasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
