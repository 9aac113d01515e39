// Package clients holds API consumer identities: the Client record, its
// repository contract, and the provisioning service.
package clients

// GrantType names a flow a client is permitted to use.
type GrantType string

const (
	GrantPassword     GrantType = "password"
	GrantRefreshToken GrantType = "refresh_token"
)

// Client is the identity of an API consumer. The secret is only ever held as
// a hash; it is never stored or compared in plaintext.
type Client struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"` // Unique client name
	SecretHash string      `json:"-"`    // Hashed client secret - never serialize
	Grants     []GrantType `json:"grants"`
	Contact    string      `json:"contact"` // Owning user ID
}

// HasGrant reports whether the client is permitted the given flow.
func (c *Client) HasGrant(grant GrantType) bool {
	for _, g := range c.Grants {
		if g == grant {
			return true
		}
	}
	return false
}
