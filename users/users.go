// Package users holds the user directory: the User record, the repository
// contract, new-user validation, and the directory service.
package users

// User is a principal that can authenticate with a password.
type User struct {
	ID           string `json:"id,omitempty"`      // Unique identifier for the user
	Name         string `json:"name"`              // Display name
	Email        string `json:"email"`             // User's email address (unique)
	SMS          string `json:"sms"`               // Optional phone/sms contact, "" when omitted
	PasswordHash string `json:"-"`                 // Hashed password - never serialize
	IsAdmin      bool   `json:"isAdmin,omitempty"` // Administrator flag
}
