package models

import "time"

// User is one row of the users table. RefreshTokenHash is nil while the
// user has no active session.
type User struct {
	ID               int64
	Email            string
	PasswordHash     string
	RefreshTokenHash *string
	CreatedAt        time.Time
}

// HasSession reports whether a refresh-token hash is stored.
func (u *User) HasSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
