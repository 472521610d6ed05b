package client

import "context"

// Client is the auth API as seen by the CLI. Implementations keep the
// current token pair between calls.
type Client interface {
	Close() error
	Signup(ctx context.Context, email, password string) error
	Signin(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Ping(ctx context.Context) error
	Tokens() (accessToken, refreshToken string)
}
