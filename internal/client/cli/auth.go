package cli

import (
	"context"
	"fmt"
	"io"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}

	return email, password, nil
}

// Signup prompts for an email and password, creates the account and keeps
// the issued token pair.
func (a *App) Signup(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer clear(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Signup(ctx, email, string(password)); err != nil {
		fmt.Fprintf(a.out, "Signup failed: %s\n", err)
		return err
	}

	a.email = email
	fmt.Fprintln(a.out, "Signed up, session started")
	return nil
}

// Signin prompts for credentials and starts a new session.
func (a *App) Signin(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer clear(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Signin(ctx, email, string(password)); err != nil {
		fmt.Fprintf(a.out, "Signin failed: %s\n", err)
		return err
	}

	a.email = email
	fmt.Fprintln(a.out, "Signed in")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Logout(ctx); err != nil {
		fmt.Fprintf(a.out, "Logout failed: %s\n", err)
		return err
	}

	a.email = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Refresh(ctx); err != nil {
		fmt.Fprintf(a.out, "Refresh failed: %s\n", err)
		return err
	}

	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// ShowTokens prints the current pair.
func (a *App) ShowTokens(context.Context) error {
	printTokens(a.out, a.client)
	return nil
}

func printTokens(w io.Writer, c interface{ Tokens() (string, string) }) {
	access, refresh := c.Tokens()
	if access == "" {
		fmt.Fprintln(w, "No active session")
		return
	}
	fmt.Fprintf(w, "access_token:  %s\nrefresh_token: %s\n", access, refresh)
}
