// Package client contains the client side of GophAuth.
//
// The Client interface is the API contract used by the CLI. GRPCClient
// implements it over gophauth.AuthService: it keeps the current token pair,
// attaches the access or refresh token to guarded calls, and when a call
// fails with "token expired" it rotates the pair once and retries.
//
// gRPC status codes are mapped to sentinel errors (ErrUnauthorized,
// ErrForbidden, ErrInvalidArgument, ErrUnavailable) that callers match with
// errors.Is; the server's message is kept in the error text.
package client
