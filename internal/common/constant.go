package common

// Metadata keys used to carry tokens on guarded gRPC calls.
const (
	AccessTokenHeaderName  = "access_token"
	RefreshTokenHeaderName = "refresh_token"
)
