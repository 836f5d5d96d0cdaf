// Package middleware provides authentication and authorization middleware for the application.
package middleware

// TokenIssuer and TokenAudience are validated on every parsed token.
const (
	TokenIssuer   = "haven-api"
	TokenAudience = "haven-client"
)
