// Package auth verifies caller identity for the gateway. Two flows:
//
//   - Verifier checks a bearer ID token on every authenticated request and
//     resolves it to a user ID.
//   - AppleAuthenticator handles POST /auth/apple: it verifies the Sign in
//     with Apple identity token against Apple's JWKS and exchanges it with
//     Identity Platform for first-party tokens.
package auth

import (
	"context"
	"errors"
)

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID string
	Email  string
}

// Verifier resolves an opaque bearer token to an Identity.
// Verification failures are reported as ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

var (
	// ErrUnauthenticated marks tokens that failed verification; the HTTP
	// layer maps it to 401.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrVerification marks Apple identity tokens that failed verification;
	// the HTTP layer maps it to 400 on the auth endpoint.
	ErrVerification = errors.New("identity token verification failed")
)
