package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundleID = "com.example.shift"

func newJWKSServer(t *testing.T, pub *rsa.PublicKey, kid string) *httptest.Server {
	t.Helper()
	doc := map[string]any{
		"keys": []map[string]string{{
			"kid": kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(doc)
	}))
}

func signIdentityToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestAuthenticateExchangesVerifiedToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := newJWKSServer(t, &key.PublicKey, "kid-1")
	defer jwks.Close()

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken":      "idp-id-token",
			"refreshToken": "idp-refresh",
			"expiresIn":    "3600",
			"localId":      "firebase-uid-1",
			"email":        "user@example.com",
		})
	}))
	defer idp.Close()

	a := NewAppleAuthenticatorWithEndpoints(testBundleID, "api-key", jwks.URL, idp.URL)

	identityToken := signIdentityToken(t, key, "kid-1", jwt.MapClaims{
		"iss": appleIssuer,
		"aud": testBundleID,
		"sub": "apple-sub",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	result, err := a.Authenticate(context.Background(), identityToken, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", result.UserID)
	assert.Equal(t, "idp-id-token", result.IDToken)
	assert.Equal(t, "idp-refresh", result.RefreshToken)
	assert.Equal(t, 3600, result.ExpiresIn)
	assert.Equal(t, "user@example.com", result.Email)
}

func TestAuthenticateRejectsWrongAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := newJWKSServer(t, &key.PublicKey, "kid-1")
	defer jwks.Close()

	a := NewAppleAuthenticatorWithEndpoints(testBundleID, "api-key", jwks.URL, "http://unused")

	identityToken := signIdentityToken(t, key, "kid-1", jwt.MapClaims{
		"iss": appleIssuer,
		"aud": "com.other.app",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = a.Authenticate(context.Background(), identityToken, "")
	require.ErrorIs(t, err, ErrVerification)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := newJWKSServer(t, &key.PublicKey, "kid-1")
	defer jwks.Close()

	a := NewAppleAuthenticatorWithEndpoints(testBundleID, "api-key", jwks.URL, "http://unused")

	identityToken := signIdentityToken(t, key, "kid-1", jwt.MapClaims{
		"iss": appleIssuer,
		"aud": testBundleID,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err = a.Authenticate(context.Background(), identityToken, "")
	require.ErrorIs(t, err, ErrVerification)
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	a := NewAppleAuthenticatorWithEndpoints(testBundleID, "api-key", "http://unused", "http://unused")
	_, err := a.Authenticate(context.Background(), "not.a.jwt", "")
	require.ErrorIs(t, err, ErrVerification)
}
