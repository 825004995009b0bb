package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProjectID = "shift-test"

// newCertsServer serves a kid→PEM certificate map the way the securetoken
// metadata endpoint does.
func newCertsServer(t *testing.T, key *rsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{kid: string(certPEM)})
	}))
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifyResolvesIdentity(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	certs := newCertsServer(t, key, "kid-1")
	defer certs.Close()

	v := NewIdentityPlatformVerifierWithCertsURL(testProjectID, certs.URL)

	token := signIDToken(t, key, "kid-1", jwt.MapClaims{
		"iss":   "https://securetoken.google.com/" + testProjectID,
		"aud":   testProjectID,
		"sub":   "firebase-uid-1",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", identity.UserID)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestVerifyRejectsWrongProject(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	certs := newCertsServer(t, key, "kid-1")
	defer certs.Close()

	v := NewIdentityPlatformVerifierWithCertsURL(testProjectID, certs.URL)

	token := signIDToken(t, key, "kid-1", jwt.MapClaims{
		"iss": "https://securetoken.google.com/other-project",
		"aud": "other-project",
		"sub": "firebase-uid-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	certs := newCertsServer(t, key, "kid-1")
	defer certs.Close()

	v := NewIdentityPlatformVerifierWithCertsURL(testProjectID, certs.URL)

	token := signIDToken(t, key, "kid-1", jwt.MapClaims{
		"iss": "https://securetoken.google.com/" + testProjectID,
		"aud": testProjectID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewIdentityPlatformVerifier(testProjectID)
	_, err := v.Verify(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, ErrUnauthenticated)
}
