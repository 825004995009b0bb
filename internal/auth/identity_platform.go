package auth

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// securetokenCertsURL serves the rotating X.509 certificates Identity
// Platform signs ID tokens with, keyed by kid.
const securetokenCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const certCacheTTL = time.Hour

// IdentityPlatformVerifier validates Identity Platform ID tokens (RS256 JWTs
// issued by securetoken.google.com) and extracts the user ID from the sub
// claim.
type IdentityPlatformVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client

	mu        sync.Mutex
	certs     map[string]string
	fetchedAt time.Time
}

// NewIdentityPlatformVerifier creates a verifier for the given GCP project.
func NewIdentityPlatformVerifier(projectID string) *IdentityPlatformVerifier {
	return &IdentityPlatformVerifier{
		projectID: projectID,
		certsURL:  securetokenCertsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewIdentityPlatformVerifierWithCertsURL is the test seam: it points the
// verifier at an alternative certificate endpoint.
func NewIdentityPlatformVerifierWithCertsURL(projectID, certsURL string) *IdentityPlatformVerifier {
	v := NewIdentityPlatformVerifier(projectID)
	v.certsURL = certsURL
	return v
}

// Verify parses and validates the ID token: signature against the published
// certs, issuer, audience, and expiry. Any failure maps to ErrUnauthenticated.
func (v *IdentityPlatformVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: token missing sub claim", ErrUnauthenticated)
	}

	email, _ := claims["email"].(string)
	return Identity{UserID: sub, Email: email}, nil
}

func (v *IdentityPlatformVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token missing kid header")
		}
		certPEM, err := v.certForKid(ctx, kid)
		if err != nil {
			return nil, err
		}
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			return nil, fmt.Errorf("malformed certificate for kid %s", kid)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate for kid %s: %w", kid, err)
		}
		return cert.PublicKey, nil
	}
}

func (v *IdentityPlatformVerifier) certForKid(ctx context.Context, kid string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if cert, ok := v.certs[kid]; ok && time.Since(v.fetchedAt) < certCacheTTL {
		return cert, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch securetoken certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch securetoken certs: HTTP %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return "", fmt.Errorf("decode securetoken certs: %w", err)
	}
	v.certs = certs
	v.fetchedAt = time.Now()

	cert, ok := v.certs[kid]
	if !ok {
		return "", fmt.Errorf("no certificate for kid %s", kid)
	}
	return cert, nil
}
