package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	appleJWKSURL     = "https://appleid.apple.com/auth/keys"
	appleIssuer      = "https://appleid.apple.com"
	signInWithIdpURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithIdp"
)

// AppleAuthResult carries the Identity Platform tokens returned to the client
// after a successful Sign in with Apple exchange.
type AppleAuthResult struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    int
	UserID       string
	Email        string
	DisplayName  string
}

// AppleAuthenticator verifies Apple identity tokens and exchanges them with
// Identity Platform's signInWithIdp endpoint.
type AppleAuthenticator struct {
	bundleID string
	apiKey   string
	jwksURL  string
	idpURL   string
	client   *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewAppleAuthenticator creates an authenticator for the given app bundle ID
// (the expected aud claim) and Identity Platform API key.
func NewAppleAuthenticator(bundleID, apiKey string) *AppleAuthenticator {
	return &AppleAuthenticator{
		bundleID: bundleID,
		apiKey:   apiKey,
		jwksURL:  appleJWKSURL,
		idpURL:   signInWithIdpURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewAppleAuthenticatorWithEndpoints is the test seam for the two external
// endpoints.
func NewAppleAuthenticatorWithEndpoints(bundleID, apiKey, jwksURL, idpURL string) *AppleAuthenticator {
	a := NewAppleAuthenticator(bundleID, apiKey)
	a.jwksURL = jwksURL
	a.idpURL = idpURL
	return a
}

// Authenticate verifies the Apple identity token (signature, issuer,
// audience) and exchanges it for Identity Platform tokens. Verification
// failures wrap ErrVerification; exchange failures are returned as-is and
// map to 500.
func (a *AppleAuthenticator) Authenticate(ctx context.Context, identityToken, authorizationCode string) (AppleAuthResult, error) {
	if err := a.verifyIdentityToken(ctx, identityToken); err != nil {
		return AppleAuthResult{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return a.exchange(ctx, identityToken)
}

func (a *AppleAuthenticator) verifyIdentityToken(ctx context.Context, token string) error {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, a.keyFunc(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(a.bundleID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid identity token")
	}
	return nil
}

func (a *AppleAuthenticator) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("identity token missing kid header")
		}
		return a.keyForKid(ctx, kid)
	}
}

// appleJWK is the subset of a JWKS entry needed to rebuild an RSA key.
type appleJWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (a *AppleAuthenticator) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if key, ok := a.keys[kid]; ok && time.Since(a.fetchedAt) < certCacheTTL {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.jwksURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch Apple JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch Apple JWKS: HTTP %d", resp.StatusCode)
	}

	var doc struct {
		Keys []appleJWK `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode Apple JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := jwkToRSA(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	a.keys = keys
	a.fetchedAt = time.Now()

	key, ok := a.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no Apple key for kid %s", kid)
	}
	return key, nil
}

func jwkToRSA(k appleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

func (a *AppleAuthenticator) exchange(ctx context.Context, identityToken string) (AppleAuthResult, error) {
	postBody := url.Values{}
	postBody.Set("id_token", identityToken)
	postBody.Set("providerId", "apple.com")

	reqPayload := map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	body, err := json.Marshal(reqPayload)
	if err != nil {
		return AppleAuthResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.idpURL+"?key="+url.QueryEscape(a.apiKey), strings.NewReader(string(body)))
	if err != nil {
		return AppleAuthResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return AppleAuthResult{}, fmt.Errorf("signInWithIdp request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return AppleAuthResult{}, fmt.Errorf("signInWithIdp: HTTP %d", resp.StatusCode)
	}

	var idp struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&idp); err != nil {
		return AppleAuthResult{}, fmt.Errorf("decode signInWithIdp response: %w", err)
	}
	if idp.LocalID == "" {
		return AppleAuthResult{}, fmt.Errorf("signInWithIdp response missing user ID")
	}

	expiresIn := 3600
	if idp.ExpiresIn != "" {
		if n, err := strconv.Atoi(idp.ExpiresIn); err == nil {
			expiresIn = n
		}
	}

	return AppleAuthResult{
		IDToken:      idp.IDToken,
		RefreshToken: idp.RefreshToken,
		ExpiresIn:    expiresIn,
		UserID:       idp.LocalID,
		Email:        idp.Email,
		DisplayName:  idp.DisplayName,
	}, nil
}
