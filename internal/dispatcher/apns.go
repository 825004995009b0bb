// Package dispatcher delivers intervention notifications to user devices
// over APNs.
package dispatcher

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	apnsProductionHost = "https://api.push.apple.com"

	// Apple rejects provider tokens older than an hour; refresh well before.
	providerTokenTTL = 40 * time.Minute
)

// Notification is the push payload for a newly created intervention
// instance. The instance ID rides along so the client can report status
// changes against it.
type Notification struct {
	Title                  string
	Body                   string
	InterventionInstanceID string
}

// PushSender delivers a notification to a single device token.
type PushSender interface {
	Send(ctx context.Context, deviceToken string, n Notification) error
}

// APNSDispatcher sends pushes over APNs HTTP/2 using ES256 provider token
// authentication.
type APNSDispatcher struct {
	host   string
	topic  string
	keyID  string
	teamID string
	key    *ecdsa.PrivateKey
	client *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	token       string
	tokenIssued time.Time
}

// NewAPNSDispatcher parses the PEM-encoded .p8 signing key and returns a
// dispatcher targeting the production APNs host. topic is the app bundle ID.
func NewAPNSDispatcher(signingKeyPEM []byte, keyID, teamID, topic string, logger *zap.Logger) (*APNSDispatcher, error) {
	block, _ := pem.Decode(signingKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("apns signing key is not PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse apns signing key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("apns signing key is not an ECDSA key")
	}
	return &APNSDispatcher{
		host:   apnsProductionHost,
		topic:  topic,
		keyID:  keyID,
		teamID: teamID,
		key:    key,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// NewAPNSDispatcherWithHost is the test seam for the APNs endpoint.
func NewAPNSDispatcherWithHost(signingKeyPEM []byte, keyID, teamID, topic, host string, logger *zap.Logger) (*APNSDispatcher, error) {
	d, err := NewAPNSDispatcher(signingKeyPEM, keyID, teamID, topic, logger)
	if err != nil {
		return nil, err
	}
	d.host = host
	return d, nil
}

// Send posts the notification to APNs. Non-200 responses are returned as
// errors with Apple's reason string when one is present.
func (d *APNSDispatcher) Send(ctx context.Context, deviceToken string, n Notification) error {
	providerToken, err := d.providerToken()
	if err != nil {
		return fmt.Errorf("apns provider token: %w", err)
	}

	payload := map[string]any{
		"aps": map[string]any{
			"alert": map[string]string{
				"title": n.Title,
				"body":  n.Body,
			},
			"sound": "default",
		},
		"intervention_instance_id": n.InterventionInstanceID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.host+"/3/device/"+deviceToken, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("authorization", "bearer "+providerToken)
	req.Header.Set("apns-topic", d.topic)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("content-type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("apns request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apnsErr struct {
			Reason string `json:"reason"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apnsErr)
		return fmt.Errorf("apns rejected push: HTTP %d reason=%s", resp.StatusCode, apnsErr.Reason)
	}

	d.logger.Debug("push delivered",
		zap.String("intervention_instance_id", n.InterventionInstanceID))
	return nil
}

func (d *APNSDispatcher) providerToken() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.token != "" && time.Since(d.tokenIssued) < providerTokenTTL {
		return d.token, nil
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": d.teamID,
		"iat": now.Unix(),
	})
	tok.Header["kid"] = d.keyID

	signed, err := tok.SignedString(d.key)
	if err != nil {
		return "", err
	}
	d.token = signed
	d.tokenIssued = now
	return signed, nil
}
