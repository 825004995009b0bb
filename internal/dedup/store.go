// Package dedup implements the ingestion dedup lock over a JetStream
// KeyValue bucket. A key is claimed atomically with kv.Create, which fails
// when the key already exists — that failure IS the duplicate signal.
package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/meigsy/shift/pkg/natsclient"
)

// ClaimMetadata is stored under the dedup key at claim time and returned to
// duplicate callers so they can report the original sample count.
type ClaimMetadata struct {
	UserID       string    `json:"user_id"`
	IngestedAt   time.Time `json:"ingested_at"`
	TotalSamples int       `json:"total_samples"`
}

// Store claims (user, batch fetch time) keys exactly once.
type Store interface {
	// Claim attempts to claim key. It returns claimed=true when this caller
	// won the key, or claimed=false plus the original claim's metadata when
	// the key was already taken.
	Claim(ctx context.Context, key string, meta ClaimMetadata) (claimed bool, existing ClaimMetadata, err error)
}

// Key builds the dedup key for a batch. Fetch time is normalised to UTC so
// the same instant always maps to the same key regardless of client zone.
// Dots are not legal in KV keys, so the RFC3339 form is sanitised.
func Key(userID string, fetchedAt time.Time) string {
	ts := fetchedAt.UTC().Format("20060102T150405.000Z")
	return fmt.Sprintf("user_%s.time_%s", sanitize(userID), sanitizeTS(ts))
}

func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func sanitizeTS(ts string) string {
	out := []byte(ts)
	for i := range out {
		if out[i] == '.' || out[i] == ':' {
			out[i] = '_'
		}
	}
	return string(out)
}

// KVStore is the JetStream KeyValue implementation of Store.
type KVStore struct {
	kv nats.KeyValue
}

// NewKVStore binds to the provisioned dedup bucket.
func NewKVStore(nc *natsclient.Client) (*KVStore, error) {
	kv, err := nc.JS.KeyValue(natsclient.DedupBucket)
	if err != nil {
		return nil, fmt.Errorf("bind dedup KV bucket: %w", err)
	}
	return &KVStore{kv: kv}, nil
}

func (s *KVStore) Claim(ctx context.Context, key string, meta ClaimMetadata) (bool, ClaimMetadata, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return false, ClaimMetadata{}, fmt.Errorf("marshal claim metadata: %w", err)
	}

	_, err = s.kv.Create(key, data)
	if err == nil {
		return true, meta, nil
	}
	if !errors.Is(err, nats.ErrKeyExists) {
		return false, ClaimMetadata{}, fmt.Errorf("claim dedup key %s: %w", key, err)
	}

	// Lost the claim — read back the winner's metadata for the duplicate
	// response. A missing entry here means the key was claimed and the
	// bucket was compacted between our Create and Get; treat it as a bare
	// duplicate.
	entry, getErr := s.kv.Get(key)
	if getErr != nil {
		return false, ClaimMetadata{}, nil
	}
	var existing ClaimMetadata
	if err := json.Unmarshal(entry.Value(), &existing); err != nil {
		return false, ClaimMetadata{}, nil
	}
	return false, existing, nil
}
