package natsclient

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	// StreamWatchEvents is the durable stream carrying ingestion triggers
	// published by the gateway after a raw batch lands in the warehouse.
	StreamWatchEvents = "WATCH_EVENTS"
	// SubjectWatchEventsIngested is the concrete subject for batch triggers.
	SubjectWatchEventsIngested = "watch_events.ingested"
	// SubjectWatchEventsAll is the wildcard consumers subscribe to.
	SubjectWatchEventsAll = "watch_events.>"

	// StreamStateEstimates carries one message per user whose derived state
	// was refreshed by the state-estimator transform.
	StreamStateEstimates = "STATE_ESTIMATES"
	// SubjectStateEstimatesRefreshed is the concrete subject for refresh events.
	SubjectStateEstimatesRefreshed = "state_estimates.refreshed"
	// SubjectStateEstimatesAll is the wildcard consumers subscribe to.
	SubjectStateEstimatesAll = "state_estimates.>"

	// DedupBucket is the KeyValue bucket holding ingestion dedup locks keyed
	// by (user, batch fetch time). Presence of a key means "already ingested".
	DedupBucket = "ingest_dedup"
)

// ProvisionStreams idempotently creates the two pipeline streams and the
// ingestion dedup KeyValue bucket.
func (c *Client) ProvisionStreams() error {
	streams := []*nats.StreamConfig{
		{
			Name:      StreamWatchEvents,
			Subjects:  []string{SubjectWatchEventsAll},
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
		},
		{
			Name:      StreamStateEstimates,
			Subjects:  []string{SubjectStateEstimatesAll},
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
		},
	}

	for _, cfg := range streams {
		_, err := c.JS.StreamInfo(cfg.Name)
		if err == nil {
			c.Log.Info("NATS stream exists", zap.String("stream", cfg.Name))
			continue
		}
		if err != nats.ErrStreamNotFound {
			return fmt.Errorf("failed to check stream info: %w", err)
		}
		if _, err := c.JS.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}
		c.Log.Info("NATS stream provisioned", zap.String("stream", cfg.Name))
	}

	if _, err := c.JS.KeyValue(DedupBucket); err != nil {
		if err != nats.ErrBucketNotFound {
			return fmt.Errorf("failed to check KV bucket: %w", err)
		}
		if _, err := c.JS.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:  DedupBucket,
			Storage: nats.FileStorage,
		}); err != nil {
			return fmt.Errorf("failed to create KV bucket %s: %w", DedupBucket, err)
		}
		c.Log.Info("NATS KV bucket provisioned", zap.String("bucket", DedupBucket))
	}

	return nil
}
