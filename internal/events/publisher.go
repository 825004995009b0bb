package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meigsy/shift/pkg/natsclient"
)

// Publisher emits pipeline trigger messages. Both stages treat publish
// failures as recoverable: the ingestion claim and the warehouse rows are
// already durable, and the estimator's look-back window re-emits on the
// next run.
type Publisher interface {
	PublishWatchEvent(ctx context.Context, ev WatchEventTrigger) error
	PublishStateEstimate(ctx context.Context, ev StateEstimateEvent) error
}

// JetStreamPublisher publishes onto the provisioned JetStream streams.
type JetStreamPublisher struct {
	nc *natsclient.Client
}

// NewJetStreamPublisher creates a JetStreamPublisher.
func NewJetStreamPublisher(nc *natsclient.Client) *JetStreamPublisher {
	return &JetStreamPublisher{nc: nc}
}

func (p *JetStreamPublisher) PublishWatchEvent(ctx context.Context, ev WatchEventTrigger) error {
	return p.publish(natsclient.SubjectWatchEventsIngested, ev)
}

func (p *JetStreamPublisher) PublishStateEstimate(ctx context.Context, ev StateEstimateEvent) error {
	return p.publish(natsclient.SubjectStateEstimatesRefreshed, ev)
}

func (p *JetStreamPublisher) publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	if _, err := p.nc.JS.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
