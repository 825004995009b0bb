package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/selector"
	"github.com/meigsy/shift/pkg/natsclient"
)

const stateEstimatesDurable = "intervention-selector-state-estimates"

// StateEstimatesConsumer feeds refreshed state estimates into the
// intervention selector.
type StateEstimatesConsumer struct {
	nats      *natsclient.Client
	processor *selector.Processor
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewStateEstimatesConsumer constructs a StateEstimatesConsumer.
func NewStateEstimatesConsumer(n *natsclient.Client, p *selector.Processor, l *zap.Logger) *StateEstimatesConsumer {
	return &StateEstimatesConsumer{
		nats:      n,
		processor: p,
		logger:    l,
		tracer:    otel.Tracer("intervention-selector-consumer"),
	}
}

// Start creates a durable pull subscription and launches the processing loop
// in a background goroutine. The stream must already be provisioned.
func (c *StateEstimatesConsumer) Start(ctx context.Context) error {
	sub, err := c.nats.JS.PullSubscribe(
		natsclient.SubjectStateEstimatesAll,
		stateEstimatesDurable,
		nats.BindStream(natsclient.StreamStateEstimates),
	)
	if err != nil {
		return fmt.Errorf("state estimates consumer: PullSubscribe: %w", err)
	}

	c.logger.Info("state estimates consumer initialised",
		zap.String("stream", natsclient.StreamStateEstimates),
		zap.String("durable", stateEstimatesDurable),
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("state estimates consumer stopping")
				return
			default:
				msgs, err := sub.Fetch(10, nats.Context(ctx))
				if err != nil {
					continue
				}
				for _, msg := range msgs {
					c.processMessage(ctx, msg)
				}
			}
		}
	}()

	return nil
}

func (c *StateEstimatesConsumer) processMessage(ctx context.Context, msg *nats.Msg) {
	var event events.StateEstimateEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Warn("terminating malformed state estimate event", zap.Error(err))
		msg.Term()
		return
	}
	if event.UserID == "" {
		c.logger.Warn("terminating state estimate event with empty user_id")
		msg.Term()
		return
	}

	ctx, span := c.tracer.Start(ctx, "selector.handle")
	defer span.End()

	if err := c.processor.Handle(ctx, event); err != nil {
		span.RecordError(err)
		c.logger.Error("NAK state estimate event (transient error)",
			zap.String("user_id", event.UserID),
			zap.Error(err))
		msg.Nak()
		return
	}
	msg.Ack()
}
