// Package consumer contains the NATS JetStream pull consumers that drive the
// two asynchronous pipeline stages.
//
// Design principles:
//   - Pull-based subscription (not push) for backpressure control.
//   - msg.Ack() is called only after the stage completes successfully.
//   - msg.Nak() requeues transient failures; msg.Term() discards poison pills.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/estimator"
	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/pkg/natsclient"
)

const watchEventsDurable = "state-estimator-watch-events"

// WatchEventsConsumer reacts to ingestion triggers by running the estimation
// pipeline. The trigger payload only identifies the batch; the pipeline
// itself sweeps every unprocessed row, so one run can drain many triggers.
type WatchEventsConsumer struct {
	nats     *natsclient.Client
	pipeline *estimator.Pipeline
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewWatchEventsConsumer constructs a WatchEventsConsumer.
func NewWatchEventsConsumer(n *natsclient.Client, p *estimator.Pipeline, l *zap.Logger) *WatchEventsConsumer {
	return &WatchEventsConsumer{
		nats:     n,
		pipeline: p,
		logger:   l,
		tracer:   otel.Tracer("state-estimator-consumer"),
	}
}

// Start creates a durable pull subscription and launches the processing loop
// in a background goroutine. The stream must already be provisioned.
func (c *WatchEventsConsumer) Start(ctx context.Context) error {
	sub, err := c.nats.JS.PullSubscribe(
		natsclient.SubjectWatchEventsAll,
		watchEventsDurable,
		nats.BindStream(natsclient.StreamWatchEvents),
	)
	if err != nil {
		return fmt.Errorf("watch events consumer: PullSubscribe: %w", err)
	}

	c.logger.Info("watch events consumer initialised",
		zap.String("stream", natsclient.StreamWatchEvents),
		zap.String("durable", watchEventsDurable),
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("watch events consumer stopping")
				return
			default:
				msgs, err := sub.Fetch(10, nats.Context(ctx))
				if err != nil {
					// Fetch returns nats.ErrTimeout on empty queue — not an error.
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

func (c *WatchEventsConsumer) processMessage(ctx context.Context, msg *nats.Msg) {
	var trigger events.WatchEventTrigger
	if err := json.Unmarshal(msg.Data, &trigger); err != nil {
		c.logger.Warn("terminating malformed watch event trigger", zap.Error(err))
		msg.Term()
		return
	}

	ctx, span := c.tracer.Start(ctx, "estimator.run")
	defer span.End()

	if err := c.pipeline.Run(ctx); err != nil {
		span.RecordError(err)
		c.logger.Error("NAK watch event trigger (transient error)",
			zap.String("user_id", trigger.UserID),
			zap.String("trace_id", trigger.TraceID),
			zap.Error(err))
		msg.Nak()
		return
	}
	msg.Ack()
}
