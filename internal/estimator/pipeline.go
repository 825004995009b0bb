// Package estimator runs the SQL transform that turns raw watch batches into
// derived state estimates, and republishes a refresh event per affected user.
package estimator

import (
	_ "embed"

	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/repository/db"
)

//go:embed sql/views.sql
var viewsScript string

//go:embed sql/transform.sql
var transformScript string

// freshWindow is how far back a run looks for estimates to announce. Wider
// than the trigger cadence on purpose, so an announcement missed by a publish
// failure is retried by the next run.
const freshWindow = 5 * time.Minute

// Warehouse is the slice of the repository the pipeline needs.
type Warehouse interface {
	ExecScript(ctx context.Context, script string) error
	ListFreshStateEstimates(ctx context.Context, since time.Time) ([]db.FreshStateEstimate, error)
}

// Pipeline executes one estimation run end to end.
type Pipeline struct {
	warehouse Warehouse
	publisher events.Publisher
	logger    *zap.Logger
}

// NewPipeline wires the estimation stage.
func NewPipeline(warehouse Warehouse, publisher events.Publisher, logger *zap.Logger) *Pipeline {
	return &Pipeline{warehouse: warehouse, publisher: publisher, logger: logger}
}

// Run refreshes the sample views, executes the transform over all unprocessed
// batches, and publishes one refresh event per user whose estimate landed
// inside the look-back window. Publish failures are logged and swallowed: the
// estimates are durable and the next run re-announces them.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now()

	if err := p.warehouse.ExecScript(ctx, viewsScript); err != nil {
		return fmt.Errorf("refresh sample views: %w", err)
	}
	if err := p.warehouse.ExecScript(ctx, transformScript); err != nil {
		return fmt.Errorf("run transform: %w", err)
	}

	fresh, err := p.warehouse.ListFreshStateEstimates(ctx, time.Now().UTC().Add(-freshWindow))
	if err != nil {
		return fmt.Errorf("list fresh estimates: %w", err)
	}

	published := 0
	for _, est := range fresh {
		ev := events.StateEstimateEvent{UserID: est.UserID, Timestamp: est.Timestamp}
		if err := p.publisher.PublishStateEstimate(ctx, ev); err != nil {
			p.logger.Warn("publish state estimate event failed",
				zap.String("user_id", est.UserID), zap.Error(err))
			continue
		}
		published++
	}

	p.logger.Info("estimation run complete",
		zap.Int("fresh_estimates", len(fresh)),
		zap.Int("published", published),
		zap.Duration("duration", time.Since(started)))
	return nil
}
