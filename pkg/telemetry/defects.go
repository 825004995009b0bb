package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DefectCounter counts traceability defects: places where a trace ID was
// expected but absent and had to be minted locally. The count is exported as
// the traceability_defects_total metric and doubles as an SLO input for
// per-batch causal analytics coverage.
type DefectCounter struct {
	counter metric.Int64Counter
	logger  *zap.Logger
}

// NewDefectCounter registers the traceability defect counter on the global
// meter provider.
func NewDefectCounter(logger *zap.Logger) *DefectCounter {
	meter := otel.Meter("shift-backend")
	counter, err := meter.Int64Counter("traceability_defects_total",
		metric.WithDescription("Count of rows that required a locally minted trace_id"),
	)
	if err != nil {
		// A no-op meter never errors; a real one failing here means the
		// SDK is misconfigured. Log and continue with a nil counter.
		logger.Error("failed to register traceability defect counter", zap.Error(err))
	}
	return &DefectCounter{counter: counter, logger: logger}
}

// MintTraceID generates a fresh trace ID, records the defect against the
// given pipeline component, and emits a high-severity log line. Callers use
// this only when an upstream trace ID is missing.
func (d *DefectCounter) MintTraceID(ctx context.Context, component string) string {
	traceID := uuid.NewString()
	if d.counter != nil {
		d.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
	}
	d.logger.Error("traceability defect: trace_id missing, minted locally",
		zap.String("component", component),
		zap.String("minted_trace_id", traceID),
	)
	return traceID
}
