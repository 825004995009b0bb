// Package service holds the gateway's domain services. Handlers stay thin:
// they decode, authenticate, and delegate here.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/dedup"
	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/model"
	"github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/pkg/telemetry"
)

// Sentinel errors the HTTP layer maps to status codes.
var (
	// ErrInvalidBatch marks malformed ingestion payloads (400).
	ErrInvalidBatch = errors.New("invalid batch")
	// ErrUserMismatch marks body user IDs that contradict the token (403).
	ErrUserMismatch = errors.New("user mismatch")
	// ErrInvalidScope marks unknown reset scopes (400).
	ErrInvalidScope = errors.New("invalid reset scope")
	// ErrNotFound marks lookups for rows that do not exist (404).
	ErrNotFound = errors.New("not found")
)

// IngestResult is what the gateway reports back for an accepted or duplicate
// batch.
type IngestResult struct {
	Duplicate    bool
	TraceID      string
	TotalSamples int
}

// IngestionService persists raw watch batches exactly once and triggers the
// estimation stage.
type IngestionService struct {
	querier   db.Querier
	dedup     dedup.Store
	publisher events.Publisher
	defects   *telemetry.DefectCounter
	logger    *zap.Logger
}

// NewIngestionService wires the ingestion path.
func NewIngestionService(querier db.Querier, store dedup.Store, publisher events.Publisher, defects *telemetry.DefectCounter, logger *zap.Logger) *IngestionService {
	return &IngestionService{querier: querier, dedup: store, publisher: publisher, defects: defects, logger: logger}
}

// Ingest claims the batch's (user, fetchedAt) identity, persists the raw
// payload, and publishes the estimation trigger. Duplicates are reported, not
// failed: the client's retry already succeeded once.
func (s *IngestionService) Ingest(ctx context.Context, userID string, batch *model.HealthDataBatch) (IngestResult, error) {
	if batch.FetchedAt.IsZero() {
		return IngestResult{}, fmt.Errorf("%w: fetchedAt is required", ErrInvalidBatch)
	}

	traceID := batch.Trace()
	if traceID == "" {
		traceID = s.defects.MintTraceID(ctx, "ingestion-gateway")
	}
	log := s.logger.With(
		zap.String("user_id", userID),
		zap.String("trace_id", traceID),
	)

	ingestedAt := time.Now().UTC()
	key := dedup.Key(userID, batch.FetchedAt)
	claimed, existing, err := s.dedup.Claim(ctx, key, dedup.ClaimMetadata{
		UserID:       userID,
		IngestedAt:   ingestedAt,
		TotalSamples: batch.TotalSamples(),
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("claim batch identity: %w", err)
	}
	if !claimed {
		log.Info("duplicate batch, already ingested",
			zap.Time("fetched_at", batch.FetchedAt),
			zap.Time("original_ingested_at", existing.IngestedAt))
		return IngestResult{
			Duplicate:    true,
			TraceID:      traceID,
			TotalSamples: existing.TotalSamples,
		}, nil
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return IngestResult{}, fmt.Errorf("marshal batch payload: %w", err)
	}
	err = s.querier.InsertWatchEventBatch(ctx, db.InsertWatchEventBatchParams{
		UserID:     userID,
		FetchedAt:  batch.FetchedAt,
		TraceID:    traceID,
		Payload:    payload,
		IngestedAt: ingestedAt,
	})
	if err != nil {
		// The dedup claim is already taken; the key is logged so the batch
		// can be replayed manually after the warehouse recovers.
		log.Error("raw batch insert failed after dedup claim",
			zap.String("dedup_key", key), zap.Error(err))
		return IngestResult{}, fmt.Errorf("insert watch event batch: %w", err)
	}

	// Trigger publish is best effort: the rows are durable and the estimator
	// sweeps all unprocessed batches regardless of triggers.
	err = s.publisher.PublishWatchEvent(ctx, events.WatchEventTrigger{
		UserID:       userID,
		FetchedAt:    batch.FetchedAt,
		TraceID:      traceID,
		TotalSamples: batch.TotalSamples(),
	})
	if err != nil {
		log.Warn("watch event trigger publish failed", zap.Error(err))
	}

	log.Info("batch ingested",
		zap.Time("fetched_at", batch.FetchedAt),
		zap.Int("total_samples", batch.TotalSamples()))
	return IngestResult{
		TraceID:      traceID,
		TotalSamples: batch.TotalSamples(),
	}, nil
}
