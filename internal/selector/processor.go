package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/dispatcher"
	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/pkg/telemetry"
)

const (
	// MetricStress is the only metric the selector acts on today.
	MetricStress = "stress"

	// OnboardingFlowID is the flow backing getting_started_* catalog keys.
	OnboardingFlowID = "getting_started"

	// onboardingKeyPrefix marks catalog keys that launch the onboarding flow.
	onboardingKeyPrefix = "getting_started"

	rateLimitWindow = 30 * time.Minute
	rateLimitMax    = 3
)

// Processor turns a fresh state estimate into at most one intervention
// instance, then attempts best-effort push delivery.
type Processor struct {
	querier db.Querier
	push    dispatcher.PushSender
	defects *telemetry.DefectCounter
	logger  *zap.Logger
}

// NewProcessor wires the selection stage. push may be nil when no APNs
// credentials are configured; instances are still created and surfaced via
// the context endpoint.
func NewProcessor(querier db.Querier, push dispatcher.PushSender, defects *telemetry.DefectCounter, logger *zap.Logger) *Processor {
	return &Processor{querier: querier, push: push, defects: defects, logger: logger}
}

// Handle processes one state-estimate event. A nil return means the event is
// fully handled (including the deliberate skip paths); a non-nil return means
// a warehouse failure and the message should be redelivered.
func (p *Processor) Handle(ctx context.Context, event events.StateEstimateEvent) error {
	log := p.logger.With(zap.String("user_id", event.UserID))

	estimate, err := p.querier.GetLatestStateEstimate(ctx, event.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Warn("state estimate event for user with no estimates, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest state estimate: %w", err)
	}

	traceID := estimate.TraceID
	if traceID == "" {
		traceID = p.defects.MintTraceID(ctx, "intervention-selector")
	}
	log = log.With(zap.String("trace_id", traceID))

	if !estimate.Timestamp.IsZero() && !event.Timestamp.IsZero() && !estimate.Timestamp.Equal(event.Timestamp) {
		log.Warn("latest estimate timestamp differs from triggering event",
			zap.Time("event_timestamp", event.Timestamp),
			zap.Time("estimate_timestamp", estimate.Timestamp))
	}

	if !estimate.Stress.Valid {
		log.Debug("latest estimate has no stress score, skipping selection")
		return nil
	}
	level := BucketStress(estimate.Stress.Float64)
	log = log.With(zap.String("level", level))

	now := time.Now().UTC()
	recent, err := p.querier.CountRecentInterventions(ctx, db.CountRecentInterventionsParams{
		UserID: event.UserID,
		Since:  now.Add(-rateLimitWindow),
	})
	if err != nil {
		return fmt.Errorf("count recent interventions: %w", err)
	}
	if recent >= rateLimitMax {
		log.Info("rate limit reached, skipping selection", zap.Int64("recent", recent))
		return nil
	}

	candidates, err := p.querier.ListEnabledCatalog(ctx, db.ListEnabledCatalogParams{
		Metric: MetricStress,
		Level:  level,
	})
	if err != nil {
		return fmt.Errorf("list catalog candidates: %w", err)
	}
	if len(candidates) == 0 {
		log.Debug("no enabled catalog entries for level, skipping selection")
		return nil
	}

	prefRows, err := p.querier.ListSurfacePreferences(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("list surface preferences: %w", err)
	}
	prefs := make(map[string]db.SurfacePreference, len(prefRows))
	for _, pr := range prefRows {
		prefs[pr.Surface] = pr
	}

	ranked := Rank(candidates, prefs)
	if len(ranked) == 0 {
		log.Info("all candidate surfaces suppressed, skipping selection")
		return nil
	}
	winner := ranked[0]

	// Onboarding keys only: never stack a second getting_started instance
	// while the flow is unfinished and one is already pending. Every other
	// key proceeds regardless of onboarding state.
	if strings.HasPrefix(winner.Entry.InterventionKey, onboardingKeyPrefix) {
		completed, err := p.querier.HasCompletedFlow(ctx, db.HasCompletedFlowParams{
			UserID: event.UserID,
			FlowID: OnboardingFlowID,
		})
		if err != nil {
			return fmt.Errorf("check onboarding completion: %w", err)
		}
		if !completed {
			pending, err := p.querier.HasCreatedInstanceWithKey(ctx, db.HasCreatedInstanceWithKeyParams{
				UserID:          event.UserID,
				InterventionKey: winner.Entry.InterventionKey,
			})
			if err != nil {
				return fmt.Errorf("check pending onboarding instance: %w", err)
			}
			if pending {
				log.Info("onboarding instance already pending, skipping selection",
					zap.String("intervention_key", winner.Entry.InterventionKey))
				return nil
			}
		}
	}

	instanceID := uuid.Must(uuid.NewV7()).String()
	err = p.querier.InsertInterventionInstance(ctx, db.InsertInterventionInstanceParams{
		InterventionInstanceID: instanceID,
		UserID:                 event.UserID,
		TraceID:                traceID,
		Metric:                 MetricStress,
		Level:                  level,
		Surface:                winner.Entry.Surface,
		InterventionKey:        winner.Entry.InterventionKey,
		CreatedAt:              now,
		ScheduledAt:            now,
	})
	if err != nil {
		return fmt.Errorf("insert intervention instance: %w", err)
	}
	log.Info("intervention created",
		zap.String("intervention_instance_id", instanceID),
		zap.String("intervention_key", winner.Entry.InterventionKey),
		zap.Float64("final_score", winner.FinalScore))

	// Everything below is best effort: the instance exists and will surface
	// through the context endpoint even if push delivery fails.
	p.deliverPush(ctx, log, instanceID, traceID, event.UserID, winner.Entry)
	return nil
}

func (p *Processor) deliverPush(ctx context.Context, log *zap.Logger, instanceID, traceID, userID string, entry db.CatalogEntry) {
	if p.push == nil {
		return
	}

	token, err := p.querier.GetDeviceToken(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug("no device token registered, instance stays created")
		return
	}
	if err != nil {
		log.Warn("load device token failed, instance stays created", zap.Error(err))
		return
	}

	err = p.push.Send(ctx, token, dispatcher.Notification{
		Title:                  entry.Title,
		Body:                   entry.Body,
		InterventionInstanceID: instanceID,
	})
	if err != nil {
		log.Warn("push delivery failed, instance stays created", zap.Error(err))
		return
	}

	sentAt := time.Now().UTC()
	err = p.querier.InsertStatusChange(ctx, db.InsertStatusChangeParams{
		ChangeID:               uuid.Must(uuid.NewV7()).String(),
		InterventionInstanceID: instanceID,
		TraceID:                traceID,
		UserID:                 userID,
		Status:                 db.StatusSent,
		SentAt:                 pgtype.Timestamptz{Time: sentAt, Valid: true},
		ChangedAt:              sentAt,
	})
	if err != nil {
		log.Error("push delivered but sent status not recorded", zap.Error(err))
	}
}
