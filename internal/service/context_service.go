package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/pkg/telemetry"
)

const (
	onboardingFlowID     = "getting_started"
	onboardingCatalogKey = "getting_started_v1"

	// onboardingRequestWindow bounds how long a client flow_requested event
	// keeps re-triggering onboarding for users who already completed it.
	onboardingRequestWindow = 5 * time.Minute
)

// StateView is the derived-state section of the context response.
type StateView struct {
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id"`
	Recovery  *float64  `json:"recovery"`
	Readiness *float64  `json:"readiness"`
	Stress    *float64  `json:"stress"`
	Fatigue   *float64  `json:"fatigue"`
}

// InterventionView is one pending intervention, joined with its catalog
// content.
type InterventionView struct {
	InterventionInstanceID string    `json:"intervention_instance_id"`
	InterventionKey        string    `json:"intervention_key"`
	TraceID                string    `json:"trace_id"`
	Surface                string    `json:"surface"`
	Title                  string    `json:"title"`
	Body                   string    `json:"body"`
	Metric                 string    `json:"metric"`
	Level                  string    `json:"level"`
	CreatedAt              time.Time `json:"created_at"`
}

// SavedView is one saved catalog entry.
type SavedView struct {
	InterventionKey string `json:"intervention_key"`
	Surface         string `json:"surface"`
	Title           string `json:"title"`
	Body            string `json:"body"`
}

// ContextView is the full GET /context response.
type ContextView struct {
	UserID        string             `json:"user_id"`
	State         *StateView         `json:"state_estimate"`
	Interventions []InterventionView `json:"interventions"`
	Saved         []SavedView        `json:"saved_interventions"`
}

// ContextService assembles the client-facing view of a user's pipeline state.
type ContextService struct {
	querier db.Querier
	defects *telemetry.DefectCounter
	logger  *zap.Logger
}

// NewContextService wires the context read path.
func NewContextService(querier db.Querier, defects *telemetry.DefectCounter, logger *zap.Logger) *ContextService {
	return &ContextService{querier: querier, defects: defects, logger: logger}
}

// Get builds the context view: the latest state estimate, all pending
// (created) interventions joined with catalog content, and the saved set. For
// users who have not completed onboarding it also auto-creates the onboarding
// intervention, idempotently, so the client always has a next step to render.
func (s *ContextService) Get(ctx context.Context, userID string) (ContextView, error) {
	log := s.logger.With(zap.String("user_id", userID))
	view := ContextView{
		UserID:        userID,
		Interventions: []InterventionView{},
		Saved:         []SavedView{},
	}

	estimate, err := s.querier.GetLatestStateEstimate(ctx, userID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// New user, nothing estimated yet.
	case err != nil:
		return ContextView{}, fmt.Errorf("load latest state estimate: %w", err)
	default:
		traceID := estimate.TraceID
		if traceID == "" {
			traceID = s.defects.MintTraceID(ctx, "context-aggregator")
		}
		view.State = &StateView{
			Timestamp: estimate.Timestamp,
			TraceID:   traceID,
			Recovery:  floatPtr(estimate.Recovery.Float64, estimate.Recovery.Valid),
			Readiness: floatPtr(estimate.Readiness.Float64, estimate.Readiness.Valid),
			Stress:    floatPtr(estimate.Stress.Float64, estimate.Stress.Valid),
			Fatigue:   floatPtr(estimate.Fatigue.Float64, estimate.Fatigue.Valid),
		}
	}

	if err := s.ensureOnboarding(ctx, log, userID); err != nil {
		return ContextView{}, err
	}

	instances, err := s.querier.ListCreatedInterventions(ctx, userID)
	if err != nil {
		return ContextView{}, fmt.Errorf("list pending interventions: %w", err)
	}

	savedKeys, err := s.querier.ListSavedInterventionKeys(ctx, userID)
	if err != nil {
		return ContextView{}, fmt.Errorf("list saved interventions: %w", err)
	}

	catalog, err := s.catalogByKey(ctx, instances, savedKeys)
	if err != nil {
		return ContextView{}, err
	}

	for _, inst := range instances {
		entry, ok := catalog[inst.InterventionKey]
		if !ok {
			// Catalog drift: the instance references a key that has since
			// been removed. Skip it rather than render an empty card.
			log.Warn("pending intervention references missing catalog entry",
				zap.String("intervention_instance_id", inst.InterventionInstanceID),
				zap.String("intervention_key", inst.InterventionKey))
			continue
		}
		traceID := inst.TraceID
		if traceID == "" {
			traceID = s.defects.MintTraceID(ctx, "context-aggregator")
		}
		view.Interventions = append(view.Interventions, InterventionView{
			InterventionInstanceID: inst.InterventionInstanceID,
			InterventionKey:        inst.InterventionKey,
			TraceID:                traceID,
			Surface:                entry.Surface,
			Title:                  entry.Title,
			Body:                   entry.Body,
			Metric:                 inst.Metric,
			Level:                  inst.Level,
			CreatedAt:              inst.CreatedAt,
		})
	}

	for _, key := range savedKeys {
		entry, ok := catalog[key]
		if !ok {
			log.Warn("saved intervention references missing catalog entry",
				zap.String("intervention_key", key))
			continue
		}
		view.Saved = append(view.Saved, SavedView{
			InterventionKey: entry.InterventionKey,
			Surface:         entry.Surface,
			Title:           entry.Title,
			Body:            entry.Body,
		})
	}

	return view, nil
}

// ensureOnboarding auto-creates the onboarding intervention when the user has
// not completed the flow, or when the client explicitly asked for it again via
// a recent flow_requested event. An existing pending instance with the
// onboarding key is the idempotence guard, so concurrent context reads
// converge on one instance.
func (s *ContextService) ensureOnboarding(ctx context.Context, log *zap.Logger, userID string) error {
	completed, err := s.querier.HasCompletedFlow(ctx, db.HasCompletedFlowParams{
		UserID: userID,
		FlowID: onboardingFlowID,
	})
	if err != nil {
		return fmt.Errorf("check onboarding completion: %w", err)
	}
	if completed {
		requested, err := s.querier.HasRecentFlowRequest(ctx, db.HasRecentFlowRequestParams{
			UserID: userID,
			FlowID: onboardingFlowID,
			Since:  time.Now().UTC().Add(-onboardingRequestWindow),
		})
		if err != nil {
			return fmt.Errorf("check recent onboarding request: %w", err)
		}
		if !requested {
			return nil
		}
	}

	pending, err := s.querier.HasCreatedInstanceWithKey(ctx, db.HasCreatedInstanceWithKeyParams{
		UserID:          userID,
		InterventionKey: onboardingCatalogKey,
	})
	if err != nil {
		return fmt.Errorf("check pending onboarding instance: %w", err)
	}
	if pending {
		return nil
	}

	entries, err := s.querier.ListCatalogByKeys(ctx, []string{onboardingCatalogKey})
	if err != nil {
		return fmt.Errorf("load onboarding catalog entry: %w", err)
	}
	if len(entries) == 0 {
		log.Error("onboarding catalog entry missing, cannot auto-create",
			zap.String("intervention_key", onboardingCatalogKey))
		return nil
	}
	entry := entries[0]

	now := time.Now().UTC()
	err = s.querier.InsertInterventionInstance(ctx, db.InsertInterventionInstanceParams{
		InterventionInstanceID: uuid.Must(uuid.NewV7()).String(),
		UserID:                 userID,
		TraceID:                uuid.NewString(),
		Metric:                 entry.Metric,
		Level:                  entry.Level,
		Surface:                entry.Surface,
		InterventionKey:        entry.InterventionKey,
		CreatedAt:              now,
		ScheduledAt:            now,
	})
	if err != nil {
		return fmt.Errorf("create onboarding instance: %w", err)
	}

	log.Info("onboarding intervention auto-created")
	return nil
}

func (s *ContextService) catalogByKey(ctx context.Context, instances []db.InterventionInstance, savedKeys []string) (map[string]db.CatalogEntry, error) {
	seen := make(map[string]struct{})
	keys := make([]string, 0, len(instances)+len(savedKeys))
	for _, inst := range instances {
		if _, ok := seen[inst.InterventionKey]; !ok {
			seen[inst.InterventionKey] = struct{}{}
			keys = append(keys, inst.InterventionKey)
		}
	}
	for _, key := range savedKeys {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return map[string]db.CatalogEntry{}, nil
	}

	entries, err := s.querier.ListCatalogByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load catalog entries: %w", err)
	}
	catalog := make(map[string]db.CatalogEntry, len(entries))
	for _, e := range entries {
		catalog[e.InterventionKey] = e
	}
	return catalog, nil
}

func floatPtr(v float64, valid bool) *float64 {
	if !valid {
		return nil
	}
	return &v
}
