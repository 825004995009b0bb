package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/model"
	"github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/pkg/telemetry"
)

// InteractionService appends app interaction events and derives intervention
// status changes from the ones that imply them.
type InteractionService struct {
	querier db.Querier
	defects *telemetry.DefectCounter
	logger  *zap.Logger
}

// NewInteractionService wires the interaction path.
func NewInteractionService(querier db.Querier, defects *telemetry.DefectCounter, logger *zap.Logger) *InteractionService {
	return &InteractionService{querier: querier, defects: defects, logger: logger}
}

// Record appends one interaction event for the authenticated user and returns
// the generated interaction id. When the body names a user, it must match the
// token. tapped and dismissed events on an instance also append the
// corresponding status change; a failure there is tolerated because the
// interaction row is the source of truth and the status can be re-derived.
func (s *InteractionService) Record(ctx context.Context, authUserID string, in model.AppInteraction) (string, error) {
	if in.UserID != "" && in.UserID != authUserID {
		return "", fmt.Errorf("%w: body user_id does not match token", ErrUserMismatch)
	}
	if in.EventType == "" {
		return "", fmt.Errorf("%w: event_type is required", ErrInvalidBatch)
	}

	traceID := in.TraceID
	if traceID == "" {
		traceID = s.defects.MintTraceID(ctx, "interaction-recorder")
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	instanceID := pgtype.Text{}
	if in.InterventionInstanceID != "" {
		instanceID = pgtype.Text{String: in.InterventionInstanceID, Valid: true}
	}

	interactionID := uuid.Must(uuid.NewV7()).String()
	err := s.querier.InsertAppInteraction(ctx, db.InsertAppInteractionParams{
		InteractionID:          interactionID,
		TraceID:                traceID,
		UserID:                 authUserID,
		InterventionInstanceID: instanceID,
		EventType:              in.EventType,
		Timestamp:              ts,
		Payload:                in.Payload,
	})
	if err != nil {
		return "", fmt.Errorf("insert app interaction: %w", err)
	}

	s.applyStatusChange(ctx, authUserID, traceID, in, ts)
	return interactionID, nil
}

// Reset appends a flow_reset event carrying the scope and returns the
// generated interaction id. Downstream reads treat the event as a barrier:
// completions and saves before the latest reset in scope no longer count.
func (s *InteractionService) Reset(ctx context.Context, userID, scope string) (string, error) {
	if !model.ValidResetScope(scope) {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}

	payload, err := json.Marshal(model.FlowResetPayload{Scope: scope})
	if err != nil {
		return "", fmt.Errorf("marshal reset payload: %w", err)
	}

	interactionID := uuid.Must(uuid.NewV7()).String()
	err = s.querier.InsertAppInteraction(ctx, db.InsertAppInteractionParams{
		InteractionID: interactionID,
		TraceID:       s.defects.MintTraceID(ctx, "interaction-recorder"),
		UserID:        userID,
		EventType:     model.EventFlowReset,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	})
	if err != nil {
		return "", fmt.Errorf("insert flow reset: %w", err)
	}

	s.logger.Info("user state reset", zap.String("user_id", userID), zap.String("scope", scope))
	return interactionID, nil
}

func (s *InteractionService) applyStatusChange(ctx context.Context, userID, traceID string, in model.AppInteraction, ts time.Time) {
	if in.InterventionInstanceID == "" {
		return
	}

	var status string
	switch in.EventType {
	case model.EventTapped:
		status = db.StatusAccepted
	case model.EventDismissed:
		status = db.StatusDismissed
	default:
		return
	}

	err := s.querier.InsertStatusChange(ctx, db.InsertStatusChangeParams{
		ChangeID:               uuid.Must(uuid.NewV7()).String(),
		InterventionInstanceID: in.InterventionInstanceID,
		TraceID:                traceID,
		UserID:                 userID,
		Status:                 status,
		ChangedAt:              ts,
	})
	if err != nil {
		s.logger.Warn("status change not recorded for interaction",
			zap.String("intervention_instance_id", in.InterventionInstanceID),
			zap.String("status", status),
			zap.Error(err))
	}
}
