package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/meigsy/shift/internal/dispatcher"
	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/repository/db"
	"github.com/meigsy/shift/internal/repository/mock"
	"github.com/meigsy/shift/pkg/telemetry"
)

type fakePush struct {
	err   error
	sent  []dispatcher.Notification
	token string
}

func (f *fakePush) Send(_ context.Context, token string, n dispatcher.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.token = token
	f.sent = append(f.sent, n)
	return nil
}

func newProcessor(t *testing.T, q db.Querier, push dispatcher.PushSender) *Processor {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewProcessor(q, push, telemetry.NewDefectCounter(logger), logger)
}

func estimateWithStress(userID, traceID string, stress float64) db.StateEstimate {
	return db.StateEstimate{
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Stress:    pgtype.Float8{Float64: stress, Valid: true},
	}
}

func event(userID string) events.StateEstimateEvent {
	return events.StateEstimateEvent{UserID: userID, Timestamp: time.Now().UTC()}
}

func TestHandleCreatesInterventionForHighStress(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.85), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), db.ListEnabledCatalogParams{Metric: MetricStress, Level: LevelHigh}).
		Return([]db.CatalogEntry{{InterventionKey: "breath_box", Surface: "notification", Title: "Breathe", Body: "Box breathing"}}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return(nil, nil)

	var inserted db.InsertInterventionInstanceParams
	q.EXPECT().InsertInterventionInstance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.InsertInterventionInstanceParams) error {
			inserted = arg
			return nil
		})
	q.EXPECT().GetDeviceToken(gomock.Any(), "u1").Return("device-token", nil)
	q.EXPECT().InsertStatusChange(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.InsertStatusChangeParams) error {
			assert.Equal(t, db.StatusSent, arg.Status)
			assert.True(t, arg.SentAt.Valid)
			return nil
		})

	push := &fakePush{}
	err := newProcessor(t, q, push).Handle(context.Background(), event("u1"))
	require.NoError(t, err)

	assert.Equal(t, "u1", inserted.UserID)
	assert.Equal(t, "trace-1", inserted.TraceID)
	assert.Equal(t, LevelHigh, inserted.Level)
	assert.Equal(t, "breath_box", inserted.InterventionKey)
	assert.NotEmpty(t, inserted.InterventionInstanceID)

	require.Len(t, push.sent, 1)
	assert.Equal(t, "device-token", push.token)
	assert.Equal(t, inserted.InterventionInstanceID, push.sent[0].InterventionInstanceID)
}

// A non-onboarding winner is never gated on onboarding state: the strict mock
// would fail this test if HasCompletedFlow or HasCreatedInstanceWithKey were
// consulted.
func TestHandleNonOnboardingKeyIgnoresOnboardingState(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.85), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).
		Return([]db.CatalogEntry{{InterventionKey: "breath_box", Surface: "notification"}}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return(nil, nil)
	q.EXPECT().InsertInterventionInstance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.InsertInterventionInstanceParams) error {
			assert.Equal(t, "breath_box", arg.InterventionKey)
			return nil
		})

	err := newProcessor(t, q, nil).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
}

func TestHandleOnboardingKeySkippedWhenPendingAndIncomplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.85), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).
		Return([]db.CatalogEntry{{InterventionKey: "getting_started_v1", Surface: "flow"}}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return(nil, nil)
	q.EXPECT().HasCompletedFlow(gomock.Any(), db.HasCompletedFlowParams{UserID: "u1", FlowID: OnboardingFlowID}).
		Return(false, nil)
	q.EXPECT().HasCreatedInstanceWithKey(gomock.Any(), db.HasCreatedInstanceWithKeyParams{
		UserID: "u1", InterventionKey: "getting_started_v1",
	}).Return(true, nil)
	// No InsertInterventionInstance expectation: the pending instance gates.

	err := newProcessor(t, q, nil).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
}

func TestHandleOnboardingKeyCreatedWhenNonePending(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.85), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).
		Return([]db.CatalogEntry{{InterventionKey: "getting_started_v1", Surface: "flow"}}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return(nil, nil)
	q.EXPECT().HasCompletedFlow(gomock.Any(), gomock.Any()).Return(false, nil)
	q.EXPECT().HasCreatedInstanceWithKey(gomock.Any(), gomock.Any()).Return(false, nil)
	q.EXPECT().InsertInterventionInstance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.InsertInterventionInstanceParams) error {
			assert.Equal(t, "getting_started_v1", arg.InterventionKey)
			return nil
		})

	err := newProcessor(t, q, nil).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
}

func TestHandleOnboardingKeyCompletedFlowSkipsPendingCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.85), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).
		Return([]db.CatalogEntry{{InterventionKey: "getting_started_v1", Surface: "flow"}}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return(nil, nil)
	q.EXPECT().HasCompletedFlow(gomock.Any(), gomock.Any()).Return(true, nil)
	q.EXPECT().InsertInterventionInstance(gomock.Any(), gomock.Any()).Return(nil)

	err := newProcessor(t, q, nil).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
}

func TestHandleSkipsWhenRateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.9), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.CountRecentInterventionsParams) (int64, error) {
			assert.WithinDuration(t, time.Now().UTC().Add(-30*time.Minute), arg.Since, 5*time.Second)
			return 3, nil
		})

	err := newProcessor(t, q, nil).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
}

func TestHandleFallsBackWhenTopSurfaceSuppressed(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.9), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).Return([]db.CatalogEntry{
		{InterventionKey: "breath_box", Surface: "notification"},
		{InterventionKey: "body_scan", Surface: "card"},
	}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return([]db.SurfacePreference{
		{
			Surface:         "notification",
			ShownCount:      8,
			AnnoyanceRate:   pgtype.Float8{Float64: 0.95, Valid: true},
			PreferenceScore: pgtype.Float8{Float64: 0.9, Valid: true},
		},
	}, nil)
	q.EXPECT().InsertInterventionInstance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.InsertInterventionInstanceParams) error {
			assert.Equal(t, "body_scan", arg.InterventionKey)
			assert.Equal(t, "card", arg.Surface)
			return nil
		})

	err := newProcessor(t, q, nil).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
}

func TestHandlePushFailureLeavesInstanceCreated(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "trace-1", 0.9), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).
		Return([]db.CatalogEntry{{InterventionKey: "breath_box", Surface: "notification"}}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return(nil, nil)
	q.EXPECT().InsertInterventionInstance(gomock.Any(), gomock.Any()).Return(nil)
	q.EXPECT().GetDeviceToken(gomock.Any(), "u1").Return("device-token", nil)
	// No InsertStatusChange expectation: the instance stays created.

	push := &fakePush{err: errors.New("apns unavailable")}
	err := newProcessor(t, q, push).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
}

func TestHandleNoDeviceTokenSkipsPush(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(estimateWithStress("u1", "", 0.9), nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).
		Return([]db.CatalogEntry{{InterventionKey: "breath_box", Surface: "notification"}}, nil)
	q.EXPECT().ListSurfacePreferences(gomock.Any(), "u1").Return(nil, nil)
	q.EXPECT().InsertInterventionInstance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, arg db.InsertInterventionInstanceParams) error {
			// Estimate arrived untraced: a fresh trace ID is minted.
			assert.NotEmpty(t, arg.TraceID)
			return nil
		})
	q.EXPECT().GetDeviceToken(gomock.Any(), "u1").Return("", pgx.ErrNoRows)

	push := &fakePush{}
	err := newProcessor(t, q, push).Handle(context.Background(), event("u1"))
	require.NoError(t, err)
	assert.Empty(t, push.sent)
}

func TestHandleWarnsOnStaleEventTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	estimate := estimateWithStress("u1", "trace-1", 0.1)
	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").Return(estimate, nil)
	q.EXPECT().CountRecentInterventions(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().ListEnabledCatalog(gomock.Any(), gomock.Any()).Return(nil, nil)

	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	p := NewProcessor(q, nil, telemetry.NewDefectCounter(logger), logger)

	stale := events.StateEstimateEvent{UserID: "u1", Timestamp: estimate.Timestamp.Add(-10 * time.Minute)}
	require.NoError(t, p.Handle(context.Background(), stale))

	assert.Equal(t, 1, logs.FilterMessage("latest estimate timestamp differs from triggering event").Len())
}

func TestHandleNoEstimateRowsIsAcked(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "ghost").Return(db.StateEstimate{}, pgx.ErrNoRows)

	err := newProcessor(t, q, nil).Handle(context.Background(), event("ghost"))
	require.NoError(t, err)
}

func TestHandleWarehouseFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mock.NewMockQuerier(ctrl)

	q.EXPECT().GetLatestStateEstimate(gomock.Any(), "u1").
		Return(db.StateEstimate{}, errors.New("connection refused"))

	err := newProcessor(t, q, nil).Handle(context.Background(), event("u1"))
	require.Error(t, err)
}
