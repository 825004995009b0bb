package estimator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meigsy/shift/internal/events"
	"github.com/meigsy/shift/internal/repository/db"
)

type fakeWarehouse struct {
	scripts   []string
	scriptErr error
	fresh     []db.FreshStateEstimate
	freshErr  error
}

func (f *fakeWarehouse) ExecScript(_ context.Context, script string) error {
	if f.scriptErr != nil {
		return f.scriptErr
	}
	f.scripts = append(f.scripts, script)
	return nil
}

func (f *fakeWarehouse) ListFreshStateEstimates(_ context.Context, _ time.Time) ([]db.FreshStateEstimate, error) {
	return f.fresh, f.freshErr
}

type fakePublisher struct {
	published []events.StateEstimateEvent
	failFor   map[string]error
}

func (f *fakePublisher) PublishWatchEvent(_ context.Context, _ events.WatchEventTrigger) error {
	return nil
}

func (f *fakePublisher) PublishStateEstimate(_ context.Context, ev events.StateEstimateEvent) error {
	if err, ok := f.failFor[ev.UserID]; ok {
		return err
	}
	f.published = append(f.published, ev)
	return nil
}

func TestRunExecutesScriptsInOrder(t *testing.T) {
	wh := &fakeWarehouse{}
	pub := &fakePublisher{}
	p := NewPipeline(wh, pub, zaptest.NewLogger(t))

	require.NoError(t, p.Run(context.Background()))

	require.Len(t, wh.scripts, 2)
	assert.Equal(t, viewsScript, wh.scripts[0])
	assert.Equal(t, transformScript, wh.scripts[1])
	assert.Empty(t, pub.published)
}

func TestRunPublishesOneEventPerFreshUser(t *testing.T) {
	now := time.Now().UTC()
	wh := &fakeWarehouse{fresh: []db.FreshStateEstimate{
		{UserID: "u1", Timestamp: now},
		{UserID: "u2", Timestamp: now},
	}}
	pub := &fakePublisher{}
	p := NewPipeline(wh, pub, zaptest.NewLogger(t))

	require.NoError(t, p.Run(context.Background()))

	require.Len(t, pub.published, 2)
	assert.Equal(t, "u1", pub.published[0].UserID)
	assert.Equal(t, "u2", pub.published[1].UserID)
}

func TestRunSwallowsPublishFailures(t *testing.T) {
	now := time.Now().UTC()
	wh := &fakeWarehouse{fresh: []db.FreshStateEstimate{
		{UserID: "u1", Timestamp: now},
		{UserID: "u2", Timestamp: now},
	}}
	pub := &fakePublisher{failFor: map[string]error{"u1": errors.New("nats down")}}
	p := NewPipeline(wh, pub, zaptest.NewLogger(t))

	// The look-back window re-announces u1 on the next run.
	require.NoError(t, p.Run(context.Background()))
	require.Len(t, pub.published, 1)
	assert.Equal(t, "u2", pub.published[0].UserID)
}

func TestRunTransformFailurePropagates(t *testing.T) {
	wh := &fakeWarehouse{scriptErr: errors.New("deadlock detected")}
	p := NewPipeline(wh, &fakePublisher{}, zaptest.NewLogger(t))

	require.Error(t, p.Run(context.Background()))
}

func TestEmbeddedScriptsAreNotEmpty(t *testing.T) {
	assert.Contains(t, viewsScript, "CREATE OR REPLACE VIEW")
	assert.Contains(t, transformScript, "INSERT INTO state_estimates")
	assert.Contains(t, transformScript, "ON CONFLICT (user_id, timestamp) DO NOTHING")
}

// Batches with omitted or null series keys must not abort the transform:
// jsonb_array_elements raises on scalar jsonb, so every lateral coalesces the
// key to an empty array first.
func TestViewsGuardNullSeriesKeys(t *testing.T) {
	for _, key := range []string{
		"heartRate", "hrv", "restingHeartRate", "respiratoryRate",
		"sleep", "workouts", "activeEnergy",
	} {
		assert.Contains(t, viewsScript,
			"jsonb_array_elements(COALESCE(NULLIF(w.payload -> '"+key+"', 'null'::jsonb), '[]'::jsonb))",
			"series %s is not null-guarded", key)
	}
	assert.NotContains(t, viewsScript, "jsonb_array_elements(w.payload")
}

// The transform's processed-flag UPDATE must share the INSERT's snapshot, or
// batches committed mid-run get flagged without ever being estimated.
func TestTransformPinsOneSnapshot(t *testing.T) {
	idx := strings.Index(transformScript, "SET TRANSACTION ISOLATION LEVEL REPEATABLE READ;")
	require.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, strings.Index(transformScript, "WITH hr AS"))
}
