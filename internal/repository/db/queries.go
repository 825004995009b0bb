package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries is the pgx-backed implementation of Querier.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates a Queries bound to the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const upsertUser = `
INSERT INTO users (user_id, email, display_name)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE
    SET email = COALESCE(EXCLUDED.email, users.email),
        display_name = COALESCE(EXCLUDED.display_name, users.display_name)
RETURNING user_id, email, display_name, created_at
`

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	var u User
	err := q.pool.QueryRow(ctx, upsertUser, arg.UserID, arg.Email, arg.DisplayName).
		Scan(&u.UserID, &u.Email, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUser = `
SELECT user_id, email, display_name, created_at FROM users WHERE user_id = $1
`

func (q *Queries) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := q.pool.QueryRow(ctx, getUser, userID).
		Scan(&u.UserID, &u.Email, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const insertWatchEventBatch = `
INSERT INTO watch_events (user_id, fetched_at, trace_id, payload, ingested_at)
VALUES ($1, $2, $3, $4, $5)
`

func (q *Queries) InsertWatchEventBatch(ctx context.Context, arg InsertWatchEventBatchParams) error {
	_, err := q.pool.Exec(ctx, insertWatchEventBatch,
		arg.UserID, arg.FetchedAt, arg.TraceID, arg.Payload, arg.IngestedAt)
	return err
}

const getLatestStateEstimate = `
SELECT user_id, timestamp, trace_id, recovery, readiness, stress, fatigue
FROM state_estimates
WHERE user_id = $1
ORDER BY timestamp DESC
LIMIT 1
`

func (q *Queries) GetLatestStateEstimate(ctx context.Context, userID string) (StateEstimate, error) {
	var e StateEstimate
	err := q.pool.QueryRow(ctx, getLatestStateEstimate, userID).
		Scan(&e.UserID, &e.Timestamp, &e.TraceID, &e.Recovery, &e.Readiness, &e.Stress, &e.Fatigue)
	return e, err
}

const listFreshStateEstimates = `
SELECT DISTINCT ON (user_id) user_id, timestamp
FROM state_estimates
WHERE timestamp >= $1
ORDER BY user_id, timestamp DESC
`

func (q *Queries) ListFreshStateEstimates(ctx context.Context, since time.Time) ([]FreshStateEstimate, error) {
	rows, err := q.pool.Query(ctx, listFreshStateEstimates, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FreshStateEstimate
	for rows.Next() {
		var f FreshStateEstimate
		if err := rows.Scan(&f.UserID, &f.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const listEnabledCatalog = `
SELECT intervention_key, metric, level, target_level, nudge_type, persona,
       surface, title, body, enabled
FROM intervention_catalog
WHERE metric = $1 AND level = $2 AND enabled = TRUE
ORDER BY intervention_key
`

func (q *Queries) ListEnabledCatalog(ctx context.Context, arg ListEnabledCatalogParams) ([]CatalogEntry, error) {
	rows, err := q.pool.Query(ctx, listEnabledCatalog, arg.Metric, arg.Level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCatalog(rows)
}

const listCatalogByKeys = `
SELECT intervention_key, metric, level, target_level, nudge_type, persona,
       surface, title, body, enabled
FROM intervention_catalog
WHERE intervention_key = ANY($1)
`

func (q *Queries) ListCatalogByKeys(ctx context.Context, keys []string) ([]CatalogEntry, error) {
	rows, err := q.pool.Query(ctx, listCatalogByKeys, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCatalog(rows)
}

func scanCatalog(rows pgx.Rows) ([]CatalogEntry, error) {
	var out []CatalogEntry
	for rows.Next() {
		var c CatalogEntry
		if err := rows.Scan(&c.InterventionKey, &c.Metric, &c.Level, &c.TargetLevel,
			&c.NudgeType, &c.Persona, &c.Surface, &c.Title, &c.Body, &c.Enabled); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const listSurfacePreferences = `
SELECT user_id, surface, shown_count, engagement_rate, ignore_rate,
       annoyance_rate, preference_score
FROM surface_preferences
WHERE user_id = $1
`

func (q *Queries) ListSurfacePreferences(ctx context.Context, userID string) ([]SurfacePreference, error) {
	rows, err := q.pool.Query(ctx, listSurfacePreferences, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SurfacePreference
	for rows.Next() {
		var p SurfacePreference
		if err := rows.Scan(&p.UserID, &p.Surface, &p.ShownCount, &p.EngagementRate,
			&p.IgnoreRate, &p.AnnoyanceRate, &p.PreferenceScore); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const countRecentInterventions = `
SELECT COUNT(*) FROM intervention_instances
WHERE user_id = $1 AND created_at >= $2
`

func (q *Queries) CountRecentInterventions(ctx context.Context, arg CountRecentInterventionsParams) (int64, error) {
	var n int64
	err := q.pool.QueryRow(ctx, countRecentInterventions, arg.UserID, arg.Since).Scan(&n)
	return n, err
}

const insertInterventionInstance = `
INSERT INTO intervention_instances (
    intervention_instance_id, user_id, trace_id, metric, level, surface,
    intervention_key, created_at, scheduled_at, sent_at, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, 'created')
`

func (q *Queries) InsertInterventionInstance(ctx context.Context, arg InsertInterventionInstanceParams) error {
	_, err := q.pool.Exec(ctx, insertInterventionInstance,
		arg.InterventionInstanceID, arg.UserID, arg.TraceID, arg.Metric, arg.Level,
		arg.Surface, arg.InterventionKey, arg.CreatedAt, arg.ScheduledAt)
	return err
}

const insertStatusChange = `
INSERT INTO intervention_status_changes (
    change_id, intervention_instance_id, trace_id, user_id, status, sent_at, changed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (q *Queries) InsertStatusChange(ctx context.Context, arg InsertStatusChangeParams) error {
	_, err := q.pool.Exec(ctx, insertStatusChange,
		arg.ChangeID, arg.InterventionInstanceID, arg.TraceID, arg.UserID,
		arg.Status, arg.SentAt, arg.ChangedAt)
	return err
}

// Current status is last-write-wins over the status-change log; an instance
// with no change rows is still in its initial 'created' state.
const listCreatedInterventions = `
SELECT i.intervention_instance_id, i.user_id, i.trace_id, i.metric, i.level,
       i.surface, i.intervention_key, i.created_at, i.scheduled_at,
       sc.sent_at, COALESCE(sc.status, 'created') AS status
FROM intervention_instances i
LEFT JOIN LATERAL (
    SELECT c.status, c.sent_at
    FROM intervention_status_changes c
    WHERE c.intervention_instance_id = i.intervention_instance_id
    ORDER BY c.changed_at DESC
    LIMIT 1
) sc ON TRUE
WHERE i.user_id = $1 AND COALESCE(sc.status, 'created') = 'created'
ORDER BY i.created_at DESC
`

func (q *Queries) ListCreatedInterventions(ctx context.Context, userID string) ([]InterventionInstance, error) {
	rows, err := q.pool.Query(ctx, listCreatedInterventions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InterventionInstance
	for rows.Next() {
		var i InterventionInstance
		if err := rows.Scan(&i.InterventionInstanceID, &i.UserID, &i.TraceID, &i.Metric,
			&i.Level, &i.Surface, &i.InterventionKey, &i.CreatedAt, &i.ScheduledAt,
			&i.SentAt, &i.Status); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

const hasCreatedInstanceWithKey = `
SELECT EXISTS (
    SELECT 1
    FROM intervention_instances i
    LEFT JOIN LATERAL (
        SELECT c.status
        FROM intervention_status_changes c
        WHERE c.intervention_instance_id = i.intervention_instance_id
        ORDER BY c.changed_at DESC
        LIMIT 1
    ) sc ON TRUE
    WHERE i.user_id = $1
      AND i.intervention_key = $2
      AND COALESCE(sc.status, 'created') = 'created'
)
`

func (q *Queries) HasCreatedInstanceWithKey(ctx context.Context, arg HasCreatedInstanceWithKeyParams) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx, hasCreatedInstanceWithKey, arg.UserID, arg.InterventionKey).Scan(&exists)
	return exists, err
}

const insertAppInteraction = `
INSERT INTO app_interactions (
    interaction_id, trace_id, user_id, intervention_instance_id,
    event_type, timestamp, payload
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (q *Queries) InsertAppInteraction(ctx context.Context, arg InsertAppInteractionParams) error {
	_, err := q.pool.Exec(ctx, insertAppInteraction,
		arg.InteractionID, arg.TraceID, arg.UserID, arg.InterventionInstanceID,
		arg.EventType, arg.Timestamp, arg.Payload)
	return err
}

// A flow counts as completed only if a flow_completed event for it exists
// AFTER the most recent flow_reset with scope 'all' or 'flows'. Resets never
// delete; the reset timestamp acts as a barrier.
const hasCompletedFlow = `
SELECT EXISTS (
    SELECT 1 FROM app_interactions fc
    WHERE fc.user_id = $1
      AND fc.event_type = 'flow_completed'
      AND fc.payload->>'flow_id' = $2
      AND fc.timestamp > COALESCE((
          SELECT MAX(r.timestamp) FROM app_interactions r
          WHERE r.user_id = $1
            AND r.event_type = 'flow_reset'
            AND r.payload->>'scope' IN ('all', 'flows')
      ), '-infinity'::timestamptz)
)
`

func (q *Queries) HasCompletedFlow(ctx context.Context, arg HasCompletedFlowParams) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx, hasCompletedFlow, arg.UserID, arg.FlowID).Scan(&exists)
	return exists, err
}

const hasRecentFlowRequest = `
SELECT EXISTS (
    SELECT 1 FROM app_interactions
    WHERE user_id = $1
      AND event_type = 'flow_requested'
      AND payload->>'flow_id' = $2
      AND timestamp >= $3
)
`

func (q *Queries) HasRecentFlowRequest(ctx context.Context, arg HasRecentFlowRequestParams) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx, hasRecentFlowRequest, arg.UserID, arg.FlowID, arg.Since).Scan(&exists)
	return exists, err
}

// Saved keys: latest saved/unsaved event per key, considering only events
// strictly after the most recent flow_reset with scope 'all' or 'saved'.
const listSavedInterventionKeys = `
WITH last_reset AS (
    SELECT COALESCE(MAX(timestamp), '-infinity'::timestamptz) AS ts
    FROM app_interactions
    WHERE user_id = $1
      AND event_type = 'flow_reset'
      AND payload->>'scope' IN ('all', 'saved')
),
latest AS (
    SELECT DISTINCT ON (a.payload->>'intervention_key')
           a.payload->>'intervention_key' AS key, a.event_type
    FROM app_interactions a, last_reset
    WHERE a.user_id = $1
      AND a.event_type IN ('intervention_saved', 'intervention_unsaved')
      AND a.timestamp > last_reset.ts
    ORDER BY a.payload->>'intervention_key', a.timestamp DESC
)
SELECT key FROM latest WHERE event_type = 'intervention_saved' ORDER BY key
`

func (q *Queries) ListSavedInterventionKeys(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.pool.Query(ctx, listSavedInterventionKeys, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

const getDeviceToken = `
SELECT device_token FROM device_tokens WHERE user_id = $1
`

func (q *Queries) GetDeviceToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := q.pool.QueryRow(ctx, getDeviceToken, userID).Scan(&token)
	return token, err
}

const upsertDeviceToken = `
INSERT INTO device_tokens (user_id, device_token, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE
    SET device_token = EXCLUDED.device_token,
        updated_at = EXCLUDED.updated_at
WHERE device_tokens.updated_at <= EXCLUDED.updated_at
`

func (q *Queries) UpsertDeviceToken(ctx context.Context, arg UpsertDeviceTokenParams) error {
	_, err := q.pool.Exec(ctx, upsertDeviceToken, arg.UserID, arg.DeviceToken, arg.UpdatedAt)
	return err
}
