// Package db is the hand-written warehouse access layer. It follows the
// querier-interface pattern: Querier declares every parameterized query the
// pipeline runs, Queries implements it over a pgx pool, and
// internal/repository/mock provides the gomock double used in unit tests.
package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// User mirrors the users table.
type User struct {
	UserID      string      `json:"user_id"`
	Email       pgtype.Text `json:"email"`
	DisplayName pgtype.Text `json:"display_name"`
	CreatedAt   time.Time   `json:"created_at"`
}

// StateEstimate mirrors one state_estimates row. All four derived scalars are
// nullable: the transform emits only the metrics it could compute.
type StateEstimate struct {
	UserID    string        `json:"user_id"`
	Timestamp time.Time     `json:"timestamp"`
	TraceID   string        `json:"trace_id"`
	Recovery  pgtype.Float8 `json:"recovery"`
	Readiness pgtype.Float8 `json:"readiness"`
	Stress    pgtype.Float8 `json:"stress"`
	Fatigue   pgtype.Float8 `json:"fatigue"`
}

// FreshStateEstimate is the (user, tick) pair republished on the bus after a
// transform run.
type FreshStateEstimate struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CatalogEntry mirrors one intervention_catalog row.
type CatalogEntry struct {
	InterventionKey string      `json:"intervention_key"`
	Metric          string      `json:"metric"`
	Level           string      `json:"level"`
	TargetLevel     pgtype.Text `json:"target_level"`
	NudgeType       pgtype.Text `json:"nudge_type"`
	Persona         pgtype.Text `json:"persona"`
	Surface         string      `json:"surface"`
	Title           string      `json:"title"`
	Body            string      `json:"body"`
	Enabled         bool        `json:"enabled"`
}

// InterventionInstance is an instance row with its CURRENT status, derived
// last-write-wins from the status-change log (falling back to the row's
// initial 'created').
type InterventionInstance struct {
	InterventionInstanceID string             `json:"intervention_instance_id"`
	UserID                 string             `json:"user_id"`
	TraceID                string             `json:"trace_id"`
	Metric                 string             `json:"metric"`
	Level                  string             `json:"level"`
	Surface                string             `json:"surface"`
	InterventionKey        string             `json:"intervention_key"`
	CreatedAt              time.Time          `json:"created_at"`
	ScheduledAt            time.Time          `json:"scheduled_at"`
	SentAt                 pgtype.Timestamptz `json:"sent_at"`
	Status                 string             `json:"status"`
}

// SurfacePreference mirrors one surface_preferences row.
type SurfacePreference struct {
	UserID          string        `json:"user_id"`
	Surface         string        `json:"surface"`
	ShownCount      int64         `json:"shown_count"`
	EngagementRate  pgtype.Float8 `json:"engagement_rate"`
	IgnoreRate      pgtype.Float8 `json:"ignore_rate"`
	AnnoyanceRate   pgtype.Float8 `json:"annoyance_rate"`
	PreferenceScore pgtype.Float8 `json:"preference_score"`
}

// Intervention status lifecycle: created → {sent, accepted, dismissed, failed}.
const (
	StatusCreated   = "created"
	StatusSent      = "sent"
	StatusAccepted  = "accepted"
	StatusDismissed = "dismissed"
	StatusFailed    = "failed"
)
