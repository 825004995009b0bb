package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

//go:generate mockgen -source=querier.go -destination=../mock/querier_mock.go -package=mock

type UpsertUserParams struct {
	UserID      string
	Email       pgtype.Text
	DisplayName pgtype.Text
}

type InsertWatchEventBatchParams struct {
	UserID     string
	FetchedAt  time.Time
	TraceID    string
	Payload    json.RawMessage
	IngestedAt time.Time
}

type ListEnabledCatalogParams struct {
	Metric string
	Level  string
}

type CountRecentInterventionsParams struct {
	UserID string
	Since  time.Time
}

type InsertInterventionInstanceParams struct {
	InterventionInstanceID string
	UserID                 string
	TraceID                string
	Metric                 string
	Level                  string
	Surface                string
	InterventionKey        string
	CreatedAt              time.Time
	ScheduledAt            time.Time
}

type InsertStatusChangeParams struct {
	ChangeID               string
	InterventionInstanceID string
	TraceID                string
	UserID                 string
	Status                 string
	SentAt                 pgtype.Timestamptz
	ChangedAt              time.Time
}

type HasCreatedInstanceWithKeyParams struct {
	UserID          string
	InterventionKey string
}

type InsertAppInteractionParams struct {
	InteractionID          string
	TraceID                string
	UserID                 string
	InterventionInstanceID pgtype.Text
	EventType              string
	Timestamp              time.Time
	Payload                json.RawMessage
}

type HasCompletedFlowParams struct {
	UserID string
	FlowID string
}

type HasRecentFlowRequestParams struct {
	UserID string
	FlowID string
	Since  time.Time
}

type UpsertDeviceTokenParams struct {
	UserID      string
	DeviceToken string
	UpdatedAt   time.Time
}

// Querier declares every warehouse query the pipeline executes. All writes
// are inserts except UpsertUser and UpsertDeviceToken, the only two mutable
// stores in the system.
type Querier interface {
	UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)

	InsertWatchEventBatch(ctx context.Context, arg InsertWatchEventBatchParams) error

	GetLatestStateEstimate(ctx context.Context, userID string) (StateEstimate, error)
	ListFreshStateEstimates(ctx context.Context, since time.Time) ([]FreshStateEstimate, error)

	ListEnabledCatalog(ctx context.Context, arg ListEnabledCatalogParams) ([]CatalogEntry, error)
	ListCatalogByKeys(ctx context.Context, keys []string) ([]CatalogEntry, error)

	ListSurfacePreferences(ctx context.Context, userID string) ([]SurfacePreference, error)

	CountRecentInterventions(ctx context.Context, arg CountRecentInterventionsParams) (int64, error)
	InsertInterventionInstance(ctx context.Context, arg InsertInterventionInstanceParams) error
	InsertStatusChange(ctx context.Context, arg InsertStatusChangeParams) error
	ListCreatedInterventions(ctx context.Context, userID string) ([]InterventionInstance, error)
	HasCreatedInstanceWithKey(ctx context.Context, arg HasCreatedInstanceWithKeyParams) (bool, error)

	InsertAppInteraction(ctx context.Context, arg InsertAppInteractionParams) error
	HasCompletedFlow(ctx context.Context, arg HasCompletedFlowParams) (bool, error)
	HasRecentFlowRequest(ctx context.Context, arg HasRecentFlowRequestParams) (bool, error)
	ListSavedInterventionKeys(ctx context.Context, userID string) ([]string, error)

	GetDeviceToken(ctx context.Context, userID string) (string, error)
	UpsertDeviceToken(ctx context.Context, arg UpsertDeviceTokenParams) error
}

var _ Querier = (*Queries)(nil)
